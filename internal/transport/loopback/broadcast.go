package loopback

import (
	"context"
	"strings"

	"meshchat/internal/domain"
)

const dmSubPrefix = "geo-dm-"

// SendLocation implements domain.BroadcastTransport.
func (t *Transport) SendLocation(ctx context.Context, geohash, content, nickname string, id domain.GeoIdentity) error {
	return t.record(ctx, Sent{Kind: "location", Channel: geohash, Content: content, Recipient: nickname, Payload: []byte(id.PublicKeyHex)})
}

// SendDirect implements domain.BroadcastTransport.
func (t *Transport) SendDirect(ctx context.Context, recipientPubHex, content, messageID string, id domain.GeoIdentity) error {
	return t.record(ctx, Sent{Kind: "direct", Recipient: strings.ToLower(recipientPubHex), Content: content, MessageID: messageID, Payload: []byte(id.PublicKeyHex)})
}

// StartGeoConversation remembers that key was opened from geohash.
func (t *Transport) StartGeoConversation(key domain.ConversationKey, geohash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.geo[key] = strings.ToLower(geohash)
}

// ConversationGeohash implements domain.GeoSubscriptions.
func (t *Transport) ConversationGeohash(key domain.ConversationKey) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	gh, ok := t.geo[key]
	return gh, ok
}

// EnsureDMSubscription implements domain.GeoSubscriptions. Only one DM
// subscription is active at a time; a new geohash replaces the old one.
func (t *Transport) EnsureDMSubscription(ctx context.Context, id domain.GeoIdentity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subID := dmSubPrefix + id.Geohash
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", ErrClosed
	}
	if t.dmSub != subID {
		if t.dmSub != "" {
			t.sent = append(t.sent, Sent{Kind: "unsubscribe", Channel: t.dmSub})
		}
		t.dmSub = subID
		t.sent = append(t.sent, Sent{Kind: "subscribe", Channel: subID, Payload: []byte(id.PublicKeyHex)})
	}
	return subID, nil
}

// DMSubscription returns the active DM subscription ID.
func (t *Transport) DMSubscription() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dmSub
}

var (
	_ domain.BroadcastTransport = (*Transport)(nil)
	_ domain.GeoSubscriptions   = (*Transport)(nil)
)
