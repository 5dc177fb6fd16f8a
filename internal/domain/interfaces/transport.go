package interfaces

import (
	"context"

	domaintypes "meshchat/internal/domain/types"
)

// PeerStateSource answers per-peer state queries. A miss is reported with
// ok=false; err is reserved for a failed query.
type PeerStateSource interface {
	ConnectedPeers() []domaintypes.PeerID
	SessionState(ctx context.Context, peer domaintypes.PeerID) (domaintypes.SessionState, error)
	Fingerprint(ctx context.Context, peer domaintypes.PeerID) (domaintypes.Fingerprint, bool, error)
	Nickname(ctx context.Context, peer domaintypes.PeerID) (string, bool, error)
	RSSI(ctx context.Context, peer domaintypes.PeerID) (int, bool, error)
	IsDirect(ctx context.Context, peer domaintypes.PeerID) (bool, error)
	MeshPublicKey(ctx context.Context, peer domaintypes.PeerID) ([]byte, bool, error)
}

// MeshSender sends over the mesh.
type MeshSender interface {
	SendBroadcast(ctx context.Context, content string, mentions []string, channel string) error
	// SendChannelPayload broadcasts a sealed payload to a protected channel.
	SendChannelPayload(ctx context.Context, payload []byte, mentions []string, channel string) error
	SendPrivate(ctx context.Context, content string, peer domaintypes.PeerID, recipientNickname, messageID string) error
	SendVerifyChallenge(ctx context.Context, peer domaintypes.PeerID, payload []byte) error
	SendVerifyResponse(ctx context.Context, peer domaintypes.PeerID, payload []byte) error
	InitiateHandshake(ctx context.Context, peer domaintypes.PeerID) error
	HasEstablishedSession(peer domaintypes.PeerID) bool
}

// Transport is the mesh transport facade.
type Transport interface {
	PeerStateSource
	MeshSender
	MyPeerID() domaintypes.PeerID
	Events() <-chan domaintypes.Event
	Close() error
}

// TransportFactory creates a fresh transport, used at startup and after an
// identity reset.
type TransportFactory func(ctx context.Context) (Transport, error)

// BroadcastTransport is the location-scoped pseudonymous relay side.
type BroadcastTransport interface {
	SendLocation(ctx context.Context, geohash, content, nickname string, id domaintypes.GeoIdentity) error
	SendDirect(ctx context.Context, recipientPubHex, content, messageID string, id domaintypes.GeoIdentity) error
}

// GeoSubscriptions manages direct-message subscriptions for geohash
// identities.
type GeoSubscriptions interface {
	// ConversationGeohash returns the geohash a pseudonymous conversation
	// was started from.
	ConversationGeohash(key domaintypes.ConversationKey) (string, bool)
	// EnsureDMSubscription gets or creates the DM subscription for id and
	// returns its subscription ID.
	EnsureDMSubscription(ctx context.Context, id domaintypes.GeoIdentity) (string, error)
}
