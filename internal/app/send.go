package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/message"
)

// SendMessage handles one line of user input. Commands go to the
// dispatcher; anything else goes to the selected private chat, location
// channel, mesh channel or public timeline, in that order.
func (a *App) SendMessage(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	if strings.HasPrefix(content, "/") {
		l.dispatcher.Dispatch(ctx, content)
		return nil
	}

	if sel := a.State.SelectedPrivatePeer.Load(); !sel.IsZero() {
		return a.sendPrivate(ctx, l, sel, content)
	}
	if loc := a.State.Location.Load(); loc.IsLocation() {
		return a.sendLocation(ctx, l, loc.Geohash(), content)
	}

	nick := a.State.Nickname.Load()
	mentions := message.ParseMentions(content, a.peerNicknames(), nick)
	msg := a.ownMessage(l, content)
	msg.Mentions = mentions

	ch := a.State.CurrentChannel.Load()
	if ch == "" {
		a.Messages.AddMessage(msg)
		return l.transport.SendBroadcast(ctx, content, mentions, "")
	}
	a.Channels.AddChannelMessage(ch, msg, l.transport.MyPeerID())
	if a.Channels.HasKey(ch) {
		payload, err := a.Channels.Seal(ch, content)
		if err == nil {
			return l.transport.SendChannelPayload(ctx, payload, mentions, ch)
		}
		a.log.Warn("seal channel message, sending in clear", zap.String("channel", ch), zap.Error(err))
	}
	return l.transport.SendBroadcast(ctx, content, mentions, ch)
}

func (a *App) sendPrivate(ctx context.Context, l *link, sel domain.ConversationKey, content string) error {
	canonical := a.resolve(sel)
	if canonical != sel {
		a.Messages.MergePrivateChats(sel, canonical)
		l.private.StartPrivateChat(ctx, canonical, l.transport)
		if !a.State.PrivateChatSheetPeer.Load().IsZero() {
			a.State.PrivateChatSheetPeer.Store(canonical)
		}
	}
	recipient := ""
	if id, ok := canonical.PeerID(); ok {
		recipient = a.State.PeerNicknames()[id]
	}
	return l.private.SendPrivateMessage(ctx, content, canonical, recipient,
		a.State.Nickname.Load(), l.transport.MyPeerID(), l.outbox.Send)
}

// sendPublic backs command output: location channels go to the broadcast
// side with a local echo, everything else to the mesh.
func (a *App) sendPublic(ctx context.Context, content string, mentions []string, ch string) error {
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	if loc := a.State.Location.Load(); loc.IsLocation() {
		return a.sendLocation(ctx, l, loc.Geohash(), content)
	}
	return l.transport.SendBroadcast(ctx, content, mentions, ch)
}

// sendLocation posts to a geohash channel under that geohash's identity.
func (a *App) sendLocation(ctx context.Context, l *link, gh, content string) error {
	if l.broadcast == nil {
		return ErrNoBroadcast
	}
	id, err := crypto.DeriveGeoIdentity(a.geoSeed(), gh)
	if err != nil {
		return err
	}
	msg := a.ownMessage(l, content)
	msg.Channel = domain.LocationFor(gh).String()
	a.Messages.AddMessage(msg)
	return l.broadcast.SendLocation(ctx, gh, content, a.State.Nickname.Load(), id)
}

// sendDirect delivers a private message to a pseudonymous conversation
// under the identity of the geohash it was started from.
func (a *App) sendDirect(ctx context.Context, key domain.ConversationKey, content, messageID string) error {
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	if l.broadcast == nil {
		return ErrNoBroadcast
	}
	var pub string
	switch key.Kind() {
	case domain.KeyAlias:
		al, _ := key.Alias()
		p, ok := a.Aliases.Lookup(al)
		if !ok {
			return fmt.Errorf("send to %s: unknown alias", key)
		}
		pub = p
	case domain.KeyPublicIdentity:
		pub, _ = key.PublicKeyHex()
	default:
		return fmt.Errorf("send to %s: not a pseudonymous conversation", key)
	}

	gh := a.State.Location.Load().Geohash()
	if l.geo != nil {
		if g, ok := l.geo.ConversationGeohash(key); ok {
			gh = g
		}
	}
	if gh == "" {
		return fmt.Errorf("send to %s: no geohash for conversation", key)
	}
	id, err := crypto.DeriveGeoIdentity(a.geoSeed(), gh)
	if err != nil {
		return err
	}
	return l.broadcast.SendDirect(ctx, pub, content, messageID, id)
}

func (a *App) ownMessage(l *link, content string) domain.Message {
	sender := a.State.Nickname.Load()
	if sender == "" {
		sender = l.transport.MyPeerID().String()
	}
	msg := a.Messages.Compose(sender, content)
	msg.SenderPeerID = l.transport.MyPeerID()
	return msg
}

func (a *App) peerNicknames() []string {
	nicks := a.State.PeerNicknames()
	out := make([]string, 0, len(nicks))
	for _, n := range nicks {
		out = append(out, n)
	}
	return out
}
