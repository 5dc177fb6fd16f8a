package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/channel"
)

// lockedPlaceholder replaces sealed channel content we cannot open.
const lockedPlaceholder = "[encrypted message - password required]"

// Favorite announcements carry the sender's npub after the tag.
const (
	favoritedTag   = "[FAVORITED]:"
	unfavoritedTag = "[UNFAVORITED]:"
)

// handleEvent applies one transport event. It runs on the event loop
// goroutine.
func (a *App) handleEvent(ctx context.Context, ev domain.Event) {
	l := a.current()
	if l == nil {
		return
	}
	switch ev.Kind {
	case domain.EventPeerListUpdated:
		a.State.ConnectedPeers.Store(ev.Peers)
		a.canonicalizeSelection(ctx, l)
	case domain.EventMessageReceived:
		if ev.Message != nil {
			a.receive(ctx, l, *ev.Message, ev.Payload)
		}
	case domain.EventChannelLeave:
		a.channelLeave(ev.Channel, ev.PeerID)
	case domain.EventDeliveryAck:
		a.Messages.SetDelivery(ev.MessageID, domain.DeliveryDelivered)
	case domain.EventReadReceipt:
		a.Messages.SetDelivery(ev.MessageID, domain.DeliveryRead)
	case domain.EventVerifyChallenge:
		if err := l.verify.HandleChallenge(ctx, ev.PeerID, ev.Payload); err != nil {
			a.log.Warn("verify challenge", zap.Stringer("peer", ev.PeerID), zap.Error(err))
		}
	case domain.EventVerifyResponse:
		if !l.verify.HandleResponse(ev.PeerID, ev.Payload) {
			a.log.Debug("unmatched verify response", zap.Stringer("peer", ev.PeerID))
		}
	case domain.EventGeohashParticipants:
		for _, p := range ev.People {
			a.Aliases.Register(p.PublicKeyHex)
		}
		if a.State.Location.Load().Geohash() == ev.Geohash {
			a.State.GeohashPeople.Store(ev.People)
		}
	default:
		a.log.Debug("ignoring event", zap.Stringer("kind", ev.Kind))
	}
}

// receive files an incoming message under its conversation.
func (a *App) receive(ctx context.Context, l *link, msg domain.Message, sealed []byte) {
	self := l.transport.MyPeerID()
	from := a.resolve(domain.ParseConversationKey(msg.SenderPeerID.String()))
	if msg.SenderPeerID != "" && l.private.IsBlocked(from) {
		a.log.Debug("dropping message from blocked sender", zap.Stringer("from", from))
		return
	}

	switch {
	case msg.IsPrivate && a.favoriteNotice(ctx, l, from, msg):
		return
	case msg.IsPrivate:
		a.Messages.AddPrivateMessage(from, msg, self)
	case msg.Channel != "":
		if len(sealed) > 0 {
			content, err := a.Channels.Open(msg.Channel, sealed)
			if err != nil {
				a.log.Debug("cannot open channel message", zap.String("channel", msg.Channel), zap.Error(err))
				content = lockedPlaceholder
			}
			msg.Content = content
		}
		a.Channels.AddChannelMessage(msg.Channel, msg, self)
	default:
		a.Messages.AddMessage(msg)
	}

	if a.State.SayAll.Load() && a.opts.speaker != nil && msg.SenderPeerID != self && !msg.IsSystem() {
		if err := a.opts.speaker.Speak(msg.Content); err != nil {
			a.log.Warn("speak", zap.Error(err))
		}
	}
}

// favoriteNotice handles a favorite announcement from a mesh peer. The
// announced public key is linked to the sender's mesh key so that
// pseudonymous conversations with them resolve to the mesh peer. It reports
// whether msg was an announcement.
func (a *App) favoriteNotice(ctx context.Context, l *link, from domain.ConversationKey, msg domain.Message) bool {
	var (
		npub string
		verb string
	)
	switch {
	case strings.HasPrefix(msg.Content, favoritedTag):
		npub, verb = strings.TrimPrefix(msg.Content, favoritedTag), "favorited"
	case strings.HasPrefix(msg.Content, unfavoritedTag):
		npub, verb = strings.TrimPrefix(msg.Content, unfavoritedTag), "unfavorited"
	default:
		return false
	}
	peer, ok := from.PeerID()
	if !ok {
		return false
	}

	if pub, err := decodeNpub(npub); err != nil {
		a.log.Debug("favorite notice without npub", zap.Stringer("peer", peer), zap.Error(err))
	} else if meshKey, ok := a.Cache.MeshKeyForPeer(peer); ok {
		a.Cache.CachePublicKeyMeshKey(pub, meshKey)
		a.Aliases.Register(pub)
	} else {
		a.log.Debug("favorite notice before mesh key is known", zap.Stringer("peer", peer))
	}

	who := msg.Sender
	if n := a.State.PeerNicknames()[peer]; n != "" {
		who = n
	}
	notice := a.Messages.Compose(domain.SystemSender, fmt.Sprintf("%s %s you", who, verb))
	a.Messages.AddPrivateMessage(from, notice, l.transport.MyPeerID())
	a.canonicalizeSelection(ctx, l)
	return true
}

func decodeNpub(npub string) (string, error) {
	prefix, v, err := nip19.Decode(strings.TrimSpace(npub))
	if err != nil {
		return "", err
	}
	pub, ok := v.(string)
	if prefix != "npub" || !ok {
		return "", fmt.Errorf("want npub, got %s", prefix)
	}
	return pub, nil
}

// canonicalizeSelection moves the selected private chat onto its canonical
// key once a pseudonymous peer shows up on the mesh.
func (a *App) canonicalizeSelection(ctx context.Context, l *link) {
	sel := a.State.SelectedPrivatePeer.Load()
	if sel.IsZero() {
		return
	}
	canonical := a.resolve(sel)
	if canonical == sel {
		return
	}
	a.Messages.MergePrivateChats(sel, canonical)
	l.private.StartPrivateChat(ctx, canonical, l.transport)
	if !a.State.PrivateChatSheetPeer.Load().IsZero() {
		a.State.PrivateChatSheetPeer.Store(canonical)
	}
}

func (a *App) channelLeave(ch string, peer domain.PeerID) {
	ch = channel.Normalize(ch)
	if !slices.Contains(a.Channels.JoinedChannels(), ch) {
		return
	}
	who := peer.String()
	if p, ok := a.State.Peers.Load().Get(peer); ok && p.Nickname != "" {
		who = p.Nickname
	}
	notice := a.Messages.Compose(domain.SystemSender, fmt.Sprintf("%s left %s", who, ch))
	a.Channels.AddChannelMessage(ch, notice, a.SelfID())
}
