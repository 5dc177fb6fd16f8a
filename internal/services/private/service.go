package private

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identitycache"
	"meshchat/internal/services/message"
)

// SendFunc delivers a private message. It is called after the message has
// been added to the local chat.
type SendFunc func(ctx context.Context, content string, key domain.ConversationKey, recipientNickname, messageID string) error

// Service runs private conversations.
type Service struct {
	state    *conversation.State
	messages *message.Service
	cache    *identitycache.Store
	prefs    domain.PreferencesStore
	geo      domain.GeoSubscriptions
	geoSeed  func() []byte
	log      *zap.Logger
}

// New constructs a private-chat Service. geo and geoSeed may be nil when no
// broadcast side is available.
func New(
	state *conversation.State,
	messages *message.Service,
	cache *identitycache.Store,
	prefs domain.PreferencesStore,
	geo domain.GeoSubscriptions,
	geoSeed func() []byte,
	log *zap.Logger,
) *Service {
	return &Service{
		state:    state,
		messages: messages,
		cache:    cache,
		prefs:    prefs,
		geo:      geo,
		geoSeed:  geoSeed,
		log:      log.Named("private"),
	}
}

// LoadPreferences reads the favorite and blocked sets.
func (s *Service) LoadPreferences() error {
	favs, err := s.prefs.LoadFavorites()
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	blocked, err := s.prefs.LoadBlocked()
	if err != nil {
		return fmt.Errorf("load blocked: %w", err)
	}
	s.state.Favorites.Store(toSet(favs))
	s.state.Blocked.Store(toSet(blocked))
	return nil
}

// StartPrivateChat selects key as the active conversation. Mesh peers
// without a session get a handshake; pseudonymous keys get a DM
// subscription. It reports false when the peer is blocked.
func (s *Service) StartPrivateChat(ctx context.Context, key domain.ConversationKey, mesh domain.MeshSender) bool {
	if s.IsBlocked(key) {
		s.messages.AddSystemMessage(fmt.Sprintf("cannot start chat with %s: user is blocked.", s.displayName(key)))
		return false
	}
	if peer, ok := key.PeerID(); ok && mesh != nil && !mesh.HasEstablishedSession(peer) {
		if err := mesh.InitiateHandshake(ctx, peer); err != nil {
			s.log.Warn("initiate handshake", zap.Stringer("peer", peer), zap.Error(err))
		}
	}
	if key.Kind() == domain.KeyAlias {
		s.ensureGeoSubscription(ctx, key)
	}

	s.state.SelectedPrivatePeer.Store(key)
	s.state.UnreadPrivate.Update(func(cur map[domain.ConversationKey]bool) map[domain.ConversationKey]bool {
		if !cur[key] {
			return cur
		}
		return conversation.WithoutKey(cur, key)
	})
	s.state.PrivateChats.Update(func(cur map[domain.ConversationKey][]domain.Message) map[domain.ConversationKey][]domain.Message {
		if _, ok := cur[key]; ok {
			return cur
		}
		return conversation.WithKey(cur, key, []domain.Message(nil))
	})
	return true
}

// EndPrivateChat returns to the public timeline.
func (s *Service) EndPrivateChat() {
	s.state.SelectedPrivatePeer.Store(domain.ConversationKey{})
}

// SendPrivateMessage records content in key's chat and hands it to send.
func (s *Service) SendPrivateMessage(
	ctx context.Context,
	content string,
	key domain.ConversationKey,
	recipientNickname, senderNickname string,
	self domain.PeerID,
	send SendFunc,
) error {
	if s.IsBlocked(key) {
		s.messages.AddSystemMessage(fmt.Sprintf("cannot send message to %s: user is blocked.", s.displayName(key)))
		return nil
	}
	msg := s.messages.Compose(senderNickname, content)
	msg.SenderPeerID = self
	msg.RecipientNickname = recipientNickname
	msg.Delivery = domain.DeliverySending
	s.messages.AddPrivateMessage(key, msg, self)

	if err := send(ctx, content, key, recipientNickname, msg.ID); err != nil {
		return fmt.Errorf("send private message: %w", err)
	}
	return nil
}

// PeerByNickname finds a connected peer by nickname.
func (s *Service) PeerByNickname(nickname string) (domain.PeerID, bool) {
	set := s.state.Peers.Load()
	if set == nil {
		return "", false
	}
	for _, id := range set.Order {
		if set.Peers[id].Nickname == nickname {
			return id, true
		}
	}
	return "", false
}

// BlockByNickname blocks the peer currently using nickname.
func (s *Service) BlockByNickname(nickname string) {
	fp, ok := s.fingerprintForNickname(nickname)
	if !ok {
		s.messages.AddSystemMessage(fmt.Sprintf("cannot block %s: user not found or unable to verify identity", nickname))
		return
	}
	if s.state.Blocked.Load()[fp] {
		s.messages.AddSystemMessage(fmt.Sprintf("user %s is already blocked", nickname))
		return
	}
	blocked := s.state.Blocked.Update(func(cur map[domain.Fingerprint]bool) map[domain.Fingerprint]bool {
		return conversation.WithKey(cur, fp, true)
	})
	s.saveBlocked(blocked)
	s.messages.AddSystemMessage(fmt.Sprintf("blocked user %s", nickname))
}

// UnblockByNickname lifts a block.
func (s *Service) UnblockByNickname(nickname string) {
	fp, ok := s.fingerprintForNickname(nickname)
	if !ok {
		s.messages.AddSystemMessage(fmt.Sprintf("cannot unblock %s: user not found", nickname))
		return
	}
	if !s.state.Blocked.Load()[fp] {
		s.messages.AddSystemMessage(fmt.Sprintf("user %s is not blocked", nickname))
		return
	}
	blocked := s.state.Blocked.Update(func(cur map[domain.Fingerprint]bool) map[domain.Fingerprint]bool {
		return conversation.WithoutKey(cur, fp)
	})
	s.saveBlocked(blocked)
	s.messages.AddSystemMessage(fmt.Sprintf("unblocked user %s", nickname))
}

// ListBlocked posts the blocked users as a system message.
func (s *Service) ListBlocked() {
	blocked := s.state.Blocked.Load()
	if len(blocked) == 0 {
		s.messages.AddSystemMessage("no blocked users")
		return
	}
	names := make([]string, 0, len(blocked))
	for fp := range blocked {
		if n, ok := s.cache.NicknameForFingerprint(fp); ok {
			names = append(names, n)
		} else {
			names = append(names, fp.Short())
		}
	}
	slices.Sort(names)
	s.messages.AddSystemMessage("blocked users: " + strings.Join(names, ", "))
}

// IsBlocked reports whether key's fingerprint is blocked.
func (s *Service) IsBlocked(key domain.ConversationKey) bool {
	fp, ok := s.fingerprintForKey(key)
	return ok && s.state.Blocked.Load()[fp]
}

// ToggleFavorite flips the favorite flag of a peer and reports the new value.
func (s *Service) ToggleFavorite(peer domain.PeerID) (bool, error) {
	fp, ok := s.cache.FingerprintForPeer(peer)
	if !ok {
		return false, fmt.Errorf("favorite %s: unknown fingerprint", peer)
	}
	var now bool
	favs := s.state.Favorites.Update(func(cur map[domain.Fingerprint]bool) map[domain.Fingerprint]bool {
		now = !cur[fp]
		if now {
			return conversation.WithKey(cur, fp, true)
		}
		return conversation.WithoutKey(cur, fp)
	})
	if err := s.prefs.SaveFavorites(fromSet(favs)); err != nil {
		return now, fmt.Errorf("save favorites: %w", err)
	}
	return now, nil
}

// IsFavorite reports whether a peer is a favorite.
func (s *Service) IsFavorite(peer domain.PeerID) bool {
	fp, ok := s.cache.FingerprintForPeer(peer)
	return ok && s.state.Favorites.Load()[fp]
}

// ClearAll drops every private chat and the selection.
func (s *Service) ClearAll() {
	s.state.SelectedPrivatePeer.Store(domain.ConversationKey{})
	s.state.PrivateChatSheetPeer.Store(domain.ConversationKey{})
	s.state.PrivateChats.Store(nil)
	s.state.UnreadPrivate.Store(nil)
}

func (s *Service) ensureGeoSubscription(ctx context.Context, key domain.ConversationKey) {
	if s.geo == nil || s.geoSeed == nil {
		return
	}
	gh, ok := s.geo.ConversationGeohash(key)
	if !ok || gh == "" {
		return
	}
	id, err := crypto.DeriveGeoIdentity(s.geoSeed(), gh)
	if err != nil {
		s.log.Warn("derive geo identity", zap.String("geohash", gh), zap.Error(err))
		return
	}
	subID, err := s.geo.EnsureDMSubscription(ctx, id)
	if err != nil {
		s.log.Warn("dm subscription", zap.String("geohash", gh), zap.Error(err))
		return
	}
	s.log.Debug("dm subscription ready", zap.String("geohash", gh), zap.String("sub", subID))
}

func (s *Service) fingerprintForNickname(nickname string) (domain.Fingerprint, bool) {
	if peer, ok := s.PeerByNickname(nickname); ok {
		if fp, ok := s.cache.FingerprintForPeer(peer); ok {
			return fp, true
		}
	}
	return s.cache.FingerprintForNickname(nickname)
}

func (s *Service) fingerprintForKey(key domain.ConversationKey) (domain.Fingerprint, bool) {
	if peer, ok := key.PeerID(); ok {
		return s.cache.FingerprintForPeer(peer)
	}
	if pub, ok := key.PublicKeyHex(); ok {
		if mk, ok := s.cache.MeshKeyForPublicKey(pub); ok {
			return s.cache.FingerprintForMeshKey(mk)
		}
	}
	return "", false
}

func (s *Service) displayName(key domain.ConversationKey) string {
	if peer, ok := key.PeerID(); ok {
		if n := s.state.PeerNicknames()[peer]; n != "" {
			return n
		}
	}
	if fp, ok := s.fingerprintForKey(key); ok {
		if n, ok := s.cache.NicknameForFingerprint(fp); ok {
			return n
		}
	}
	return key.String()
}

func (s *Service) saveBlocked(blocked map[domain.Fingerprint]bool) {
	if err := s.prefs.SaveBlocked(fromSet(blocked)); err != nil {
		s.log.Warn("save blocked", zap.Error(err))
	}
}

func toSet(fps []domain.Fingerprint) map[domain.Fingerprint]bool {
	out := make(map[domain.Fingerprint]bool, len(fps))
	for _, fp := range fps {
		out[fp] = true
	}
	return out
}

func fromSet(set map[domain.Fingerprint]bool) []domain.Fingerprint {
	out := make([]domain.Fingerprint, 0, len(set))
	for fp, ok := range set {
		if ok {
			out = append(out, fp)
		}
	}
	slices.Sort(out)
	return out
}
