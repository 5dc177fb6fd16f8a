package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identitycache"
	"meshchat/internal/services/message"
)

const challengeBytes = 16

// ErrUnknownFingerprint is returned when a peer's fingerprint is not cached.
var ErrUnknownFingerprint = errors.New("peer fingerprint unknown")

// Service tracks pending challenges and verified fingerprints.
type Service struct {
	mesh     domain.MeshSender
	cache    *identitycache.Store
	messages *message.Service
	pending  conversation.Value[map[domain.PeerID][]byte]
	verified conversation.Value[map[domain.Fingerprint]bool]
	log      *zap.Logger
}

// New constructs a verification Service.
func New(mesh domain.MeshSender, cache *identitycache.Store, messages *message.Service, log *zap.Logger) *Service {
	return &Service{mesh: mesh, cache: cache, messages: messages, log: log.Named("verify")}
}

// Begin issues a challenge to peer. Without a session the challenge stays
// pending and a handshake is started.
func (s *Service) Begin(ctx context.Context, peer domain.PeerID) error {
	nonce := make([]byte, challengeBytes)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	s.pending.Update(func(cur map[domain.PeerID][]byte) map[domain.PeerID][]byte {
		return conversation.WithKey(cur, peer, nonce)
	})
	if !s.mesh.HasEstablishedSession(peer) {
		if err := s.mesh.InitiateHandshake(ctx, peer); err != nil {
			return fmt.Errorf("verify %s: %w", peer, err)
		}
		return nil
	}
	return s.send(ctx, peer, nonce)
}

// ResendPending re-issues a pending challenge to peer, if any.
func (s *Service) ResendPending(ctx context.Context, peer domain.PeerID) error {
	nonce, ok := s.pending.Load()[peer]
	if !ok {
		return nil
	}
	return s.send(ctx, peer, nonce)
}

// HasPending reports whether peer has an unanswered challenge.
func (s *Service) HasPending(peer domain.PeerID) bool {
	_, ok := s.pending.Load()[peer]
	return ok
}

// HandleChallenge answers a peer's challenge.
func (s *Service) HandleChallenge(ctx context.Context, peer domain.PeerID, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if err := s.mesh.SendVerifyResponse(ctx, peer, payload); err != nil {
		return fmt.Errorf("answer challenge from %s: %w", peer, err)
	}
	return nil
}

// HandleResponse checks a response against the pending challenge and
// reports whether it verified the peer.
func (s *Service) HandleResponse(peer domain.PeerID, payload []byte) bool {
	nonce, ok := s.pending.Load()[peer]
	if !ok || subtle.ConstantTimeCompare(nonce, payload) != 1 {
		return false
	}
	fp, ok := s.cache.FingerprintForPeer(peer)
	if !ok {
		s.log.Warn("verified peer without fingerprint", zap.Stringer("peer", peer))
		return false
	}
	s.pending.Update(func(cur map[domain.PeerID][]byte) map[domain.PeerID][]byte {
		return conversation.WithoutKey(cur, peer)
	})
	s.Verify(fp)

	name := fp.Short()
	if n, ok := s.cache.NicknameForFingerprint(fp); ok {
		name = n
	}
	s.messages.AddSystemMessage(fmt.Sprintf("verified %s (%s)", name, fp.Short()))
	return true
}

// Verify marks a fingerprint verified.
func (s *Service) Verify(fp domain.Fingerprint) {
	s.verified.Update(func(cur map[domain.Fingerprint]bool) map[domain.Fingerprint]bool {
		return conversation.WithKey(cur, fp, true)
	})
}

// Unverify removes a fingerprint from the verified set.
func (s *Service) Unverify(fp domain.Fingerprint) {
	s.verified.Update(func(cur map[domain.Fingerprint]bool) map[domain.Fingerprint]bool {
		return conversation.WithoutKey(cur, fp)
	})
}

// IsVerified reports whether fp is verified.
func (s *Service) IsVerified(fp domain.Fingerprint) bool {
	return s.verified.Load()[fp]
}

// IsPeerVerified reports whether a mesh peer's fingerprint is verified.
// Pseudonymous keys are never verified.
func (s *Service) IsPeerVerified(key domain.ConversationKey) bool {
	peer, ok := key.PeerID()
	if !ok {
		return false
	}
	fp, ok := s.cache.FingerprintForPeer(peer)
	return ok && s.IsVerified(fp)
}

// Verified returns the verified fingerprints, sorted.
func (s *Service) Verified() []domain.Fingerprint {
	out := make([]domain.Fingerprint, 0, len(s.verified.Load()))
	for fp := range s.verified.Load() {
		out = append(out, fp)
	}
	slices.Sort(out)
	return out
}

// Wipe forgets every challenge and verification.
func (s *Service) Wipe() {
	s.pending.Store(nil)
	s.verified.Store(nil)
}

func (s *Service) send(ctx context.Context, peer domain.PeerID, nonce []byte) error {
	if err := s.mesh.SendVerifyChallenge(ctx, peer, nonce); err != nil {
		return fmt.Errorf("send challenge to %s: %w", peer, err)
	}
	return nil
}
