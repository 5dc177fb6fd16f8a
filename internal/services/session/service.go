package session

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/message"
)

// ErrNoRoute is returned for conversations that have no mesh peer and no
// broadcast fallback.
var ErrNoRoute = errors.New("no route to conversation")

// DirectFunc sends to a conversation that is not a mesh peer.
type DirectFunc func(ctx context.Context, key domain.ConversationKey, content, messageID string) error

type pending struct {
	content   string
	nickname  string
	messageID string
}

// Service is the private-message outbox.
type Service struct {
	mesh     domain.MeshSender
	direct   DirectFunc
	messages *message.Service
	queue    conversation.Value[map[domain.PeerID][]pending]
	log      *zap.Logger
}

// New constructs an outbox over mesh. direct may be nil.
func New(mesh domain.MeshSender, direct DirectFunc, messages *message.Service, log *zap.Logger) *Service {
	return &Service{mesh: mesh, direct: direct, messages: messages, log: log.Named("outbox")}
}

// Send delivers content to key, queueing it when the peer has no session.
func (s *Service) Send(ctx context.Context, content string, key domain.ConversationKey, recipientNickname, messageID string) error {
	peer, ok := key.PeerID()
	if !ok {
		if s.direct == nil {
			return fmt.Errorf("send to %s: %w", key, ErrNoRoute)
		}
		if err := s.direct(ctx, key, content, messageID); err != nil {
			return err
		}
		s.messages.SetDelivery(messageID, domain.DeliverySent)
		return nil
	}

	if s.mesh.HasEstablishedSession(peer) {
		if err := s.mesh.SendPrivate(ctx, content, peer, recipientNickname, messageID); err != nil {
			return err
		}
		s.messages.SetDelivery(messageID, domain.DeliverySent)
		return nil
	}

	s.queue.Update(func(cur map[domain.PeerID][]pending) map[domain.PeerID][]pending {
		return conversation.WithKey(cur, peer, conversation.Appended(cur[peer], pending{content, recipientNickname, messageID}))
	})
	s.log.Debug("queued until session", zap.Stringer("peer", peer), zap.String("id", messageID))
	if err := s.mesh.InitiateHandshake(ctx, peer); err != nil {
		return fmt.Errorf("initiate handshake with %s: %w", peer, err)
	}
	return nil
}

// OnSessionEstablished flushes the outbox for peer. Messages that fail to
// send go back to the front of the queue.
func (s *Service) OnSessionEstablished(ctx context.Context, peer domain.PeerID) error {
	var batch []pending
	s.queue.Update(func(cur map[domain.PeerID][]pending) map[domain.PeerID][]pending {
		batch = cur[peer]
		if len(batch) == 0 {
			return cur
		}
		return conversation.WithoutKey(cur, peer)
	})
	if len(batch) == 0 {
		return nil
	}

	var (
		errs   error
		failed []pending
	)
	for i, p := range batch {
		if err := ctx.Err(); err != nil {
			failed = append(failed, batch[i:]...)
			errs = multierr.Append(errs, err)
			break
		}
		if err := s.mesh.SendPrivate(ctx, p.content, peer, p.nickname, p.messageID); err != nil {
			failed = append(failed, p)
			errs = multierr.Append(errs, fmt.Errorf("message %s: %w", p.messageID, err))
			continue
		}
		s.messages.SetDelivery(p.messageID, domain.DeliverySent)
	}
	if len(failed) > 0 {
		s.queue.Update(func(cur map[domain.PeerID][]pending) map[domain.PeerID][]pending {
			return conversation.WithKey(cur, peer, conversation.Appended(failed, cur[peer]...))
		})
	}
	s.log.Debug("flushed outbox",
		zap.Stringer("peer", peer),
		zap.Int("sent", len(batch)-len(failed)),
		zap.Int("requeued", len(failed)))
	return errs
}

// Pending returns the number of queued messages for peer.
func (s *Service) Pending(peer domain.PeerID) int {
	return len(s.queue.Load()[peer])
}

// PendingIDs returns the queued message IDs for peer in send order.
func (s *Service) PendingIDs(peer domain.PeerID) []string {
	q := s.queue.Load()[peer]
	ids := make([]string, 0, len(q))
	for _, p := range q {
		ids = append(ids, p.messageID)
	}
	return slices.Clip(ids)
}

// Clear drops every queued message.
func (s *Service) Clear() {
	s.queue.Store(nil)
}
