package message

import (
	"regexp"
	"slices"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
)

var mentionPattern = regexp.MustCompile(`@([\p{L}0-9_]+)`)

// Service appends to and clears the timelines held in State.
type Service struct {
	state *conversation.State
	clock clock.Clock
	log   *zap.Logger
}

// New constructs a message Service.
func New(state *conversation.State, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{state: state, clock: clk, log: log.Named("message")}
}

// Compose builds a message with a fresh ID and the current time.
func (s *Service) Compose(sender, content string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		Timestamp: s.clock.Now(),
	}
}

// AddMessage appends msg to the main timeline.
func (s *Service) AddMessage(msg domain.Message) {
	s.state.Messages.Update(func(cur []domain.Message) []domain.Message {
		return conversation.Appended(cur, msg)
	})
}

// AddSystemMessage appends a local notice to the main timeline.
func (s *Service) AddSystemMessage(text string) {
	s.AddMessage(s.Compose(domain.SystemSender, text))
}

// AddChannelMessage appends msg to a channel timeline. Messages from other
// peers in a channel that is not on screen count as unread.
func (s *Service) AddChannelMessage(channel string, msg domain.Message, self domain.PeerID) {
	msg.Channel = channel
	s.state.ChannelMessages.Update(func(cur map[string][]domain.Message) map[string][]domain.Message {
		return conversation.WithKey(cur, channel, conversation.Appended(cur[channel], msg))
	})
	if channel != s.state.CurrentChannel.Load() && msg.SenderPeerID != self && !msg.IsSystem() {
		s.state.UnreadChannels.Update(func(cur map[string]int) map[string]int {
			return conversation.WithKey(cur, channel, cur[channel]+1)
		})
	}
}

// AddPrivateMessage appends msg to a private chat. Incoming messages for a
// conversation that is not selected mark it unread.
func (s *Service) AddPrivateMessage(key domain.ConversationKey, msg domain.Message, self domain.PeerID) {
	msg.IsPrivate = true
	s.state.PrivateChats.Update(func(cur map[domain.ConversationKey][]domain.Message) map[domain.ConversationKey][]domain.Message {
		return conversation.WithKey(cur, key, conversation.Appended(cur[key], msg))
	})
	if key != s.state.SelectedPrivatePeer.Load() && msg.SenderPeerID != self && !msg.IsSystem() {
		s.state.UnreadPrivate.Update(func(cur map[domain.ConversationKey]bool) map[domain.ConversationKey]bool {
			return conversation.WithKey(cur, key, true)
		})
	}
}

// MergePrivateChats moves the history kept under from onto to, ordered by
// time. Used when a pseudonymous conversation resolves to a mesh peer.
func (s *Service) MergePrivateChats(from, to domain.ConversationKey) {
	if from == to {
		return
	}
	s.state.PrivateChats.Update(func(cur map[domain.ConversationKey][]domain.Message) map[domain.ConversationKey][]domain.Message {
		moved, ok := cur[from]
		if !ok {
			return cur
		}
		merged := conversation.Appended(cur[to], moved...)
		slices.SortStableFunc(merged, func(a, b domain.Message) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		next := conversation.WithoutKey(cur, from)
		next[to] = merged
		return next
	})
	s.state.UnreadPrivate.Update(func(cur map[domain.ConversationKey]bool) map[domain.ConversationKey]bool {
		if !cur[from] {
			return cur
		}
		next := conversation.WithoutKey(cur, from)
		next[to] = true
		return next
	})
}

// SetDelivery updates the delivery state of an outgoing private message.
// A state never moves backwards.
func (s *Service) SetDelivery(messageID string, d domain.Delivery) bool {
	found := false
	s.state.PrivateChats.Update(func(cur map[domain.ConversationKey][]domain.Message) map[domain.ConversationKey][]domain.Message {
		found = false
		for key, msgs := range cur {
			i := slices.IndexFunc(msgs, func(m domain.Message) bool { return m.ID == messageID })
			if i < 0 {
				continue
			}
			found = true
			if msgs[i].Delivery >= d {
				return cur
			}
			updated := slices.Clone(msgs)
			updated[i].Delivery = d
			return conversation.WithKey(cur, key, updated)
		}
		return cur
	})
	return found
}

// ClearMessages empties the main timeline.
func (s *Service) ClearMessages() {
	s.state.Messages.Store(nil)
}

// ClearChannelMessages empties one channel timeline.
func (s *Service) ClearChannelMessages(channel string) {
	s.state.ChannelMessages.Update(func(cur map[string][]domain.Message) map[string][]domain.Message {
		return conversation.WithKey(cur, channel, []domain.Message(nil))
	})
}

// ClearPrivateMessages empties one private chat.
func (s *Service) ClearPrivateMessages(key domain.ConversationKey) {
	s.state.PrivateChats.Update(func(cur map[domain.ConversationKey][]domain.Message) map[domain.ConversationKey][]domain.Message {
		return conversation.WithKey(cur, key, []domain.Message(nil))
	})
}

// ClearAll empties every timeline and unread marker.
func (s *Service) ClearAll() {
	s.state.Messages.Store(nil)
	s.state.ChannelMessages.Store(nil)
	s.state.PrivateChats.Store(nil)
	s.state.UnreadPrivate.Store(nil)
	s.state.UnreadChannels.Store(nil)
}

// ParseMentions returns the distinct @mentions in content that name a known
// peer or ourselves.
func ParseMentions(content string, peerNicknames []string, self string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if name != self && !slices.Contains(peerNicknames, name) {
			continue
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
