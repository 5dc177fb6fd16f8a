package channel

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/message"
)

var (
	// ErrNotJoined is returned for operations on a channel we are not in.
	ErrNotJoined = errors.New("not a member of channel")
	// ErrNoKey is returned when sealing or opening without a channel key.
	ErrNoKey = errors.New("no key for channel")
	// ErrWrongPassword is returned when a password does not match the
	// channel's key commitment.
	ErrWrongPassword = errors.New("wrong channel password")
)

// book is the immutable channel bookkeeping published on every change.
type book struct {
	keys        map[string][]byte
	creators    map[string]domain.PeerID
	commitments map[string]string
}

func (b book) clone() book {
	return book{
		keys:        maps.Clone(b.keys),
		creators:    maps.Clone(b.creators),
		commitments: maps.Clone(b.commitments),
	}
}

// Service joins, leaves and switches channels and holds channel keys.
type Service struct {
	state    *conversation.State
	messages *message.Service
	store    domain.ChannelStore
	book     conversation.Value[book]
	log      *zap.Logger
}

// New constructs a channel Service.
func New(state *conversation.State, messages *message.Service, store domain.ChannelStore, log *zap.Logger) *Service {
	return &Service{state: state, messages: messages, store: store, log: log.Named("channel")}
}

// Normalize prefixes a channel name with "#" when missing.
func Normalize(channel string) string {
	if strings.HasPrefix(channel, "#") {
		return channel
	}
	return "#" + channel
}

// Load restores joined channels and bookkeeping from the store.
func (s *Service) Load() error {
	data, err := s.store.LoadChannels()
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	joined := slices.Clone(data.Joined)
	slices.Sort(joined)
	s.state.JoinedChannels.Store(joined)

	protected := make(map[string]bool, len(data.Protected))
	for _, ch := range data.Protected {
		protected[ch] = true
	}
	s.state.ProtectedChannels.Store(protected)

	s.book.Store(book{
		creators:    maps.Clone(data.Creators),
		commitments: maps.Clone(data.KeyCommitments),
	})
	return nil
}

// Join joins channel, optionally with a password, and makes it current.
// It reports false when the channel needs a password we do not have or the
// password is wrong; the reason is posted as a system message.
func (s *Service) Join(channel, password string, self domain.PeerID) bool {
	channel = Normalize(channel)
	b := s.book.Load()
	protected := s.state.ProtectedChannels.Load()[channel]

	var key []byte
	switch {
	case password != "":
		key = crypto.DeriveChannelKey(password, channel)
		if c, ok := b.commitments[channel]; ok && c != crypto.KeyCommitment(key) {
			s.messages.AddSystemMessage(fmt.Sprintf("wrong password for channel %s", channel))
			return false
		}
	case protected && b.keys[channel] == nil:
		s.messages.AddSystemMessage(fmt.Sprintf("channel %s is password protected. use /join %s <password>", channel, channel))
		return false
	}

	s.book.Update(func(cur book) book {
		next := cur.clone()
		if next.creators == nil {
			next.creators = map[string]domain.PeerID{}
		}
		if _, ok := next.creators[channel]; !ok && !s.isJoined(channel) {
			next.creators[channel] = self
		}
		if key != nil {
			if next.keys == nil {
				next.keys = map[string][]byte{}
			}
			if next.commitments == nil {
				next.commitments = map[string]string{}
			}
			next.keys[channel] = key
			next.commitments[channel] = crypto.KeyCommitment(key)
		}
		return next
	})
	if key != nil {
		s.state.ProtectedChannels.Update(func(cur map[string]bool) map[string]bool {
			return conversation.WithKey(cur, channel, true)
		})
	}
	s.state.JoinedChannels.Update(func(cur []string) []string {
		if slices.Contains(cur, channel) {
			return cur
		}
		next := conversation.Appended(cur, channel)
		slices.Sort(next)
		return next
	})
	s.SwitchTo(channel)
	s.persist()
	return true
}

// Leave leaves channel and drops its key and timeline.
func (s *Service) Leave(channel string) {
	channel = Normalize(channel)
	s.state.JoinedChannels.Update(func(cur []string) []string {
		i := slices.Index(cur, channel)
		if i < 0 {
			return cur
		}
		return slices.Delete(slices.Clone(cur), i, i+1)
	})
	s.state.ChannelMessages.Update(func(cur map[string][]domain.Message) map[string][]domain.Message {
		return conversation.WithoutKey(cur, channel)
	})
	s.state.UnreadChannels.Update(func(cur map[string]int) map[string]int {
		return conversation.WithoutKey(cur, channel)
	})
	s.book.Update(func(cur book) book {
		next := cur.clone()
		delete(next.keys, channel)
		return next
	})
	if s.state.CurrentChannel.Load() == channel {
		s.state.CurrentChannel.Store("")
	}
	s.persist()
}

// SwitchTo makes channel current; "" returns to the main timeline.
func (s *Service) SwitchTo(channel string) {
	if channel != "" {
		channel = Normalize(channel)
	}
	s.state.CurrentChannel.Store(channel)
	if channel != "" {
		s.state.UnreadChannels.Update(func(cur map[string]int) map[string]int {
			return conversation.WithoutKey(cur, channel)
		})
	}
}

// AddChannelMessage appends msg to channel's timeline.
func (s *Service) AddChannelMessage(channel string, msg domain.Message, self domain.PeerID) {
	s.messages.AddChannelMessage(Normalize(channel), msg, self)
}

// JoinedChannels returns the sorted joined channels.
func (s *Service) JoinedChannels() []string {
	return s.state.JoinedChannels.Load()
}

// HasKey reports whether we hold a key for channel.
func (s *Service) HasKey(channel string) bool {
	return s.book.Load().keys[Normalize(channel)] != nil
}

// IsCreator reports whether peer created channel.
func (s *Service) IsCreator(channel string, peer domain.PeerID) bool {
	c, ok := s.book.Load().creators[Normalize(channel)]
	return ok && c == peer
}

// SetPassword changes channel's password. Only the creator may call it.
func (s *Service) SetPassword(channel, password string, self domain.PeerID) error {
	channel = Normalize(channel)
	if !s.isJoined(channel) {
		return ErrNotJoined
	}
	if !s.IsCreator(channel, self) {
		return fmt.Errorf("set password on %s: not the channel creator", channel)
	}
	key := crypto.DeriveChannelKey(password, channel)
	s.book.Update(func(cur book) book {
		next := cur.clone()
		if next.keys == nil {
			next.keys = map[string][]byte{}
		}
		if next.commitments == nil {
			next.commitments = map[string]string{}
		}
		next.keys[channel] = key
		next.commitments[channel] = crypto.KeyCommitment(key)
		return next
	})
	s.state.ProtectedChannels.Update(func(cur map[string]bool) map[string]bool {
		return conversation.WithKey(cur, channel, true)
	})
	s.persist()
	return nil
}

// TransferOwnership hands the creator role for channel to peer.
func (s *Service) TransferOwnership(channel string, from, to domain.PeerID) error {
	channel = Normalize(channel)
	if !s.IsCreator(channel, from) {
		return fmt.Errorf("transfer %s: not the channel creator", channel)
	}
	s.book.Update(func(cur book) book {
		next := cur.clone()
		next.creators[channel] = to
		return next
	})
	s.persist()
	return nil
}

// Save writes channel's timeline to the store.
func (s *Service) Save(channel string) (int, error) {
	channel = Normalize(channel)
	if !s.isJoined(channel) {
		return 0, ErrNotJoined
	}
	msgs := s.state.ChannelMessages.Load()[channel]
	if err := s.store.SaveArchive(channel, msgs); err != nil {
		return 0, fmt.Errorf("save %s: %w", channel, err)
	}
	return len(msgs), nil
}

// Seal encrypts content under channel's key.
func (s *Service) Seal(channel, content string) ([]byte, error) {
	key := s.book.Load().keys[Normalize(channel)]
	if key == nil {
		return nil, ErrNoKey
	}
	return crypto.SealChannel(key, []byte(content))
}

// Open decrypts a sealed channel payload.
func (s *Service) Open(channel string, sealed []byte) (string, error) {
	key := s.book.Load().keys[Normalize(channel)]
	if key == nil {
		return "", ErrNoKey
	}
	pt, err := crypto.OpenChannel(key, sealed)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", channel, err)
	}
	return string(pt), nil
}

// ClearAll forgets every channel and wipes persisted channel data.
func (s *Service) ClearAll() error {
	for _, k := range s.book.Load().keys {
		crypto.Wipe(k)
	}
	s.book.Store(book{})
	s.state.JoinedChannels.Store(nil)
	s.state.ProtectedChannels.Store(nil)
	s.state.CurrentChannel.Store("")
	s.state.ChannelMessages.Store(nil)
	s.state.UnreadChannels.Store(nil)
	return s.store.Wipe()
}

func (s *Service) isJoined(channel string) bool {
	return slices.Contains(s.state.JoinedChannels.Load(), channel)
}

func (s *Service) persist() {
	b := s.book.Load()
	var protected []string
	for ch, ok := range s.state.ProtectedChannels.Load() {
		if ok {
			protected = append(protected, ch)
		}
	}
	slices.Sort(protected)
	data := domain.ChannelData{
		Joined:         s.state.JoinedChannels.Load(),
		Protected:      protected,
		Creators:       b.creators,
		KeyCommitments: b.commitments,
	}
	if err := s.store.SaveChannels(data); err != nil {
		s.log.Warn("persist channels", zap.Error(err))
	}
}
