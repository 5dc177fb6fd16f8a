package conversation

import (
	"meshchat/internal/domain"
)

// State is the chat state read by the UI. Slices and maps held in cells
// are treated as immutable; use the copy helpers to derive new values.
type State struct {
	Nickname       Value[string]
	ConnectedPeers Value[[]domain.PeerID]
	Peers          Value[*domain.PeerSet]

	Location             Value[domain.LocationChannel]
	CurrentChannel       Value[string]
	SelectedPrivatePeer  Value[domain.ConversationKey]
	PrivateChatSheetPeer Value[domain.ConversationKey]

	JoinedChannels    Value[[]string]
	ProtectedChannels Value[map[string]bool]

	Messages        Value[[]domain.Message]
	ChannelMessages Value[map[string][]domain.Message]
	PrivateChats    Value[map[domain.ConversationKey][]domain.Message]
	UnreadPrivate   Value[map[domain.ConversationKey]bool]
	UnreadChannels  Value[map[string]int]

	CommandSuggestions Value[[]domain.CommandSuggestion]
	MentionSuggestions Value[[]string]
	GeohashPeople      Value[[]domain.GeoPerson]

	Favorites Value[map[domain.Fingerprint]bool]
	Blocked   Value[map[domain.Fingerprint]bool]
	SayAll    Value[bool]
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Reader is the read-only surface handed to the UI layer.
type Reader interface {
	PeerSessionStates() map[domain.PeerID]domain.SessionState
	PeerFingerprints() map[domain.PeerID]domain.Fingerprint
	PeerNicknames() map[domain.PeerID]string
	PeerRSSI() map[domain.PeerID]int
	PeerDirect() map[domain.PeerID]bool
	CommandSuggestionList() []domain.CommandSuggestion
	MentionSuggestionList() []string
	IsConnected() bool
}

var _ Reader = (*State)(nil)

// PeerSessionStates returns the published peer → session state map.
func (s *State) PeerSessionStates() map[domain.PeerID]domain.SessionState {
	return s.Peers.Load().SessionStates()
}

// PeerFingerprints returns the published peer → fingerprint map.
func (s *State) PeerFingerprints() map[domain.PeerID]domain.Fingerprint {
	return s.Peers.Load().Fingerprints()
}

// PeerNicknames returns the published peer → nickname map.
func (s *State) PeerNicknames() map[domain.PeerID]string {
	return s.Peers.Load().Nicknames()
}

// PeerRSSI returns the published peer → RSSI map.
func (s *State) PeerRSSI() map[domain.PeerID]int {
	return s.Peers.Load().RSSI()
}

// PeerDirect returns the published peer → direct flag map.
func (s *State) PeerDirect() map[domain.PeerID]bool {
	return s.Peers.Load().Direct()
}

// CommandSuggestionList returns the current command suggestions.
func (s *State) CommandSuggestionList() []domain.CommandSuggestion {
	return s.CommandSuggestions.Load()
}

// MentionSuggestionList returns the current mention suggestions.
func (s *State) MentionSuggestionList() []string {
	return s.MentionSuggestions.Load()
}

// IsConnected reports whether any peer is connected.
func (s *State) IsConnected() bool {
	return len(s.ConnectedPeers.Load()) > 0
}

// InChannel reports whether a mesh channel is selected.
func (s *State) InChannel() bool {
	return s.CurrentChannel.Load() != ""
}

// Reset clears everything except the nickname.
func (s *State) Reset() {
	s.ConnectedPeers.Store(nil)
	s.Peers.Store(nil)
	s.Location.Store(domain.MeshChannel())
	s.CurrentChannel.Store("")
	s.SelectedPrivatePeer.Store(domain.ConversationKey{})
	s.PrivateChatSheetPeer.Store(domain.ConversationKey{})
	s.JoinedChannels.Store(nil)
	s.ProtectedChannels.Store(nil)
	s.Messages.Store(nil)
	s.ChannelMessages.Store(nil)
	s.PrivateChats.Store(nil)
	s.UnreadPrivate.Store(nil)
	s.UnreadChannels.Store(nil)
	s.CommandSuggestions.Store(nil)
	s.MentionSuggestions.Store(nil)
	s.GeohashPeople.Store(nil)
	s.Favorites.Store(nil)
	s.Blocked.Store(nil)
	s.SayAll.Store(false)
}
