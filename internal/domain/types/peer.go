package types

import "time"

// PeerSnapshot is one peer's transport-reported state at a poll tick.
type PeerSnapshot struct {
	PeerID       PeerID
	Fingerprint  Fingerprint
	Nickname     string
	RSSI         int
	IsDirect     bool
	SessionState SessionState
	// MeshKey is the hex static public key, empty when unknown.
	MeshKey string
}

// PeerSet is an immutable set of snapshots published by one tick.
// Callers must not modify it after publication.
type PeerSet struct {
	Peers   map[PeerID]PeerSnapshot
	Order   []PeerID
	TakenAt time.Time
}

// Get returns the snapshot for id.
func (s *PeerSet) Get(id PeerID) (PeerSnapshot, bool) {
	if s == nil {
		return PeerSnapshot{}, false
	}
	p, ok := s.Peers[id]
	return p, ok
}

// Len returns the number of peers in the set.
func (s *PeerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Order)
}

// SessionStates returns peer → session state.
func (s *PeerSet) SessionStates() map[PeerID]SessionState {
	out := make(map[PeerID]SessionState, s.Len())
	if s == nil {
		return out
	}
	for id, p := range s.Peers {
		out[id] = p.SessionState
	}
	return out
}

// Fingerprints returns peer → fingerprint for peers with a known fingerprint.
func (s *PeerSet) Fingerprints() map[PeerID]Fingerprint {
	out := make(map[PeerID]Fingerprint, s.Len())
	if s == nil {
		return out
	}
	for id, p := range s.Peers {
		if p.Fingerprint != "" {
			out[id] = p.Fingerprint
		}
	}
	return out
}

// Nicknames returns peer → nickname for peers with a known nickname.
func (s *PeerSet) Nicknames() map[PeerID]string {
	out := make(map[PeerID]string, s.Len())
	if s == nil {
		return out
	}
	for id, p := range s.Peers {
		if p.Nickname != "" {
			out[id] = p.Nickname
		}
	}
	return out
}

// RSSI returns peer → signal strength.
func (s *PeerSet) RSSI() map[PeerID]int {
	out := make(map[PeerID]int, s.Len())
	if s == nil {
		return out
	}
	for id, p := range s.Peers {
		out[id] = p.RSSI
	}
	return out
}

// Direct returns peer → direct-connection flag.
func (s *PeerSet) Direct() map[PeerID]bool {
	out := make(map[PeerID]bool, s.Len())
	if s == nil {
		return out
	}
	for id, p := range s.Peers {
		out[id] = p.IsDirect
	}
	return out
}
