package identitycache

import (
	"maps"
	"strings"
	"sync/atomic"

	"meshchat/internal/domain"
)

type tables struct {
	peerFingerprints  map[domain.PeerID]domain.Fingerprint
	keyFingerprints   map[string]domain.Fingerprint
	peerMeshKeys      map[domain.PeerID]string
	nicknames         map[domain.Fingerprint]string
	publicKeyMeshKeys map[string]string
}

func emptyTables() *tables {
	return &tables{
		peerFingerprints:  map[domain.PeerID]domain.Fingerprint{},
		keyFingerprints:   map[string]domain.Fingerprint{},
		peerMeshKeys:      map[domain.PeerID]string{},
		nicknames:         map[domain.Fingerprint]string{},
		publicKeyMeshKeys: map[string]string{},
	}
}

func (t *tables) clone() *tables {
	return &tables{
		peerFingerprints:  maps.Clone(t.peerFingerprints),
		keyFingerprints:   maps.Clone(t.keyFingerprints),
		peerMeshKeys:      maps.Clone(t.peerMeshKeys),
		nicknames:         maps.Clone(t.nicknames),
		publicKeyMeshKeys: maps.Clone(t.publicKeyMeshKeys),
	}
}

// Store is a copy-on-write set of identity caches. Reads never block;
// writes replace the whole table set atomically.
type Store struct {
	cur atomic.Pointer[tables]
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.cur.Store(emptyTables())
	return s
}

// Entry is one batch of cache facts learned about a peer.
type Entry struct {
	PeerID      domain.PeerID
	Fingerprint domain.Fingerprint
	MeshKey     string
	Nickname    string
}

// Apply merges entries in one atomic replacement. Empty fields are skipped.
func (s *Store) Apply(entries ...Entry) {
	s.update(func(t *tables) {
		for _, e := range entries {
			key := strings.ToLower(e.MeshKey)
			if e.Fingerprint != "" && e.PeerID != "" {
				t.peerFingerprints[e.PeerID] = e.Fingerprint
			}
			if e.Fingerprint != "" && key != "" {
				t.keyFingerprints[key] = e.Fingerprint
			}
			if key != "" && e.PeerID != "" {
				t.peerMeshKeys[e.PeerID] = key
			}
			if e.Fingerprint != "" && e.Nickname != "" {
				t.nicknames[e.Fingerprint] = e.Nickname
			}
		}
	})
}

// CachePublicKeyMeshKey records that a broadcast public key belongs to the
// holder of a mesh static key.
func (s *Store) CachePublicKeyMeshKey(pubHex, meshKeyHex string) {
	if pubHex == "" || meshKeyHex == "" {
		return
	}
	s.update(func(t *tables) {
		t.publicKeyMeshKeys[strings.ToLower(pubHex)] = strings.ToLower(meshKeyHex)
	})
}

// FingerprintForPeer returns the cached fingerprint of a peer.
func (s *Store) FingerprintForPeer(id domain.PeerID) (domain.Fingerprint, bool) {
	fp, ok := s.cur.Load().peerFingerprints[id]
	return fp, ok
}

// FingerprintForMeshKey returns the fingerprint cached for a mesh key.
func (s *Store) FingerprintForMeshKey(keyHex string) (domain.Fingerprint, bool) {
	fp, ok := s.cur.Load().keyFingerprints[strings.ToLower(keyHex)]
	return fp, ok
}

// MeshKeyForPeer returns the mesh static key a peer last advertised.
func (s *Store) MeshKeyForPeer(id domain.PeerID) (string, bool) {
	k, ok := s.cur.Load().peerMeshKeys[id]
	return k, ok
}

// MeshKeyForPublicKey returns the mesh key linked to a broadcast public key.
func (s *Store) MeshKeyForPublicKey(pubHex string) (string, bool) {
	k, ok := s.cur.Load().publicKeyMeshKeys[strings.ToLower(pubHex)]
	return k, ok
}

// NicknameForFingerprint returns the last nickname seen for a fingerprint.
func (s *Store) NicknameForFingerprint(fp domain.Fingerprint) (string, bool) {
	n, ok := s.cur.Load().nicknames[fp]
	return n, ok
}

// FingerprintForNickname searches the nickname cache. Nicknames are not
// unique, so the first match in fingerprint order wins.
func (s *Store) FingerprintForNickname(nickname string) (domain.Fingerprint, bool) {
	var (
		best  domain.Fingerprint
		found bool
	)
	for fp, n := range s.cur.Load().nicknames {
		if n == nickname && (!found || fp < best) {
			best, found = fp, true
		}
	}
	return best, found
}

// Snapshot returns a serialisable copy.
func (s *Store) Snapshot() domain.IdentityCacheSnapshot {
	t := s.cur.Load().clone()
	return domain.IdentityCacheSnapshot{
		PeerFingerprints:  t.peerFingerprints,
		KeyFingerprints:   t.keyFingerprints,
		PeerMeshKeys:      t.peerMeshKeys,
		Nicknames:         t.nicknames,
		PublicKeyMeshKeys: t.publicKeyMeshKeys,
	}
}

// Restore merges a snapshot loaded from disk.
func (s *Store) Restore(snap domain.IdentityCacheSnapshot) {
	s.update(func(t *tables) {
		maps.Copy(t.peerFingerprints, snap.PeerFingerprints)
		maps.Copy(t.keyFingerprints, snap.KeyFingerprints)
		maps.Copy(t.peerMeshKeys, snap.PeerMeshKeys)
		maps.Copy(t.nicknames, snap.Nicknames)
		maps.Copy(t.publicKeyMeshKeys, snap.PublicKeyMeshKeys)
	})
}

// Wipe clears every cache.
func (s *Store) Wipe() {
	s.cur.Store(emptyTables())
}

func (s *Store) update(fn func(*tables)) {
	for {
		old := s.cur.Load()
		next := old.clone()
		fn(next)
		if s.cur.CompareAndSwap(old, next) {
			return
		}
	}
}
