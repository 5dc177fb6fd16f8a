package store

import (
	"sync"

	"meshchat/internal/domain"
)

const identityCacheFilename = "identity_cache.json.enc"

// IdentityCacheFileStore persists the fingerprint caches, sealed under the
// user's passphrase since they link session IDs to durable identities.
type IdentityCacheFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityCacheFileStore returns an IdentityCacheFileStore rooted at dir.
func NewIdentityCacheFileStore(dir string) *IdentityCacheFileStore {
	return &IdentityCacheFileStore{dir: dir}
}

// SaveIdentityCache seals and writes snap.
func (s *IdentityCacheFileStore) SaveIdentityCache(passphrase string, snap domain.IdentityCacheSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return docAt(s.dir, identityCacheFilename).seal(passphrase, snap)
}

// LoadIdentityCache opens the saved snapshot; ok is false when none exists.
func (s *IdentityCacheFileStore) LoadIdentityCache(passphrase string) (domain.IdentityCacheSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap domain.IdentityCacheSnapshot
	ok, err := docAt(s.dir, identityCacheFilename).open(passphrase, &snap)
	if !ok || err != nil {
		return domain.IdentityCacheSnapshot{}, false, err
	}
	return snap, true, nil
}

// Wipe removes the cache file.
func (s *IdentityCacheFileStore) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docAt(s.dir, identityCacheFilename).remove()
}

// Compile-time assertion that IdentityCacheFileStore implements domain.IdentityCacheStore.
var _ domain.IdentityCacheStore = (*IdentityCacheFileStore)(nil)
