package store

import (
	"sync"

	"meshchat/internal/domain"
)

const idFilename = "identity.json.enc"

// ErrNoIdentity is returned when no identity has been saved yet.
var ErrNoIdentity = domain.ErrNoIdentity

// IdentityFileStore persists the local identity to disk.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

// SaveIdentity writes the encrypted identity to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return docAt(s.dir, idFilename).seal(passphrase, id)
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id domain.Identity
	ok, err := docAt(s.dir, idFilename).open(passphrase, &id)
	switch {
	case err != nil:
		return domain.Identity{}, err
	case !ok:
		return domain.Identity{}, ErrNoIdentity
	}
	return id, nil
}

// Wipe removes the identity file.
func (s *IdentityFileStore) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docAt(s.dir, idFilename).remove()
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
