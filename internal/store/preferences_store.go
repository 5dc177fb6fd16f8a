package store

import (
	"sync"

	"meshchat/internal/domain"
)

const prefsFilename = "preferences.json"

type preferences struct {
	Nickname  string               `json:"nickname,omitempty"`
	Favorites []domain.Fingerprint `json:"favorites,omitempty"`
	Blocked   []domain.Fingerprint `json:"blocked,omitempty"`
}

// PreferencesFileStore persists the nickname, favorites and blocked users.
type PreferencesFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPreferencesFileStore returns a PreferencesFileStore rooted at dir.
func NewPreferencesFileStore(dir string) *PreferencesFileStore {
	return &PreferencesFileStore{dir: dir}
}

// LoadNickname returns the saved nickname.
func (s *PreferencesFileStore) LoadNickname() (string, bool, error) {
	p, err := s.load()
	if err != nil {
		return "", false, err
	}
	return p.Nickname, p.Nickname != "", nil
}

// SaveNickname stores nickname.
func (s *PreferencesFileStore) SaveNickname(nickname string) error {
	return s.update(func(p *preferences) { p.Nickname = nickname })
}

// LoadFavorites returns the favorite fingerprints.
func (s *PreferencesFileStore) LoadFavorites() ([]domain.Fingerprint, error) {
	p, err := s.load()
	return p.Favorites, err
}

// SaveFavorites replaces the favorite set.
func (s *PreferencesFileStore) SaveFavorites(favs []domain.Fingerprint) error {
	return s.update(func(p *preferences) { p.Favorites = append([]domain.Fingerprint(nil), favs...) })
}

// LoadBlocked returns the blocked fingerprints.
func (s *PreferencesFileStore) LoadBlocked() ([]domain.Fingerprint, error) {
	p, err := s.load()
	return p.Blocked, err
}

// SaveBlocked replaces the blocked set.
func (s *PreferencesFileStore) SaveBlocked(blocked []domain.Fingerprint) error {
	return s.update(func(p *preferences) { p.Blocked = append([]domain.Fingerprint(nil), blocked...) })
}

// Wipe removes all preferences.
func (s *PreferencesFileStore) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docAt(s.dir, prefsFilename).remove()
}

func (s *PreferencesFileStore) load() (preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p preferences
	_, err := docAt(s.dir, prefsFilename).decode(&p)
	return p, err
}

func (s *PreferencesFileStore) update(fn func(*preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := docAt(s.dir, prefsFilename)
	var p preferences
	if _, err := doc.decode(&p); err != nil {
		return err
	}
	fn(&p)
	return doc.encode(p)
}

// Compile-time assertion that PreferencesFileStore implements domain.PreferencesStore.
var _ domain.PreferencesStore = (*PreferencesFileStore)(nil)
