package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"unicode"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
	// geoSeedBytes is the size of the seed geohash identities derive from.
	geoSeedBytes = 32
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - X25519 static key pair, the mesh identity peers fingerprint.
//   - A random seed from which per-geohash broadcast identities derive.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus the fingerprint of the static public key.
func (s *Service) GenerateIdentity(
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}

	staticPriv, staticPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	seed := make([]byte, geoSeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		StaticPub:  staticPub,
		StaticPriv: staticPriv,
		GeoSeed:    seed,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.Fingerprint(id.StaticPub.Slice()), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// LoadOrGenerate loads the identity, creating one on first run. The bool
// reports whether it was created.
func (s *Service) LoadOrGenerate(passphrase string) (domain.Identity, bool, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, domain.ErrNoIdentity) {
		return domain.Identity{}, false, err
	}
	id, _, err = s.GenerateIdentity(passphrase)
	if err != nil {
		return domain.Identity{}, false, err
	}
	return id, true, nil
}

// FingerprintIdentity returns the fingerprint of the local static public key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.StaticPub.Slice()), nil
}

// Reset discards the stored identity and generates a new one.
func (s *Service) Reset(passphrase string) (domain.Identity, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, ErrWeakPassphrase
	}
	if err := s.store.Wipe(); err != nil {
		return domain.Identity{}, fmt.Errorf("wipe identity: %w", err)
	}
	id, _, err := s.GenerateIdentity(passphrase)
	return id, err
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
