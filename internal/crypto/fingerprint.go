package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"meshchat/internal/domain"
)

// Fingerprint returns the SHA-256 of a mesh static public key, hex encoded.
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}

// FingerprintHex fingerprints a hex-encoded public key.
func FingerprintHex(pubHex string) (domain.Fingerprint, error) {
	b, err := hex.DecodeString(pubHex)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("decode public key: empty")
	}
	return Fingerprint(b), nil
}
