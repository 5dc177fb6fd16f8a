package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// ChannelKeyBytes is the size of a derived channel key.
	ChannelKeyBytes = chacha20poly1305.KeySize
	channelKDFIters = 100_000
)

// ErrChannelCiphertext is returned for payloads too short to hold a nonce.
var ErrChannelCiphertext = errors.New("channel ciphertext too short")

// DeriveChannelKey derives a channel key from its password. The channel
// name is the salt so every member derives the same key.
func DeriveChannelKey(password, channel string) []byte {
	return pbkdf2.Key([]byte(password), []byte(channel), channelKDFIters, ChannelKeyBytes, sha256.New)
}

// KeyCommitment is a public value that lets a joiner check a password
// without revealing the key.
func KeyCommitment(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// SealChannel encrypts plaintext under key. Output is nonce||ciphertext.
func SealChannel(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("channel aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenChannel reverses SealChannel.
func OpenChannel(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("channel aead: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrChannelCiphertext
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}
