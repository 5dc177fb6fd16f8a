package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// sealedVersion is written into every envelope and bound as associated data.
const sealedVersion = 2

// ErrWrongPassphrase is returned when a sealed file cannot be opened with
// the given passphrase, including when it has been tampered with.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted file")

type kdf struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

var defaultKDF = kdf{N: 1 << 15, R: 8, P: 1}

func (k kdf) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, k.N, k.R, k.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}

// envelope is the on-disk form of a passphrase-sealed JSON document.
type envelope struct {
	Version int    `json:"version"`
	KDF     kdf    `json:"kdf"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

func (e envelope) ad() []byte {
	return append([]byte{byte(e.Version)}, e.Salt...)
}

// seal encrypts v under passphrase and writes it to d.
func (d document) seal(passphrase string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := envelope{
		Version: sealedVersion,
		KDF:     defaultKDF,
		Salt:    make([]byte, 16),
		Nonce:   make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(e.Salt); err != nil {
		return err
	}
	if _, err := rand.Read(e.Nonce); err != nil {
		return err
	}
	aead, err := e.KDF.aead(passphrase, e.Salt)
	if err != nil {
		return err
	}
	e.Data = aead.Seal(nil, e.Nonce, raw, e.ad())
	return d.encode(e)
}

// open decrypts d into out; ok is false when d does not exist.
func (d document) open(passphrase string, out any) (bool, error) {
	var e envelope
	ok, err := d.decode(&e)
	if !ok || err != nil {
		return ok, err
	}
	if e.Version != sealedVersion {
		return true, fmt.Errorf("%s: unsupported envelope version %d", d, e.Version)
	}
	if len(e.Nonce) != chacha20poly1305.NonceSizeX {
		return true, ErrWrongPassphrase
	}
	aead, err := e.KDF.aead(passphrase, e.Salt)
	if err != nil {
		return true, fmt.Errorf("%s: %w", d, err)
	}
	raw, err := aead.Open(nil, e.Nonce, e.Data, e.ad())
	if err != nil {
		return true, ErrWrongPassphrase
	}
	return true, json.Unmarshal(raw, out)
}
