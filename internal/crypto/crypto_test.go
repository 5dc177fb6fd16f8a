package crypto_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"meshchat/internal/crypto"
)

func TestFingerprint_FullSHA256(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	fp := crypto.Fingerprint(pub[:])
	if len(fp) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(fp))
	}
	again, err := crypto.FingerprintHex(hex.EncodeToString(pub[:]))
	if err != nil {
		t.Fatalf("FingerprintHex: %v", err)
	}
	if again != fp {
		t.Fatalf("hex fingerprint mismatch")
	}
	if _, err := crypto.FingerprintHex("zz"); err == nil {
		t.Fatal("expected error for bad hex")
	}
}

func TestChannelSealOpen(t *testing.T) {
	key := crypto.DeriveChannelKey("mypw", "#testroom")
	if len(key) != crypto.ChannelKeyBytes {
		t.Fatalf("key length = %d", len(key))
	}
	if !bytes.Equal(key, crypto.DeriveChannelKey("mypw", "#testroom")) {
		t.Fatal("derivation is not deterministic")
	}
	if crypto.KeyCommitment(key) == crypto.KeyCommitment(crypto.DeriveChannelKey("other", "#testroom")) {
		t.Fatal("different passwords share a commitment")
	}

	sealed, err := crypto.SealChannel(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	pt, err := crypto.OpenChannel(key, sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("open = %q", pt)
	}
	if _, err := crypto.OpenChannel(crypto.DeriveChannelKey("wrong", "#testroom"), sealed); err == nil {
		t.Fatal("expected failure with wrong key")
	}
	if _, err := crypto.OpenChannel(key, []byte{1, 2}); err != crypto.ErrChannelCiphertext {
		t.Fatalf("short input: %v", err)
	}
}

func TestDeriveGeoIdentity(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)

	a, err := crypto.DeriveGeoIdentity(seed, "u4PRUY")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := crypto.DeriveGeoIdentity(seed, "u4pruy")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a != b {
		t.Fatal("geohash case changed the identity")
	}
	if len(a.PublicKeyHex) != 64 {
		t.Fatalf("public key length = %d", len(a.PublicKeyHex))
	}
	c, err := crypto.DeriveGeoIdentity(seed, "9q8yy")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if c.PublicKeyHex == a.PublicKeyHex {
		t.Fatal("identities in different geohashes collide")
	}
	if _, err := crypto.DeriveGeoIdentity(nil, "9q8yy"); err != crypto.ErrNoGeoSeed {
		t.Fatalf("empty seed: %v", err)
	}
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	crypto.Wipe(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Fatalf("wipe left %v", b)
	}
}
