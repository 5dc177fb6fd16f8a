package types

// PeerID identifies a peer on the mesh for the lifetime of one session.
type PeerID string

// String returns the string form of the peer identifier.
func (id PeerID) String() string { return string(id) }

// Fingerprint is the SHA-256 of a peer's mesh static public key, hex encoded.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Short returns the first eight characters for display.
func (f Fingerprint) Short() string {
	if len(f) <= 8 {
		return string(f)
	}
	return string(f[:8])
}

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a byte slice.
func (k X25519Public) Slice() []byte { return k[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a byte slice.
func (k X25519Private) Slice() []byte { return k[:] }
