// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the X25519 mesh static key pair
// and the seed for per-geohash identities, and persists them via the
// domain.IdentityStore. Reset replaces the identity with a fresh one.
package identity
