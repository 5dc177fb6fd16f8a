// Package crypto exposes the small set of primitives meshchat needs.
//
// Contents
//
//   - X25519 key generation with clamping (GenerateX25519), used for mesh
//     static identities
//   - Full SHA-256 fingerprints of mesh static keys (Fingerprint)
//   - Password-derived channel keys and sealed channel payloads
//     (DeriveChannelKey, SealChannel, OpenChannel, KeyCommitment)
//   - Per-geohash pseudonymous identities derived from a device seed
//     (DeriveGeoIdentity)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Callers should treat returned secrets as sensitive and rely on Wipe when
// practical to reduce lifetime in memory.
package crypto
