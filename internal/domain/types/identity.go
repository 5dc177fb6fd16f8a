package types

// Identity is the local device identity. The static key is the mesh
// identity; GeoSeed derives per-geohash broadcast identities.
type Identity struct {
	StaticPub  X25519Public  `json:"static_pub"`
	StaticPriv X25519Private `json:"static_priv"`
	GeoSeed    []byte        `json:"geo_seed"`
}

// IdentityCacheSnapshot is the serialisable form of the identity caches.
type IdentityCacheSnapshot struct {
	PeerFingerprints  map[PeerID]Fingerprint `json:"peer_fingerprints"`
	KeyFingerprints   map[string]Fingerprint `json:"key_fingerprints"`
	PeerMeshKeys      map[PeerID]string      `json:"peer_mesh_keys"`
	Nicknames         map[Fingerprint]string `json:"nicknames"`
	PublicKeyMeshKeys map[string]string      `json:"public_key_mesh_keys"`
}
