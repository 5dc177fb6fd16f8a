package alias

import (
	"strings"

	"meshchat/internal/domain"
	"meshchat/internal/services/identitycache"
)

// Lookups are the capabilities Resolve consults. A nil lookup behaves as
// one that never matches.
type Lookups struct {
	MeshKeyForPeer      func(domain.PeerID) (string, bool)
	MeshHasPeer         func(domain.PeerID) bool
	PublicKeyForAlias   func(alias string) (string, bool)
	MeshKeyForPublicKey func(pubHex string) (string, bool)
}

// Resolve returns the canonical key for key given the connected peers.
func Resolve(key domain.ConversationKey, connected []domain.PeerID, l Lookups) domain.ConversationKey {
	var pub string
	switch key.Kind() {
	case domain.KeyAlias:
		a, _ := key.Alias()
		if l.PublicKeyForAlias == nil {
			return key
		}
		p, ok := l.PublicKeyForAlias(a)
		if !ok || p == "" {
			return key
		}
		pub = p
	case domain.KeyPublicIdentity:
		pub, _ = key.PublicKeyHex()
	default:
		return key
	}

	if l.MeshKeyForPublicKey == nil || l.MeshKeyForPeer == nil || l.MeshHasPeer == nil {
		return key
	}
	meshKey, ok := l.MeshKeyForPublicKey(pub)
	if !ok || meshKey == "" {
		return key
	}
	for _, peer := range connected {
		k, ok := l.MeshKeyForPeer(peer)
		if !ok || !strings.EqualFold(k, meshKey) {
			continue
		}
		if l.MeshHasPeer(peer) {
			return domain.PeerKey(peer)
		}
	}
	return key
}

// CacheLookups builds Lookups backed by the identity cache and registry.
// live reports whether a peer is currently reachable on the mesh.
func CacheLookups(cache *identitycache.Store, reg *Registry, live func(domain.PeerID) bool) Lookups {
	return Lookups{
		MeshKeyForPeer:      cache.MeshKeyForPeer,
		MeshHasPeer:         live,
		PublicKeyForAlias:   reg.Lookup,
		MeshKeyForPublicKey: cache.MeshKeyForPublicKey,
	}
}
