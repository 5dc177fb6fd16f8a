package alias

import (
	"maps"
	"strings"
	"sync/atomic"

	"meshchat/internal/domain"
)

// Registry maps pseudonymous aliases to the public keys that announced them.
type Registry struct {
	m atomic.Pointer[map[string]string]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]string{}
	r.m.Store(&empty)
	return r
}

// Register records pubHex under its alias and returns the alias.
func (r *Registry) Register(pubHex string) string {
	pubHex = strings.ToLower(pubHex)
	a := domain.AliasForPublicKey(pubHex)
	for {
		old := r.m.Load()
		if (*old)[a] == pubHex {
			return a
		}
		next := maps.Clone(*old)
		next[a] = pubHex
		if r.m.CompareAndSwap(old, &next) {
			return a
		}
	}
}

// Lookup returns the public key announced for alias.
func (r *Registry) Lookup(alias string) (string, bool) {
	p, ok := (*r.m.Load())[strings.ToLower(alias)]
	return p, ok
}

// Clear forgets every alias.
func (r *Registry) Clear() {
	empty := map[string]string{}
	r.m.Store(&empty)
}
