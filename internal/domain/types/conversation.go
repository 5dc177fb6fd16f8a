package types

import "strings"

const (
	// PublicIdentityPrefix marks a key in the broadcast public-key namespace.
	PublicIdentityPrefix = "nostr:"
	// AliasPrefix marks a bare pseudonymous conversation alias.
	AliasPrefix = "nostr_"

	aliasHexLen = 16
)

// KeyKind tells which namespace a ConversationKey belongs to.
type KeyKind uint8

const (
	KeyPeer KeyKind = iota
	KeyPublicIdentity
	KeyAlias
)

func (k KeyKind) String() string {
	switch k {
	case KeyPeer:
		return "peer"
	case KeyPublicIdentity:
		return "public-identity"
	case KeyAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// ConversationKey is the only identifier used to address a conversation.
// It is comparable and safe to use as a map key.
type ConversationKey struct {
	kind  KeyKind
	value string
}

// PeerKey addresses a conversation with a mesh peer.
func PeerKey(id PeerID) ConversationKey {
	return ConversationKey{kind: KeyPeer, value: string(id)}
}

// PublicIdentityKey addresses a conversation by hex public key.
func PublicIdentityKey(pubHex string) ConversationKey {
	return ConversationKey{kind: KeyPublicIdentity, value: strings.ToLower(pubHex)}
}

// AliasKey addresses a conversation by pseudonymous alias ("nostr_<hex>").
func AliasKey(alias string) ConversationKey {
	if !strings.HasPrefix(alias, AliasPrefix) {
		alias = AliasPrefix + alias
	}
	return ConversationKey{kind: KeyAlias, value: strings.ToLower(alias)}
}

// AliasForPublicKey returns the short alias announced for a public key.
func AliasForPublicKey(pubHex string) string {
	pubHex = strings.ToLower(pubHex)
	if len(pubHex) > aliasHexLen {
		pubHex = pubHex[:aliasHexLen]
	}
	return AliasPrefix + pubHex
}

// ParseConversationKey classifies a raw identifier by prefix. Anything
// without a known prefix is a peer key.
func ParseConversationKey(raw string) ConversationKey {
	switch {
	case strings.HasPrefix(raw, PublicIdentityPrefix):
		return PublicIdentityKey(strings.TrimPrefix(raw, PublicIdentityPrefix))
	case strings.HasPrefix(raw, AliasPrefix):
		return AliasKey(raw)
	default:
		return PeerKey(PeerID(raw))
	}
}

// Kind returns the key's namespace.
func (k ConversationKey) Kind() KeyKind { return k.kind }

// IsZero reports whether the key is unset.
func (k ConversationKey) IsZero() bool { return k.value == "" }

// PeerID returns the mesh peer for a peer key.
func (k ConversationKey) PeerID() (PeerID, bool) {
	if k.kind != KeyPeer || k.value == "" {
		return "", false
	}
	return PeerID(k.value), true
}

// PublicKeyHex returns the hex public key for a public identity key.
func (k ConversationKey) PublicKeyHex() (string, bool) {
	if k.kind != KeyPublicIdentity || k.value == "" {
		return "", false
	}
	return k.value, true
}

// Alias returns the alias string for an alias key.
func (k ConversationKey) Alias() (string, bool) {
	if k.kind != KeyAlias || k.value == "" {
		return "", false
	}
	return k.value, true
}

// String renders the key in the form accepted by ParseConversationKey.
func (k ConversationKey) String() string {
	if k.kind == KeyPublicIdentity {
		return PublicIdentityPrefix + k.value
	}
	return k.value
}
