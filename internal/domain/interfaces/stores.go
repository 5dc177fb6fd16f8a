package interfaces

import domaintypes "meshchat/internal/domain/types"

// IdentityStore persists the sealed local identity.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	Wipe() error
}

// PreferencesStore holds user preferences. Values are loaded once at
// startup and written through explicit calls.
type PreferencesStore interface {
	LoadNickname() (string, bool, error)
	SaveNickname(nickname string) error
	LoadFavorites() ([]domaintypes.Fingerprint, error)
	SaveFavorites(favs []domaintypes.Fingerprint) error
	LoadBlocked() ([]domaintypes.Fingerprint, error)
	SaveBlocked(blocked []domaintypes.Fingerprint) error
	Wipe() error
}

// ChannelStore persists channel bookkeeping and saved transcripts.
type ChannelStore interface {
	LoadChannels() (domaintypes.ChannelData, error)
	SaveChannels(data domaintypes.ChannelData) error
	SaveArchive(channel string, msgs []domaintypes.Message) error
	LoadArchive(channel string) ([]domaintypes.Message, bool, error)
	Wipe() error
}

// IdentityCacheStore persists the fingerprint caches between runs.
type IdentityCacheStore interface {
	SaveIdentityCache(passphrase string, snap domaintypes.IdentityCacheSnapshot) error
	LoadIdentityCache(passphrase string) (domaintypes.IdentityCacheSnapshot, bool, error)
	Wipe() error
}
