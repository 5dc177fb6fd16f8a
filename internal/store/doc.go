// Package store provides file-based persistence for meshchat.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking. Stored files live under the configured home directory.
//
// The package includes stores for:
//   - The sealed local identity (IdentityFileStore)
//   - Nickname, favorites and blocked users (PreferencesFileStore)
//   - Joined channels, creators and saved transcripts (ChannelFileStore)
//   - The sealed fingerprint caches (IdentityCacheFileStore)
//
// Writes go to a temp file that is renamed over the target.
package store
