// Package identitycache holds the long-lived identity caches that map
// session-scoped peer IDs and public keys to durable fingerprints and
// fingerprints to nicknames.
//
// The caches are additive: entries are added or overwritten (last write
// wins) and only an explicit Wipe, used by identity reset, removes them.
// One Store is created by the app and passed by reference to every consumer.
package identitycache
