// Package private manages one-to-one conversations: selecting a chat,
// sending into it, and the blocked and favorite sets keyed by fingerprint.
//
// Pseudonymous conversations started from a location channel need a
// direct-message subscription on the broadcast side; that is requested
// through the domain.GeoSubscriptions capability.
package private
