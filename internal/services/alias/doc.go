// Package alias canonicalizes conversation keys across the mesh and
// broadcast identity namespaces.
//
// Resolve is pure: a pseudonymous key whose announced mesh key belongs to a
// peer that is live on the mesh resolves to that peer, anything else is
// returned unchanged. Registry records the alias → public key
// announcements the broadcast side observes.
package alias
