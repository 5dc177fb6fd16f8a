// Package verification runs the identity challenge exchange with peers.
//
// Begin records a random challenge for a peer and sends it when a session
// exists. Challenges that could not be delivered stay pending and
// ResendPending re-issues them; it is wired as a hook on entry into the
// Established session state. A response echoing the challenge marks the
// peer's fingerprint verified.
package verification
