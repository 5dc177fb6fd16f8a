// Package session routes private messages to mesh peers.
//
// A message for a peer with an established session is sent at once.
// Otherwise it waits in a per-peer outbox while a handshake is initiated,
// and OnSessionEstablished, called when the peer's session state enters
// Established, flushes it. Conversations that do not resolve to a mesh
// peer are handed to the broadcast side.
package session
