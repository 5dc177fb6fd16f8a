// Package loopback is an in-memory transport with simulated peers.
//
// It implements the mesh transport, the broadcast transport and the
// geohash DM subscription capability without any radio: peers are added
// and removed explicitly, handshakes complete after a configurable delay
// on an injectable clock, and every outbound send is recorded. The CLI
// uses it to drive the engine end to end; tests use it as a scriptable
// transport, including injected per-peer query failures.
package loopback
