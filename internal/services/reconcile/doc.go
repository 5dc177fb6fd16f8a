// Package reconcile polls the transport for per-peer state and publishes
// it as one immutable PeerSet per tick.
//
// Each tick queries every connected peer concurrently. A failed query keeps
// that field's previous value and never affects other peers. Peers that
// entered the Established session state since the previous tick trigger the
// configured hooks exactly once per entry. Identity caches are updated
// additively from every snapshot.
package reconcile
