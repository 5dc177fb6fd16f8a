// Package conversation holds the UI-facing chat state.
//
// State is a set of Value cells. Each cell is an atomic pointer to an
// immutable value: writers publish a fresh value with Store or Update and
// never mutate what they loaded, so readers on other goroutines never see a
// torn value. Subscribe delivers a coalesced change signal per cell.
//
// EventLoop drains the transport's tagged event channel on one goroutine
// and hands each event to a Handler, dropping duplicate message IDs.
package conversation
