// Package app wires application dependencies for the CLI.
//
// It builds the stores, chat services, reconciler and command dispatcher
// from Config and owns their lifecycle. Everything bound to one transport
// instance is rebuilt when the identity is reset.
package app
