// Package commands defines the meshchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create the local identity and a default config file
//   - fingerprint  Print the identity fingerprint
//   - chat         Run the interactive client over a simulated mesh
//   - reset        Wipe all local data and start over with a new identity
//
// # Implementation
//
// The root command loads the config file and builds the logger before any
// subcommand runs. chat serves Prometheus metrics when metrics.addr is set.
package commands
