// Package command parses and runs slash commands typed into the chat input
// and drives command and mention autocomplete.
//
// Handlers never block the caller. Work that waits, such as a sound cue
// after a spoken line or an ASCII art fetch, runs on a tracked goroutine
// that Close cancels and waits for.
package command
