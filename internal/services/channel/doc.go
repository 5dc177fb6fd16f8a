// Package channel manages mesh channels: joining and leaving, the current
// channel, creator tracking, password-derived channel keys and saved
// transcripts.
package channel
