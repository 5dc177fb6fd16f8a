package app

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"meshchat/internal/domain"
	"meshchat/internal/services/command"
)

// Option customises an App.
type Option func(*options)

type options struct {
	clock    clock.Clock
	speaker  domain.Speaker
	sounds   domain.SoundPlayer
	figlet   domain.FigletClient
	registry prometheus.Registerer
	pick     command.Picker
}

// WithClock sets the clock used for timestamps, polling and timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSpeaker sets the text-to-speech sink.
func WithSpeaker(s domain.Speaker) Option {
	return func(o *options) { o.speaker = s }
}

// WithSounds sets the sound cue player.
func WithSounds(s domain.SoundPlayer) Option {
	return func(o *options) { o.sounds = s }
}

// WithFiglet sets the ASCII art client used by /figlet.
func WithFiglet(f domain.FigletClient) Option {
	return func(o *options) { o.figlet = f }
}

// WithRegisterer registers the reconciler metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registry = r }
}

// WithPicker sets the random source for insults and generated nicknames.
func WithPicker(p command.Picker) Option {
	return func(o *options) { o.pick = p }
}
