package interfaces

import "context"

// Speaker reads text aloud.
type Speaker interface {
	Speak(text string) error
}

// SoundPlayer plays a named sound cue.
type SoundPlayer interface {
	Play(cue string) error
}

// FigletClient renders text as ASCII art.
type FigletClient interface {
	Render(ctx context.Context, text string) (string, error)
}
