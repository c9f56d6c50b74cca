// Package engines implements tts.Synthesizer on top of local speech
// backends: a backend renders an utterance to PCM, and the Synthesizer
// runtime plays it, pauses it or streams it to a buffer sink.
package engines

import (
	"context"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// Backend renders speech. Implementations must be safe for concurrent
// use and should honor ctx cancellation.
type Backend interface {
	Name() string
	// Available returns nil when the backend can render.
	Available() error
	Voices(ctx context.Context) ([]tts.Voice, error)
	Render(ctx context.Context, u tts.Utterance) (audio.PCM, error)
}
