package tts

import (
	"context"

	"github.com/dgnsrekt/localtts/tts/audio"
)

// VoiceCatalog lists the voices installed for an engine.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// BufferSink receives rendered audio in buffer-sink mode.
type BufferSink interface {
	// WriteBuffer is called for each buffer in order. A zero-frame buffer
	// ends the stream. A non-nil error stops the engine producing more.
	WriteBuffer(b audio.Buffer) error
	// Abort is called instead of the terminator when rendering fails or
	// is interrupted.
	Abort(err error)
}

// Synthesizer is a speech engine. Every method returns immediately;
// progress is reported through the delegate or the sink. Only one
// utterance is in flight: a new Speak or Write interrupts the current
// one, and an interrupted spoken utterance reports EventCancelled.
type Synthesizer interface {
	VoiceCatalog

	// SetDelegate registers the lifecycle callback. It may be called from
	// any goroutine, but events for one engine arrive in order.
	SetDelegate(fn func(Event))

	Speak(u Utterance) error
	PauseSpeaking(b audio.Boundary) bool
	ContinueSpeaking() bool
	StopSpeaking() bool

	// Write renders u in format f and hands the buffers to sink instead
	// of playing them.
	Write(u Utterance, f audio.Format, sink BufferSink) error
}
