package tts_test

import (
	"context"
	"sync"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// fakeSynth records requests and lets tests play the engine's part by
// emitting events and buffers by hand.
type fakeSynth struct {
	mu       sync.Mutex
	delegate func(tts.Event)

	voices   []tts.Voice
	speakErr error
	writeErr error

	spoken    []tts.Utterance
	written   []tts.Utterance
	sink      tts.BufferSink
	format    audio.Format
	pauses    []audio.Boundary
	continues int
	stops     int
}

func (f *fakeSynth) Voices(ctx context.Context) ([]tts.Voice, error) {
	return f.voices, nil
}

func (f *fakeSynth) SetDelegate(fn func(tts.Event)) {
	f.mu.Lock()
	f.delegate = fn
	f.mu.Unlock()
}

func (f *fakeSynth) Speak(u tts.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	return nil
}

func (f *fakeSynth) PauseSpeaking(b audio.Boundary) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = append(f.pauses, b)
	return true
}

func (f *fakeSynth) ContinueSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continues++
	return true
}

func (f *fakeSynth) StopSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return true
}

func (f *fakeSynth) Write(u tts.Utterance, format audio.Format, sink tts.BufferSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, u)
	f.format = format
	f.sink = sink
	return nil
}

// emit delivers an event the way an engine would.
func (f *fakeSynth) emit(kind tts.EventKind, id uint64) {
	f.mu.Lock()
	d := f.delegate
	f.mu.Unlock()
	d(tts.Event{Kind: kind, Utterance: id})
}

func (f *fakeSynth) lastSpoken() tts.Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spoken[len(f.spoken)-1]
}

func (f *fakeSynth) counts() (spoken, pauses, continues, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken), len(f.pauses), f.continues, f.stops
}
