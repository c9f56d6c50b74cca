// Package mock provides a deterministic in-process speech backend. It
// renders each word as a short tone followed by a gap, which is enough
// for exercising playback, pausing and export without a real engine.
package mock

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// SampleRate of rendered audio.
const SampleRate = 22050

// Engine is the mock backend.
type Engine struct {
	wordsPerMinute int

	mu          sync.Mutex
	delay       time.Duration // simulated processing delay
	failure     error
	renderCount int
}

// New creates a mock engine speaking at wordsPerMinute at the neutral rate.
func New(wordsPerMinute int) *Engine {
	if wordsPerMinute <= 0 {
		wordsPerMinute = tts.DefaultMockConfig().WordsPerMinute
	}
	return &Engine{wordsPerMinute: wordsPerMinute}
}

// Name returns the backend name.
func (e *Engine) Name() string {
	return tts.EngineMock
}

// Available always succeeds.
func (e *Engine) Available() error {
	return nil
}

var voices = []tts.Voice{
	{ID: "mock-amy", Name: "Mock Amy", Language: "en-US", Gender: tts.GenderFemale, Quality: tts.QualityEnhanced},
	{ID: "mock-alan", Name: "Mock Alan", Language: "en-GB", Gender: tts.GenderMale, Quality: tts.QualityDefault},
	{ID: "mock-kim", Name: "Mock Kim", Language: "de-DE", Gender: tts.GenderUnspecified, Quality: tts.QualityPremium},
}

// Voices returns the mock catalog.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(voices))
	copy(out, voices)
	return out, nil
}

// Render produces a tone per word.
func (e *Engine) Render(ctx context.Context, u tts.Utterance) (audio.PCM, error) {
	e.mu.Lock()
	e.renderCount++
	delay, failure := e.delay, e.failure
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return audio.PCM{}, ctx.Err()
		}
	}
	if failure != nil {
		return audio.PCM{}, failure
	}

	words := strings.Fields(u.Text)
	if len(words) == 0 {
		return audio.PCM{}, tts.ErrEmptyText
	}

	format := audio.Format{SampleRate: SampleRate, Channels: 1, BitDepth: 16}
	perWord := time.Duration(float64(time.Minute) / (float64(e.wordsPerMinute) * u.Config.Clamp().SpeedFactor()))
	toneFrames := format.Frames(perWord * 4 / 5)
	gapFrames := format.Frames(perWord / 5)
	freq := e.frequency(u.Voice) * float64(u.Config.Clamp().PitchMultiplier)

	data := make([]byte, 0, len(words)*(toneFrames+gapFrames)*2)
	for range words {
		for i := 0; i < toneFrames; i++ {
			// fade in and out to keep word edges click-free
			env := math.Min(1, math.Min(float64(i), float64(toneFrames-i))/200)
			v := 12000 * env * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
			data = binary.LittleEndian.AppendUint16(data, uint16(int16(v)))
		}
		data = append(data, make([]byte, gapFrames*2)...)
	}
	return audio.PCM{Format: format, Data: data}, nil
}

func (e *Engine) frequency(v tts.Voice) float64 {
	switch v.Gender {
	case tts.GenderMale:
		return 140
	case tts.GenderFemale:
		return 260
	}
	return 200
}

// Test control methods

// SetDelay sets the simulated processing delay.
func (e *Engine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
}

// SetFailure makes Render fail with err; nil restores normal operation.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// RenderCount returns how many times Render was called.
func (e *Engine) RenderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderCount
}

// WordDuration returns how long one word plus its gap lasts at config.
func (e *Engine) WordDuration(config tts.UtteranceConfiguration) time.Duration {
	return time.Duration(float64(time.Minute) / (float64(e.wordsPerMinute) * config.Clamp().SpeedFactor()))
}
