package engines_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/dgnsrekt/localtts/tts/engines"
	"github.com/dgnsrekt/localtts/tts/engines/mock"
)

var amy = tts.Voice{ID: "mock-amy", Name: "Mock Amy", Language: "en-US", Gender: tts.GenderFemale}

type harness struct {
	backend *mock.Engine
	synth   *engines.Synthesizer
	events  chan tts.Event
}

// newHarness plays on a null output at speed times real time.
func newHarness(t *testing.T, speed float64) *harness {
	t.Helper()
	h := &harness{
		backend: mock.New(600),
		events:  make(chan tts.Event, 64),
	}
	out := audio.NewNullOutput(audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, speed)
	h.synth = engines.NewSynthesizer(h.backend, out, engines.WithBufferFrames(1024))
	h.synth.SetDelegate(func(ev tts.Event) { h.events <- ev })
	t.Cleanup(func() { h.synth.Close() })
	return h
}

func (h *harness) next(t *testing.T) tts.Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return tts.Event{}
}

func (h *harness) expect(t *testing.T, kind tts.EventKind, u tts.Utterance) {
	t.Helper()
	ev := h.next(t)
	require.Equal(t, kind, ev.Kind, "event for utterance %d", ev.Utterance)
	require.Equal(t, u.ID, ev.Utterance)
}

func (h *harness) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %s for utterance %d", ev.Kind, ev.Utterance)
	case <-time.After(d):
	}
}

func longText() string {
	return strings.Repeat("word ", 40)
}

type recordingSink struct {
	mu      sync.Mutex
	buffers []audio.Buffer
	aborted error
	failAt  int // WriteBuffer call that fails, 0 for never
	done    chan struct{}
	once    sync.Once
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) WriteBuffer(b audio.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = append(s.buffers, b)
	if s.failAt > 0 && len(s.buffers) == s.failAt {
		s.once.Do(func() { close(s.done) })
		return errors.New("disk full")
	}
	if b.FrameLength() == 0 {
		s.once.Do(func() { close(s.done) })
	}
	return nil
}

func (s *recordingSink) Abort(err error) {
	s.mu.Lock()
	s.aborted = err
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(3 * time.Second):
		t.Fatal("sink never completed")
	}
}

func TestSpeakStartsAndFinishes(t *testing.T) {
	h := newHarness(t, 0)
	u := tts.NewUtterance("hello there", amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventStarted, u)
	h.expect(t, tts.EventFinished, u)
	h.quiet(t, 50*time.Millisecond)
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	h := newHarness(t, 0)
	err := h.synth.Speak(tts.NewUtterance("  \n", amy, tts.DefaultUtteranceConfiguration()))
	assert.ErrorIs(t, err, tts.ErrEmptyText)
	assert.Zero(t, h.backend.RenderCount())
}

func TestPauseAndContinue(t *testing.T) {
	h := newHarness(t, 1)
	u := tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventStarted, u)

	require.True(t, h.synth.PauseSpeaking(audio.BoundaryImmediate))
	h.expect(t, tts.EventPaused, u)
	assert.False(t, h.synth.PauseSpeaking(audio.BoundaryImmediate), "already paused")

	require.True(t, h.synth.ContinueSpeaking())
	h.expect(t, tts.EventContinued, u)
	assert.False(t, h.synth.ContinueSpeaking(), "not paused")

	require.True(t, h.synth.StopSpeaking())
	h.expect(t, tts.EventCancelled, u)
}

func TestPauseAtWordBoundary(t *testing.T) {
	h := newHarness(t, 1)
	u := tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventStarted, u)
	require.True(t, h.synth.PauseSpeaking(audio.BoundaryWord))
	h.expect(t, tts.EventPaused, u)
	require.True(t, h.synth.StopSpeaking())
	h.expect(t, tts.EventCancelled, u)
}

func TestNewSpeakInterruptsCurrent(t *testing.T) {
	h := newHarness(t, 1)
	first := tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration())
	second := tts.NewUtterance("short", amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(first))
	h.expect(t, tts.EventStarted, first)

	require.NoError(t, h.synth.Speak(second))
	h.expect(t, tts.EventCancelled, first)
	h.expect(t, tts.EventStarted, second)
	h.expect(t, tts.EventFinished, second)
}

func TestInterruptBeforeStart(t *testing.T) {
	h := newHarness(t, 1)
	h.backend.SetDelay(200 * time.Millisecond)
	first := tts.NewUtterance("first", amy, tts.DefaultUtteranceConfiguration())
	second := tts.NewUtterance("second", amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(first))
	require.NoError(t, h.synth.Speak(second))

	h.expect(t, tts.EventCancelled, first)
	h.expect(t, tts.EventStarted, second)
	h.expect(t, tts.EventFinished, second)
}

func TestStopSpeaking(t *testing.T) {
	h := newHarness(t, 1)
	assert.False(t, h.synth.StopSpeaking(), "nothing to stop")

	u := tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration())
	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventStarted, u)

	require.True(t, h.synth.StopSpeaking())
	h.expect(t, tts.EventCancelled, u)
	assert.False(t, h.synth.StopSpeaking())
	assert.False(t, h.synth.PauseSpeaking(audio.BoundaryImmediate))
	h.quiet(t, 50*time.Millisecond)
}

func TestRenderFailureCancelsSpeech(t *testing.T) {
	h := newHarness(t, 0)
	h.backend.SetFailure(errors.New("model missing"))
	u := tts.NewUtterance("hello", amy, tts.DefaultUtteranceConfiguration())

	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventCancelled, u)
	h.quiet(t, 50*time.Millisecond)
}

func TestWriteDeliversBuffersThenTerminator(t *testing.T) {
	h := newHarness(t, 0)
	u := tts.NewUtterance("one two three four", amy, tts.DefaultUtteranceConfiguration())
	sink := newRecordingSink()

	require.NoError(t, h.synth.Write(u, audio.ExportFormat, sink))
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NoError(t, sink.aborted)
	require.GreaterOrEqual(t, len(sink.buffers), 2)

	total := 0
	for i, b := range sink.buffers {
		assert.Equal(t, audio.ExportFormat, b.Format)
		if i < len(sink.buffers)-1 {
			assert.Positive(t, b.FrameLength(), "buffer %d", i)
			assert.LessOrEqual(t, b.FrameLength(), 1024)
		}
		total += b.FrameLength()
	}
	assert.Zero(t, sink.buffers[len(sink.buffers)-1].FrameLength())

	pcm, err := h.backend.Render(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, pcm.Frames(), total)

	// buffer-sink mode never reports lifecycle events
	h.quiet(t, 50*time.Millisecond)
}

func TestWriteAppliesVolume(t *testing.T) {
	h := newHarness(t, 0)
	cfg := tts.DefaultUtteranceConfiguration()
	cfg.Volume = tts.MinVolume
	u := tts.NewUtterance("quiet", amy, cfg)
	sink := newRecordingSink()

	require.NoError(t, h.synth.Write(u, audio.ExportFormat, sink))
	sink.wait(t)

	raw, err := h.backend.Render(context.Background(), u)
	require.NoError(t, err)
	peak := func(samples []int) int {
		m := 0
		for _, v := range samples {
			m = max(m, v, -v)
		}
		return m
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	got := 0
	for _, b := range sink.buffers {
		got = max(got, peak(b.Samples()))
	}
	want := peak(audio.Buffer{Format: raw.Format, Data: raw.Data}.Samples())
	assert.InDelta(t, float64(want)*float64(tts.MinVolume), float64(got), 2)
}

func TestWriteInterruptedByNewRequest(t *testing.T) {
	h := newHarness(t, 0)
	h.backend.SetDelay(200 * time.Millisecond)
	sink := newRecordingSink()

	require.NoError(t, h.synth.Write(tts.NewUtterance("export me", amy, tts.DefaultUtteranceConfiguration()), audio.ExportFormat, sink))
	u := tts.NewUtterance("speak me", amy, tts.DefaultUtteranceConfiguration())
	require.NoError(t, h.synth.Speak(u))

	sink.wait(t)
	sink.mu.Lock()
	assert.ErrorIs(t, sink.aborted, tts.ErrInterrupted)
	assert.Empty(t, sink.buffers)
	sink.mu.Unlock()

	h.expect(t, tts.EventStarted, u)
	h.expect(t, tts.EventFinished, u)
}

func TestWriteRenderFailureAbortsSink(t *testing.T) {
	h := newHarness(t, 0)
	h.backend.SetFailure(errors.New("model missing"))
	sink := newRecordingSink()

	require.NoError(t, h.synth.Write(tts.NewUtterance("hello", amy, tts.DefaultUtteranceConfiguration()), audio.ExportFormat, sink))
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Error(t, sink.aborted)
	assert.ErrorIs(t, sink.aborted, tts.ErrGenerationFailed)
	var ttsErr *tts.TTSError
	assert.ErrorAs(t, sink.aborted, &ttsErr)
	assert.Empty(t, sink.buffers)
}

func TestSinkErrorStopsWrite(t *testing.T) {
	h := newHarness(t, 0)
	sink := newRecordingSink()
	sink.failAt = 1

	require.NoError(t, h.synth.Write(tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration()), audio.ExportFormat, sink))
	sink.wait(t)
	time.Sleep(50 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.buffers, 1)
	assert.NoError(t, sink.aborted)
}

func TestWriteRejectsBadFormat(t *testing.T) {
	h := newHarness(t, 0)
	err := h.synth.Write(tts.NewUtterance("hello", amy, tts.DefaultUtteranceConfiguration()), audio.Format{SampleRate: 22050, Channels: 1, BitDepth: 8}, newRecordingSink())
	assert.ErrorIs(t, err, tts.ErrBufferFormat)
}

func TestClosedSynthesizer(t *testing.T) {
	h := newHarness(t, 1)
	u := tts.NewUtterance(longText(), amy, tts.DefaultUtteranceConfiguration())
	require.NoError(t, h.synth.Speak(u))
	h.expect(t, tts.EventStarted, u)

	require.NoError(t, h.synth.Close())
	require.NoError(t, h.synth.Close())

	err := h.synth.Speak(tts.NewUtterance("again", amy, tts.DefaultUtteranceConfiguration()))
	assert.ErrorIs(t, err, tts.ErrEngineClosed)
	err = h.synth.Write(tts.NewUtterance("again", amy, tts.DefaultUtteranceConfiguration()), audio.ExportFormat, newRecordingSink())
	assert.ErrorIs(t, err, tts.ErrEngineClosed)
}

func TestVoicesComeFromBackend(t *testing.T) {
	h := newHarness(t, 0)
	voices, err := h.synth.Voices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 3)
	assert.Equal(t, "mock", h.synth.Name())
}
