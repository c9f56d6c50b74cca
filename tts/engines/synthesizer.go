package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// DefaultBufferFrames is the size of the buffers handed to a sink.
const DefaultBufferFrames = 4096

// Synthesizer runs one Backend behind the tts.Synthesizer contract. It
// keeps at most one utterance in flight and delivers events in order on
// its own goroutine.
type Synthesizer struct {
	backend      Backend
	output       audio.Output
	logger       *log.Logger
	streamOpts   audio.StreamOptions
	bufferFrames int

	mu       sync.Mutex
	delegate func(tts.Event)
	active   *session

	queue     eventQueue
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the runtime's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// WithStreamOptions tunes word boundary detection.
func WithStreamOptions(o audio.StreamOptions) Option {
	return func(s *Synthesizer) { s.streamOpts = o }
}

// WithBufferFrames sets the number of frames per sink buffer.
func WithBufferFrames(n int) Option {
	return func(s *Synthesizer) { s.bufferFrames = n }
}

// NewSynthesizer creates a runtime that renders with b and plays on out.
func NewSynthesizer(b Backend, out audio.Output, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		backend:      b,
		output:       out,
		logger:       log.Default().WithPrefix(b.Name()),
		streamOpts:   audio.DefaultStreamOptions(),
		bufferFrames: DefaultBufferFrames,
		queue:        eventQueue{ready: make(chan struct{}, 1)},
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.deliver()
	return s
}

// session is one utterance in flight.
type session struct {
	id     uint64
	speak  bool // playback, as opposed to buffer-sink mode
	cancel context.CancelFunc
	sink   tts.BufferSink

	mu       sync.Mutex
	playback audio.Playback
	started  bool
	over     bool
}

// Name returns the backend name.
func (s *Synthesizer) Name() string {
	return s.backend.Name()
}

// Backend returns the backend being run.
func (s *Synthesizer) Backend() Backend {
	return s.backend
}

// Voices implements tts.VoiceCatalog.
func (s *Synthesizer) Voices(ctx context.Context) ([]tts.Voice, error) {
	return s.backend.Voices(ctx)
}

// SetDelegate implements tts.Synthesizer.
func (s *Synthesizer) SetDelegate(fn func(tts.Event)) {
	s.mu.Lock()
	s.delegate = fn
	s.mu.Unlock()
}

// Speak implements tts.Synthesizer.
func (s *Synthesizer) Speak(u tts.Utterance) error {
	if err := s.check(u); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{id: u.ID, speak: true, cancel: cancel}
	s.replace(sess)

	s.wg.Add(1)
	go s.speak(ctx, sess, u)
	return nil
}

// Write implements tts.Synthesizer.
func (s *Synthesizer) Write(u tts.Utterance, f audio.Format, sink tts.BufferSink) error {
	if err := s.check(u); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %w", tts.ErrBufferFormat, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{id: u.ID, cancel: cancel, sink: sink}
	s.replace(sess)

	s.wg.Add(1)
	go s.write(ctx, sess, u, f)
	return nil
}

// PauseSpeaking implements tts.Synthesizer.
func (s *Synthesizer) PauseSpeaking(b audio.Boundary) bool {
	pb := s.playback()
	return pb != nil && pb.Pause(b)
}

// ContinueSpeaking implements tts.Synthesizer.
func (s *Synthesizer) ContinueSpeaking() bool {
	pb := s.playback()
	return pb != nil && pb.Resume()
}

// StopSpeaking implements tts.Synthesizer.
func (s *Synthesizer) StopSpeaking() bool {
	s.mu.Lock()
	sess := s.active
	if sess == nil || !sess.speak {
		s.mu.Unlock()
		return false
	}
	s.active = nil
	s.mu.Unlock()

	s.interrupt(sess, tts.ErrInterrupted)
	return true
}

// Close stops any utterance in flight and releases the output and the
// backend.
func (s *Synthesizer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		sess := s.active
		s.active = nil
		s.mu.Unlock()
		s.interrupt(sess, tts.ErrEngineClosed)

		s.wg.Wait()
		close(s.closed)
		err = s.output.Close()
		if c, ok := s.backend.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	})
	return err
}

func (s *Synthesizer) check(u tts.Utterance) error {
	select {
	case <-s.closed:
		return tts.ErrEngineClosed
	default:
	}
	if strings.TrimSpace(u.Text) == "" {
		return tts.ErrEmptyText
	}
	return nil
}

func (s *Synthesizer) playback() audio.Playback {
	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()
	if sess == nil || !sess.speak {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.over {
		return nil
	}
	return sess.playback
}

// replace makes sess the utterance in flight, interrupting the previous one.
func (s *Synthesizer) replace(sess *session) {
	s.mu.Lock()
	prev := s.active
	s.active = sess
	s.mu.Unlock()
	s.interrupt(prev, tts.ErrInterrupted)
}

// interrupt ends sess early. A spoken utterance reports EventCancelled
// and a sink is aborted with reason.
func (s *Synthesizer) interrupt(sess *session, reason error) {
	if sess == nil {
		return
	}
	sess.mu.Lock()
	if sess.over {
		sess.mu.Unlock()
		return
	}
	sess.over = true
	pb := sess.playback
	if sess.speak {
		s.post(tts.EventCancelled, sess.id)
	}
	sess.mu.Unlock()

	sess.cancel()
	if pb != nil {
		pb.Stop()
	}
	if sess.sink != nil {
		sess.sink.Abort(reason)
	}
	s.logger.Debug("utterance interrupted", "utterance", sess.id, "reason", reason)
}

// end finishes sess, posting kind if it is still live.
func (s *Synthesizer) end(sess *session, kind tts.EventKind) {
	sess.mu.Lock()
	if sess.over {
		sess.mu.Unlock()
		return
	}
	sess.over = true
	if sess.speak {
		s.post(kind, sess.id)
	}
	sess.mu.Unlock()

	sess.cancel()
	s.mu.Lock()
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Synthesizer) notify(sess *session, kind tts.EventKind) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.over {
		s.post(kind, sess.id)
	}
}

func (s *Synthesizer) speak(ctx context.Context, sess *session, u tts.Utterance) {
	defer s.wg.Done()

	pcm, err := s.render(ctx, u, s.output.Format())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("render failed", "utterance", u.ID, "voice", u.Voice.ID, "err", err)
			s.end(sess, tts.EventCancelled)
		}
		return
	}
	stream := audio.NewStream(pcm, s.streamOpts)
	hooks := audio.Hooks{
		OnPaused:   func() { s.notify(sess, tts.EventPaused) },
		OnResumed:  func() { s.notify(sess, tts.EventContinued) },
		OnFinished: func() { s.end(sess, tts.EventFinished) },
	}

	sess.mu.Lock()
	if sess.over {
		sess.mu.Unlock()
		return
	}
	sess.started = true
	s.post(tts.EventStarted, sess.id)
	pb, err := s.output.Play(stream, hooks)
	if err != nil {
		sess.mu.Unlock()
		s.logger.Error("playback failed", "utterance", u.ID, "err", err)
		s.end(sess, tts.EventCancelled)
		return
	}
	sess.playback = pb
	sess.mu.Unlock()

	s.logger.Debug("speaking", "utterance", u.ID, "duration", pcm.Duration())
}

func (s *Synthesizer) write(ctx context.Context, sess *session, u tts.Utterance, f audio.Format) {
	defer s.wg.Done()

	pcm, err := s.render(ctx, u, f)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("render failed", "utterance", u.ID, "err", err)
			s.fail(sess, tts.NewTTSError(err, s.backend.Name(), "render"))
		}
		return
	}

	for i, b := range pcm.Buffers(s.bufferFrames) {
		if ctx.Err() != nil {
			return
		}
		if err := sess.sink.WriteBuffer(b); err != nil {
			s.logger.Debug("sink stopped the stream", "utterance", u.ID, "buffer", i, "err", err)
			s.end(sess, tts.EventFinished)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := sess.sink.WriteBuffer(audio.EndOfStream(f)); err != nil {
		s.logger.Debug("sink rejected end of stream", "utterance", u.ID, "err", err)
	}
	s.end(sess, tts.EventFinished)
}

// fail ends a buffer-sink session with err.
func (s *Synthesizer) fail(sess *session, err error) {
	sess.mu.Lock()
	if sess.over {
		sess.mu.Unlock()
		return
	}
	sess.mu.Unlock()
	sess.sink.Abort(err)
	s.end(sess, tts.EventCancelled)
}

// render produces u in format f with the utterance volume applied.
func (s *Synthesizer) render(ctx context.Context, u tts.Utterance, f audio.Format) (audio.PCM, error) {
	if err := s.backend.Available(); err != nil {
		return audio.PCM{}, err
	}
	pcm, err := s.backend.Render(ctx, u)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %w", tts.ErrGenerationFailed, err)
	}
	if pcm.Format.Channels != f.Channels {
		return audio.PCM{}, fmt.Errorf("%w: engine produced %s, want %s", tts.ErrBufferFormat, pcm.Format, f)
	}
	pcm = pcm.Clone()
	audio.ApplyGain(pcm.Data, float64(u.Config.Volume))
	return audio.Resample(pcm, f.SampleRate)
}

func (s *Synthesizer) post(kind tts.EventKind, id uint64) {
	s.queue.push(tts.Event{Kind: kind, Utterance: id})
}

// deliver hands queued events to the delegate in order.
func (s *Synthesizer) deliver() {
	for {
		select {
		case <-s.queue.ready:
			for _, ev := range s.queue.drain() {
				s.mu.Lock()
				fn := s.delegate
				s.mu.Unlock()
				if fn != nil {
					fn(ev)
				}
			}
		case <-s.closed:
			return
		}
	}
}

// eventQueue is an unbounded FIFO so posting never blocks an audio
// goroutine on a slow delegate.
type eventQueue struct {
	mu      sync.Mutex
	pending []tts.Event
	ready   chan struct{}
}

func (q *eventQueue) push(ev tts.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []tts.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
