// Package tts is the playback and export core of localtts: a controller
// that tracks what the engine is doing, an exporter that writes engine
// output to WAV files, and the voice catalog helpers shared by the CLI
// and the terminal UI.
package tts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts/audio"
)

// Controller turns user commands into engine requests and engine events
// into playback state. State only changes when the engine acknowledges
// a request.
type Controller struct {
	synth    Synthesizer
	dispatch Dispatcher
	logger   *log.Logger

	mu        sync.Mutex
	machine   *StateMachine
	current   uint64 // most recently submitted utterance
	observers map[int]func(StateType)
	nextObs   int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDispatcher sets where observer callbacks run.
func WithDispatcher(d Dispatcher) ControllerOption {
	return func(c *Controller) { c.dispatch = d }
}

// WithLogger sets the controller's logger.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller and registers it as synth's delegate.
func NewController(synth Synthesizer, opts ...ControllerOption) *Controller {
	c := &Controller{
		synth:     synth,
		dispatch:  ImmediateDispatcher{},
		logger:    log.Default().WithPrefix("controller"),
		machine:   NewStateMachine(),
		observers: make(map[int]func(StateType)),
	}
	for _, opt := range opts {
		opt(c)
	}
	synth.SetDelegate(c.HandleEvent)
	return c
}

// State returns the current playback state.
func (c *Controller) State() StateType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Subscribe registers fn to be called through the dispatcher on every
// state change. The returned function removes it.
func (c *Controller) Subscribe(fn func(StateType)) (cancel func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Speak submits text for playback. Blank text is ignored.
func (c *Controller) Speak(text string, voice Voice, config UtteranceConfiguration) {
	if strings.TrimSpace(text) == "" {
		return
	}
	u := NewUtterance(text, voice, config)

	c.mu.Lock()
	prev := c.current
	c.current = u.ID
	c.mu.Unlock()

	if err := c.synth.Speak(u); err != nil {
		c.mu.Lock()
		if c.current == u.ID {
			c.current = prev
		}
		c.mu.Unlock()
		c.logger.Warn("speak request rejected", "utterance", u.ID, "voice", voice.ID, "err", err)
		return
	}
	c.logger.Debug("speak requested", "utterance", u.ID, "voice", voice.ID, "chars", len(text))
}

// Try previews voice with a short greeting at the default configuration.
func (c *Controller) Try(voice Voice) {
	c.Speak(fmt.Sprintf("Hello, I'm %s", voice), voice, DefaultUtteranceConfiguration())
}

// Pause asks the engine to pause at the next word. Ignored unless speaking.
func (c *Controller) Pause() {
	if !c.State().CanPause() {
		return
	}
	if !c.synth.PauseSpeaking(audio.BoundaryWord) {
		c.logger.Debug("engine declined pause")
	}
}

// Resume asks the engine to continue. Ignored unless paused.
func (c *Controller) Resume() {
	if !c.State().CanResume() {
		return
	}
	if !c.synth.ContinueSpeaking() {
		c.logger.Debug("engine declined resume")
	}
}

// Stop asks the engine to stop. Ignored unless speaking or paused.
func (c *Controller) Stop() {
	if !c.State().IsActive() {
		return
	}
	if !c.synth.StopSpeaking() {
		c.logger.Debug("engine declined stop")
	}
}

// HandleEvent is the engine delegate. It is safe to call from any
// goroutine.
func (c *Controller) HandleEvent(ev Event) {
	c.mu.Lock()
	if ev.Utterance != c.current {
		c.mu.Unlock()
		c.logger.Debug("ignoring event for stale utterance", "event", ev.Kind, "utterance", ev.Utterance)
		return
	}
	from := c.machine.Current()
	to, ok := c.machine.Fire(ev.Kind)
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("ignoring event", "event", ev.Kind, "state", from)
		return
	}
	if from == to {
		c.mu.Unlock()
		return
	}
	observers := make([]func(StateType), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	c.logger.Debug("state changed", "from", from, "to", to, "event", ev.Kind)
	c.dispatch.Dispatch(func() {
		for _, fn := range observers {
			fn(to)
		}
	})
}
