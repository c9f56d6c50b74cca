package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// NullOutput plays streams into nothing at a paced rate. It stands in
// for the speaker when no device is available and in tests.
type NullOutput struct {
	format Format
	// Speed multiplies the pacing; 0 drains as fast as possible.
	speed float64
	tick  time.Duration
}

// NewNullOutput returns an output that consumes audio at speed times
// real time.
func NewNullOutput(f Format, speed float64) *NullOutput {
	return &NullOutput{format: f, speed: speed, tick: 5 * time.Millisecond}
}

// Format implements Output.
func (o *NullOutput) Format() Format {
	return o.format
}

// Play implements Output.
func (o *NullOutput) Play(s *Stream, h Hooks) (Playback, error) {
	if s.Format() != o.format {
		return nil, fmt.Errorf("%w: stream is %s, output is %s", ErrUnsupportedFormat, s.Format(), o.format)
	}
	pb := &nullPlayback{stream: s, hooks: h, stop: make(chan struct{})}
	s.OnPause(func() {
		if h.OnPaused != nil {
			h.OnPaused()
		}
	})

	chunk := o.format.BytesPerFrame() * max(o.format.Frames(o.tick), 1)
	if o.speed > 0 {
		chunk = int(float64(chunk) * o.speed)
	} else {
		chunk *= 64
	}
	chunk -= chunk % o.format.BytesPerFrame()
	go pb.run(chunk, o.tick, o.speed > 0)
	return pb, nil
}

// Close implements Output.
func (o *NullOutput) Close() error {
	return nil
}

type nullPlayback struct {
	stream *Stream
	hooks  Hooks

	stop     chan struct{}
	stopOnce sync.Once
}

func (pb *nullPlayback) run(chunk int, tick time.Duration, paced bool) {
	buf := make([]byte, chunk)
	for {
		select {
		case <-pb.stop:
			return
		default:
		}
		if _, err := pb.stream.Read(buf); errors.Is(err, io.EOF) {
			break
		}
		if paced || pb.stream.Paused() {
			select {
			case <-pb.stop:
				return
			case <-time.After(tick):
			}
		}
	}

	finished := false
	pb.stopOnce.Do(func() {
		close(pb.stop)
		finished = true
	})
	if finished && pb.hooks.OnFinished != nil {
		pb.hooks.OnFinished()
	}
}

func (pb *nullPlayback) Pause(b Boundary) bool {
	return pb.stream.Pause(b)
}

func (pb *nullPlayback) Resume() bool {
	if !pb.stream.Resume() {
		return false
	}
	if pb.hooks.OnResumed != nil {
		pb.hooks.OnResumed()
	}
	return true
}

func (pb *nullPlayback) Stop() {
	pb.stopOnce.Do(func() {
		close(pb.stop)
		pb.stream.Stop()
	})
}
