package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Hooks are invoked by a Playback as it changes state. They may be
// called from audio goroutines and must not block.
type Hooks struct {
	OnPaused   func()
	OnResumed  func()
	OnFinished func()
}

// Playback controls one stream that an Output is playing.
type Playback interface {
	Pause(b Boundary) bool
	Resume() bool
	Stop()
}

// Output plays streams in its native format.
type Output interface {
	Format() Format
	Play(s *Stream, h Hooks) (Playback, error)
	Close() error
}

// PlayerConfig contains configuration for the speaker output.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	BufferSize int // bytes buffered by each oto player
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		BufferSize: 8192,
	}
}

func (c PlayerConfig) validate() error {
	// oto only handles these reliably across platforms
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(rate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, rate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != rate {
		return nil, fmt.Errorf("audio device already open at %d Hz", otoRate)
	}
	return otoCtx, nil
}

// Player is the speaker Output, backed by oto.
type Player struct {
	ctx    *oto.Context
	config PlayerConfig
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx, err := otoContext(config.SampleRate)
	if err != nil {
		return nil, err
	}
	return &Player{ctx: ctx, config: config}, nil
}

// Format implements Output.
func (p *Player) Format() Format {
	return Format{SampleRate: p.config.SampleRate, Channels: 1, BitDepth: 16}
}

// Play implements Output.
func (p *Player) Play(s *Stream, h Hooks) (Playback, error) {
	if s.Format() != p.Format() {
		return nil, fmt.Errorf("%w: stream is %s, device is %s", ErrUnsupportedFormat, s.Format(), p.Format())
	}

	player := p.ctx.NewPlayer(s)
	player.SetBufferSize(p.config.BufferSize)

	pb := &otoPlayback{
		stream: s,
		player: player,
		hooks:  h,
		done:   make(chan struct{}),
	}
	s.OnPause(pb.paused)
	player.Play()
	go pb.watch()
	return pb, nil
}

// Close implements Output. The oto context lives for the process.
func (p *Player) Close() error {
	return nil
}

type otoPlayback struct {
	stream *Stream
	player *oto.Player
	hooks  Hooks

	done     chan struct{}
	stopOnce sync.Once
}

func (pb *otoPlayback) paused() {
	if pb.hooks.OnPaused != nil {
		pb.hooks.OnPaused()
	}
}

func (pb *otoPlayback) Pause(b Boundary) bool {
	return pb.stream.Pause(b)
}

func (pb *otoPlayback) Resume() bool {
	if !pb.stream.Resume() {
		return false
	}
	if pb.hooks.OnResumed != nil {
		pb.hooks.OnResumed()
	}
	return true
}

func (pb *otoPlayback) Stop() {
	pb.stopOnce.Do(func() {
		close(pb.done)
		pb.stream.Stop()
		pb.player.Pause()
	})
}

// watch reports completion once the device has drained the stream.
func (pb *otoPlayback) watch() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-pb.done:
			return
		case <-ticker.C:
			if !pb.stream.Done() || pb.player.IsPlaying() {
				continue
			}
			finished := false
			pb.stopOnce.Do(func() {
				close(pb.done)
				finished = true
			})
			if finished && pb.hooks.OnFinished != nil {
				pb.hooks.OnFinished()
			}
			return
		}
	}
}
