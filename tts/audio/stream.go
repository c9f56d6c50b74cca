package audio

import (
	"encoding/binary"
	"io"
	"sync"
	"time"
)

// Boundary selects where a pause request takes effect.
type Boundary int

const (
	// BoundaryWord pauses at the next gap between words.
	BoundaryWord Boundary = iota
	// BoundaryImmediate pauses at the next frame.
	BoundaryImmediate
)

func (b Boundary) String() string {
	if b == BoundaryImmediate {
		return "immediate"
	}
	return "word"
}

// StreamOptions tune how a word boundary is found in rendered audio.
type StreamOptions struct {
	// SilenceThreshold is the largest absolute sample value treated as silence.
	SilenceThreshold int
	// MinGap is the run of silence that counts as a gap between words.
	MinGap time.Duration
	// MaxSeek bounds how long playback continues while looking for a gap.
	MaxSeek time.Duration
}

// DefaultStreamOptions returns options suited to speech at normal rates.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		SilenceThreshold: 512,
		MinGap:           30 * time.Millisecond,
		MaxSeek:          750 * time.Millisecond,
	}
}

// Stream is an io.Reader over rendered PCM that can be paused at a word
// boundary. While paused it yields silence so the device keeps running.
type Stream struct {
	mu   sync.Mutex
	pcm  PCM
	pos  int
	opts StreamOptions

	pending  bool
	boundary Boundary
	scanned  int
	silent   int

	paused  bool
	stopped bool
	onPause func()
}

// NewStream wraps p for playback.
func NewStream(p PCM, opts StreamOptions) *Stream {
	if opts.MinGap <= 0 && opts.MaxSeek <= 0 {
		opts = DefaultStreamOptions()
	}
	return &Stream{pcm: p, opts: opts}
}

// Format returns the format of the wrapped audio.
func (s *Stream) Format() Format {
	return s.pcm.Format
}

// OnPause registers fn to run once each time a requested pause lands.
func (s *Stream) OnPause(fn func()) {
	s.mu.Lock()
	s.onPause = fn
	s.mu.Unlock()
}

// Read implements io.Reader.
func (s *Stream) Read(b []byte) (int, error) {
	s.mu.Lock()
	if s.stopped || s.pos >= len(s.pcm.Data) {
		s.mu.Unlock()
		return 0, io.EOF
	}
	if s.paused {
		s.mu.Unlock()
		clear(b)
		return len(b), nil
	}
	if !s.pending {
		n := copy(b, s.pcm.Data[s.pos:])
		s.pos += n
		s.mu.Unlock()
		return n, nil
	}

	n, landed := s.seek(b)
	var hook func()
	if landed {
		hook = s.onPause
		clear(b[n:])
		n = len(b)
	}
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return n, nil
}

// seek copies frames into b while looking for the pause point. It
// reports the bytes copied and whether the stream is now paused.
func (s *Stream) seek(b []byte) (int, bool) {
	bpf := s.pcm.Format.BytesPerFrame()
	n := 0

	// realign after an unaligned read
	if rem := s.pos % bpf; rem != 0 {
		n = copy(b, s.pcm.Data[s.pos:s.pos+bpf-rem])
		s.pos += n
	}

	minGap := s.pcm.Format.Frames(s.opts.MinGap)
	maxSeek := s.pcm.Format.Frames(s.opts.MaxSeek) * bpf

	for {
		if s.boundary == BoundaryImmediate || (minGap > 0 && s.silent >= minGap) || (maxSeek > 0 && s.scanned >= maxSeek) {
			s.pending = false
			s.paused = true
			return n, true
		}
		if n+bpf > len(b) || s.pos+bpf > len(s.pcm.Data) {
			if n == 0 {
				n = copy(b, s.pcm.Data[s.pos:])
				s.pos += n
			}
			return n, false
		}
		frame := s.pcm.Data[s.pos : s.pos+bpf]
		copy(b[n:], frame)
		n += bpf
		s.pos += bpf
		s.scanned += bpf
		if s.isSilent(frame) {
			s.silent++
		} else {
			s.silent = 0
		}
	}
}

func (s *Stream) isSilent(frame []byte) bool {
	for i := 0; i+1 < len(frame); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(frame[i:])))
		if v > s.opts.SilenceThreshold || v < -s.opts.SilenceThreshold {
			return false
		}
	}
	return true
}

// Pause requests a pause at the given boundary. It returns false when
// the stream has ended, was stopped or is already paused.
func (s *Stream) Pause(b Boundary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.paused || s.pos >= len(s.pcm.Data) {
		return false
	}
	s.pending = true
	s.boundary = b
	s.scanned = 0
	s.silent = 0
	return true
}

// Resume continues after a landed pause. A pause that is still pending
// is dropped and Resume returns false.
func (s *Stream) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		s.pending = false
		return false
	}
	if !s.paused || s.stopped {
		return false
	}
	s.paused = false
	return true
}

// Stop ends the stream; subsequent reads return io.EOF.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Paused reports whether a pause has landed.
func (s *Stream) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Done reports whether all data has been read or the stream was stopped.
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.pos >= len(s.pcm.Data)
}

// Position returns how much audio has been read so far.
func (s *Stream) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	bpf := s.pcm.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return s.pcm.Format.FrameDuration(s.pos / bpf)
}
