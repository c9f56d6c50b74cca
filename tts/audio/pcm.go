package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// PCM is a complete rendering of one utterance.
type PCM struct {
	Format Format
	Data   []byte
}

// Frames returns the number of whole frames in the data.
func (p PCM) Frames() int {
	bpf := p.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(p.Data) / bpf
}

// Duration returns the playing time of the data.
func (p PCM) Duration() time.Duration {
	return p.Format.FrameDuration(p.Frames())
}

// Clone returns a copy that does not share the sample slice.
func (p PCM) Clone() PCM {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return PCM{Format: p.Format, Data: data}
}

// Buffers splits the data into buffers of at most framesPerBuffer frames.
// The end-of-stream marker is not included.
func (p PCM) Buffers(framesPerBuffer int) []Buffer {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 4096
	}
	step := framesPerBuffer * p.Format.BytesPerFrame()
	usable := p.Frames() * p.Format.BytesPerFrame()

	var out []Buffer
	for off := 0; off < usable; off += step {
		end := min(off+step, usable)
		out = append(out, Buffer{Format: p.Format, Data: p.Data[off:end]})
	}
	return out
}

// Buffer is one chunk of rendered audio handed to a buffer sink. A
// buffer with zero frames marks the end of the stream.
type Buffer struct {
	Format Format
	Data   []byte
}

// EndOfStream returns the zero-length terminator buffer.
func EndOfStream(f Format) Buffer {
	return Buffer{Format: f}
}

// FrameLength returns the number of frames the buffer carries.
func (b Buffer) FrameLength() int {
	bpf := b.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(b.Data) / bpf
}

// Samples decodes the buffer into one int per sample, interleaved.
func (b Buffer) Samples() []int {
	out := make([]int, len(b.Data)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(b.Data[2*i:])))
	}
	return out
}

// ApplyGain scales 16-bit samples in place, clipping at full scale.
func ApplyGain(data []byte, gain float64) {
	if gain == 1 {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(data[i:])))
		binary.LittleEndian.PutUint16(data[i:], uint16(clip16(s*gain)))
	}
}

// Resample converts p to the given sample rate with linear interpolation.
func Resample(p PCM, rate int) (PCM, error) {
	if err := p.Format.Validate(); err != nil {
		return PCM{}, err
	}
	if rate <= 0 {
		return PCM{}, fmt.Errorf("%w: %d Hz", ErrUnsupportedFormat, rate)
	}
	if rate == p.Format.SampleRate {
		return p, nil
	}

	ch := p.Format.Channels
	in := p.Frames()
	if in == 0 {
		return PCM{Format: Format{SampleRate: rate, Channels: ch, BitDepth: 16}}, nil
	}
	out := int(int64(in) * int64(rate) / int64(p.Format.SampleRate))
	data := make([]byte, out*ch*2)

	sample := func(frame, c int) float64 {
		off := (frame*ch + c) * 2
		return float64(int16(binary.LittleEndian.Uint16(p.Data[off:])))
	}

	step := float64(p.Format.SampleRate) / float64(rate)
	for i := 0; i < out; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, in-1)
		for c := 0; c < ch; c++ {
			s0, s1 := sample(idx, c), sample(next, c)
			v := s0 + (s1-s0)*frac
			binary.LittleEndian.PutUint16(data[(i*ch+c)*2:], uint16(clip16(v)))
		}
	}
	return PCM{Format: Format{SampleRate: rate, Channels: ch, BitDepth: 16}, Data: data}, nil
}

func clip16(v float64) int16 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
