package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedFormat is returned for anything other than 16-bit PCM.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes interleaved signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// ExportFormat is the fixed format of every exported file.
var ExportFormat = Format{SampleRate: 22050, Channels: 1, BitDepth: 16}

// BytesPerFrame returns the size of one frame (one sample per channel).
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// FrameDuration converts a frame count to wall time.
func (f Format) FrameDuration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frames converts a duration to a frame count, rounding down.
func (f Format) Frames(d time.Duration) int {
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// Validate checks the format is one this package can process.
func (f Format) Validate() error {
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, f.BitDepth)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	if f.SampleRate < 8000 || f.SampleRate > 192000 {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedFormat, f.SampleRate)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d-bit", f.SampleRate, f.Channels, f.BitDepth)
}
