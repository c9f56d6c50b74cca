package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCM is the WAVE format tag for integer PCM.
const wavPCM = 1

// WAVWriter appends buffers to a WAV file. The header sizes are
// patched when the writer is closed.
type WAVWriter struct {
	file   *os.File
	enc    *wav.Encoder
	format Format
	frames int
	closed bool
}

// CreateWAV creates (or truncates) path for writing audio in format f.
func CreateWAV(path string, f Format) (*WAVWriter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVWriter{
		file:   file,
		enc:    wav.NewEncoder(file, f.SampleRate, f.BitDepth, f.Channels, wavPCM),
		format: f,
	}, nil
}

// Path returns the file being written.
func (w *WAVWriter) Path() string {
	return w.file.Name()
}

// Frames returns the number of frames appended so far.
func (w *WAVWriter) Frames() int {
	return w.frames
}

// Append writes one buffer. The buffer must match the writer's format.
func (w *WAVWriter) Append(b Buffer) error {
	if w.closed {
		return os.ErrClosed
	}
	if b.Format != w.format {
		return fmt.Errorf("%w: buffer is %s, file is %s", ErrUnsupportedFormat, b.Format, w.format)
	}
	if err := w.write(b.Samples()); err != nil {
		return err
	}
	w.frames += b.FrameLength()
	return nil
}

func (w *WAVWriter) write(samples []int) error {
	return w.enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: w.format.Channels, SampleRate: w.format.SampleRate},
		Data:           samples,
		SourceBitDepth: w.format.BitDepth,
	})
}

// Close finalizes the header and closes the file.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.frames == 0 {
		// an empty file still gets a header
		if err := w.write(nil); err != nil {
			w.file.Close()
			return err
		}
	}
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Abandon closes the file without finalizing it, leaving whatever was
// written so far on disk.
func (w *WAVWriter) Abandon() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// Size returns the current size of the file in bytes.
func (w *WAVWriter) Size() (int64, error) {
	info, err := os.Stat(w.file.Name())
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// DecodeWAV reads a complete 16-bit PCM WAV stream.
func DecodeWAV(r io.ReadSeeker) (PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: not a valid WAV stream", ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decoding WAV: %w", err)
	}
	f := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if err := f.Validate(); err != nil {
		return PCM{}, err
	}
	data := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		s := uint16(clip16(float64(v)))
		data[2*i] = byte(s)
		data[2*i+1] = byte(s >> 8)
	}
	return PCM{Format: f, Data: data}, nil
}
