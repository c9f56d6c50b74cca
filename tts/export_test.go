package tts_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportOutcome struct {
	finished []tts.ExportResult
	failed   []error
	progress []int
}

func (o *exportOutcome) handler() tts.ExportHandler {
	return tts.ExportHandler{
		OnFinished: func(r tts.ExportResult) { o.finished = append(o.finished, r) },
		OnFailed:   func(err error) { o.failed = append(o.failed, err) },
		OnProgress: func(frames int) { o.progress = append(o.progress, frames) },
	}
}

func ramp(frames int, start int16) audio.Buffer {
	data := make([]byte, 0, frames*2)
	for i := 0; i < frames; i++ {
		v := uint16(start + int16(i))
		data = append(data, byte(v), byte(v>>8))
	}
	return audio.Buffer{Format: audio.ExportFormat, Data: data}
}

func TestExportIgnoresBlankText(t *testing.T) {
	synth := &fakeSynth{}
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.wav")
	var out exportOutcome

	started := tts.NewExporter(synth).ExportToFile("  \n", alex, tts.DefaultUtteranceConfiguration(), dest, out.handler())

	assert.False(t, started)
	assert.Empty(t, synth.written)
	assert.NoFileExists(t, dest)
	assert.Empty(t, out.finished)
	assert.Empty(t, out.failed)
}

func TestExportWritesBuffersInOrder(t *testing.T) {
	synth := &fakeSynth{}
	dest := filepath.Join(t.TempDir(), "out.wav")
	var out exportOutcome

	require.True(t, tts.NewExporter(synth).ExportToFile("Export me", alex, tts.DefaultUtteranceConfiguration(), dest, out.handler()))
	require.Len(t, synth.written, 1)
	assert.Equal(t, audio.ExportFormat, synth.format)
	assert.Equal(t, "Export me", synth.written[0].Text)
	assert.FileExists(t, dest, "file exists before the first buffer")

	a, b := ramp(100, 0), ramp(50, 1000)
	require.NoError(t, synth.sink.WriteBuffer(a))
	require.NoError(t, synth.sink.WriteBuffer(b))
	require.NoError(t, synth.sink.WriteBuffer(audio.EndOfStream(audio.ExportFormat)))

	require.Len(t, out.finished, 1)
	assert.Empty(t, out.failed)
	res := out.finished[0]
	assert.Equal(t, dest, res.Path)
	assert.Equal(t, 150, res.Frames)
	assert.Greater(t, res.Bytes, int64(300))
	assert.NotEmpty(t, out.progress)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	pcm, err := audio.DecodeWAV(f)
	require.NoError(t, err)
	assert.Equal(t, audio.ExportFormat, pcm.Format)
	assert.Equal(t, append(append([]byte{}, a.Data...), b.Data...), pcm.Data)

	// the stream is over
	assert.ErrorIs(t, synth.sink.WriteBuffer(a), tts.ErrExportClosed)
	synth.sink.Abort(errors.New("late"))
	assert.Len(t, out.finished, 1)
	assert.Empty(t, out.failed)
}

func TestExportReportsWriteFailureOnce(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	synth := &fakeSynth{}
	var out exportOutcome

	require.True(t, tts.NewExporter(synth).ExportToFile("Disk is full", alex, tts.DefaultUtteranceConfiguration(), "/dev/full", out.handler()))

	err := synth.sink.WriteBuffer(ramp(100, 0))
	require.Error(t, err)
	assert.ErrorIs(t, synth.sink.WriteBuffer(ramp(50, 0)), tts.ErrExportClosed)
	assert.ErrorIs(t, synth.sink.WriteBuffer(audio.EndOfStream(audio.ExportFormat)), tts.ErrExportClosed)
	synth.sink.Abort(errors.New("engine stopped"))

	require.Len(t, out.failed, 1)
	assert.ErrorIs(t, out.failed[0], tts.ErrExportWrite)
	assert.Empty(t, out.finished)
}

func TestExportRejectsUnexpectedFormat(t *testing.T) {
	synth := &fakeSynth{}
	dest := filepath.Join(t.TempDir(), "out.wav")
	var out exportOutcome

	tts.NewExporter(synth).ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), dest, out.handler())
	require.NoError(t, synth.sink.WriteBuffer(ramp(10, 0)))

	wrong := audio.Buffer{Format: audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, Data: make([]byte, 20)}
	assert.ErrorIs(t, synth.sink.WriteBuffer(wrong), tts.ErrBufferFormat)

	require.Len(t, out.failed, 1)
	assert.ErrorIs(t, out.failed[0], tts.ErrBufferFormat)
	assert.Contains(t, out.failed[0].Error(), "write buffer 2")
	assert.FileExists(t, dest, "partial file is kept")
}

func TestExportAbortReportsFailure(t *testing.T) {
	synth := &fakeSynth{}
	var out exportOutcome
	tts.NewExporter(synth).ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), filepath.Join(t.TempDir(), "x.wav"), out.handler())

	synth.sink.Abort(tts.ErrInterrupted)
	synth.sink.Abort(tts.ErrInterrupted)
	require.Len(t, out.failed, 1)
	assert.ErrorIs(t, out.failed[0], tts.ErrInterrupted)
}

func TestExportCallbacksMayReenterSink(t *testing.T) {
	synth := &fakeSynth{}
	var out exportOutcome
	h := out.handler()
	// the UI may interrupt the export from inside a progress callback
	h.OnProgress = func(frames int) {
		out.progress = append(out.progress, frames)
		synth.sink.Abort(tts.ErrInterrupted)
	}
	tts.NewExporter(synth).ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), filepath.Join(t.TempDir(), "x.wav"), h)

	done := make(chan error, 1)
	go func() { done <- synth.sink.WriteBuffer(ramp(10, 0)) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WriteBuffer deadlocked on a reentrant callback")
	}

	assert.Equal(t, []int{10}, out.progress)
	require.Len(t, out.failed, 1)
	assert.ErrorIs(t, out.failed[0], tts.ErrInterrupted)
	assert.ErrorIs(t, synth.sink.WriteBuffer(ramp(10, 0)), tts.ErrExportClosed)
}

func TestExportRejectedByEngine(t *testing.T) {
	synth := &fakeSynth{writeErr: tts.ErrEngineNotAvailable}
	dest := filepath.Join(t.TempDir(), "out.wav")
	var out exportOutcome

	tts.NewExporter(synth).ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), dest, out.handler())

	require.Len(t, out.failed, 1)
	assert.ErrorIs(t, out.failed[0], tts.ErrEngineNotAvailable)
	assert.NoFileExists(t, dest)
}

func TestExportCreateFailure(t *testing.T) {
	synth := &fakeSynth{}
	var out exportOutcome
	dest := filepath.Join(t.TempDir(), "missing", "out.wav")

	tts.NewExporter(synth).ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), dest, out.handler())

	require.Len(t, out.failed, 1)
	assert.Empty(t, synth.written, "engine is not asked to render")
}

func TestExportDefaultsToTempPath(t *testing.T) {
	synth := &fakeSynth{}
	dir := t.TempDir()
	var out exportOutcome
	e := tts.NewExporter(synth, tts.WithExportDir(dir))

	e.ExportToFile("Hi", alex, tts.DefaultUtteranceConfiguration(), "", out.handler())
	require.NoError(t, synth.sink.WriteBuffer(audio.EndOfStream(audio.ExportFormat)))

	require.Len(t, out.finished, 1)
	path := out.finished[0].Path
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".wav"))
	assert.Len(t, strings.TrimSuffix(filepath.Base(path), ".wav"), 36)
	assert.NotEqual(t, e.TempPath(), e.TempPath())
}
