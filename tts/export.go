package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/localtts/tts/audio"
)

// ExportResult describes a finished export.
type ExportResult struct {
	Path     string
	Frames   int
	Bytes    int64
	Duration time.Duration
}

// ExportHandler receives the outcome of an export. Exactly one of
// OnFinished or OnFailed is called, through the exporter's dispatcher.
type ExportHandler struct {
	OnFinished func(ExportResult)
	OnFailed   func(error)
	// OnProgress, if set, receives the number of frames written so far.
	OnProgress func(frames int)
}

// Exporter writes synthesized speech to WAV files.
type Exporter struct {
	synth    Synthesizer
	dispatch Dispatcher
	logger   *log.Logger
	dir      string
	progress time.Duration
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportDispatcher sets where handler callbacks run.
func WithExportDispatcher(d Dispatcher) ExporterOption {
	return func(e *Exporter) { e.dispatch = d }
}

// WithExportDir sets the directory for exports without a destination.
// The system temp directory is used when dir is empty.
func WithExportDir(dir string) ExporterOption {
	return func(e *Exporter) { e.dir = dir }
}

// WithExportLogger sets the exporter's logger.
func WithExportLogger(l *log.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// WithProgressInterval sets the minimum time between progress reports.
func WithProgressInterval(d time.Duration) ExporterOption {
	return func(e *Exporter) { e.progress = d }
}

// NewExporter creates an exporter that renders through synth.
func NewExporter(synth Synthesizer, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		synth:    synth,
		dispatch: ImmediateDispatcher{},
		logger:   log.Default().WithPrefix("export"),
		progress: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TempPath returns a fresh, process-unique path for an export.
func (e *Exporter) TempPath() string {
	dir := e.dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, uuid.NewString()+".wav")
}

// ExportToFile renders text into a mono 16-bit 22050 Hz WAV file at
// dest, or at TempPath when dest is empty. It returns false, creating
// nothing, when text is blank. The outcome is reported through h.
func (e *Exporter) ExportToFile(text string, voice Voice, config UtteranceConfiguration, dest string, h ExportHandler) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if dest == "" {
		dest = e.TempPath()
	}

	job := &exportJob{
		exporter: e,
		path:     dest,
		format:   audio.ExportFormat,
		handler:  h,
		progress: rate.Sometimes{Interval: e.progress},
	}

	w, err := audio.CreateWAV(dest, job.format)
	if err != nil {
		job.fail(NewTTSError(err, "export", "create file"))
		return true
	}
	job.writer = w

	u := NewUtterance(text, voice, config)
	if err := e.synth.Write(u, job.format, job); err != nil {
		_ = w.Abandon()
		_ = os.Remove(dest)
		job.fail(NewTTSError(err, "export", "start synthesis"))
		return true
	}
	e.logger.Debug("export started", "utterance", u.ID, "path", dest, "voice", voice.ID)
	return true
}

// exportJob is the buffer sink for one export.
type exportJob struct {
	exporter *Exporter
	path     string
	format   audio.Format
	handler  ExportHandler
	progress rate.Sometimes

	mu      sync.Mutex
	writer  *audio.WAVWriter
	buffers int
	done    bool
}

// WriteBuffer implements BufferSink. Handler callbacks are dispatched
// after j.mu is released.
func (j *exportJob) WriteBuffer(b audio.Buffer) error {
	notify, err := j.write(b)
	if notify != nil {
		notify()
	}
	return err
}

func (j *exportJob) write(b audio.Buffer) (func(), error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.done {
		return nil, ErrExportClosed
	}
	if b.FrameLength() == 0 {
		j.done = true
		if err := j.writer.Close(); err != nil {
			failure := NewTTSError(fmt.Errorf("%w: %w", ErrExportWrite, err), "export", "finalize "+j.path)
			return func() { j.fail(failure) }, err
		}
		res := j.result()
		return func() { j.finish(res) }, nil
	}

	if b.Format != j.format {
		err := fmt.Errorf("%w: got %s, want %s", ErrBufferFormat, b.Format, j.format)
		return j.abandon(err), err
	}
	if err := j.writer.Append(b); err != nil {
		return j.abandon(fmt.Errorf("%w: %w", ErrExportWrite, err)), err
	}
	j.buffers++

	var notify func()
	if j.handler.OnProgress != nil {
		frames := j.writer.Frames()
		j.progress.Do(func() {
			notify = func() { j.exporter.dispatch.Dispatch(func() { j.handler.OnProgress(frames) }) }
		})
	}
	return notify, nil
}

// Abort implements BufferSink.
func (j *exportJob) Abort(err error) {
	j.mu.Lock()
	if j.done {
		j.mu.Unlock()
		return
	}
	notify := j.abandon(err)
	j.mu.Unlock()
	notify()
}

// abandon leaves the partial file on disk and returns the failure report.
// j.mu is held.
func (j *exportJob) abandon(err error) func() {
	j.done = true
	if cerr := j.writer.Abandon(); cerr != nil {
		j.exporter.logger.Debug("closing partial export", "path", j.path, "err", cerr)
	}
	failure := NewTTSError(err, "export", fmt.Sprintf("write buffer %d to %s", j.buffers+1, j.path))
	return func() { j.fail(failure) }
}

// result describes the closed file. j.mu is held.
func (j *exportJob) result() ExportResult {
	res := ExportResult{
		Path:     j.path,
		Frames:   j.writer.Frames(),
		Duration: j.format.FrameDuration(j.writer.Frames()),
	}
	if info, err := os.Stat(j.path); err == nil {
		res.Bytes = info.Size()
	}
	return res
}

func (j *exportJob) finish(res ExportResult) {
	j.exporter.logger.Info("export finished", "path", res.Path, "frames", res.Frames, "duration", res.Duration)
	if j.handler.OnFinished != nil {
		j.exporter.dispatch.Dispatch(func() { j.handler.OnFinished(res) })
	}
}

func (j *exportJob) fail(err error) {
	j.exporter.logger.Error("export failed", "path", j.path, "err", err)
	if j.handler.OnFailed != nil {
		j.exporter.dispatch.Dispatch(func() { j.handler.OnFailed(err) })
	}
}
