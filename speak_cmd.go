package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/engines"
)

var (
	inputFile  string
	outputPath string

	speakCmd = &cobra.Command{
		Use:     "speak [TEXT]",
		Short:   "Say text out loud",
		Long:    paragraph(fmt.Sprintf("\n%s text, a file or stdin and wait until it has been said. Press ctrl+c to stop.", keyword("Speak"))),
		Example: paragraph("localtts speak \"Hello there\"\nlocaltts speak -f notes.md --voice en_US-lessac-medium\necho hi | localtts speak -"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args, inputFile, os.Stdin)
			if err != nil {
				return err
			}
			return runSpeak(cmd.Context(), ttsConfig, text, cmd.OutOrStdout())
		},
	}

	exportCmd = &cobra.Command{
		Use:     "export [TEXT]",
		Short:   "Save spoken text as a WAV file",
		Long:    paragraph(fmt.Sprintf("\n%s text, a file or stdin to a mono 16-bit 22050 Hz WAV file.", keyword("Export"))),
		Example: paragraph("localtts export \"Hello there\" -o hello.wav\nlocaltts export -f notes.md"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args, inputFile, os.Stdin)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), ttsConfig, text, outputPath, cmd.OutOrStdout())
		},
	}
)

// readInput returns the text to speak: the argument, the file, or stdin
// when the argument is "-" or stdin is piped.
func readInput(args []string, file string, stdin *os.File) (string, error) {
	var text string
	switch {
	case file != "":
		t, ok := tts.ImportText(file)
		if !ok {
			return "", fmt.Errorf("unable to import %s: %w", file, tts.ErrNotText)
		}
		text = t
	case len(args) == 1 && args[0] == "-", len(args) == 0 && stdinIsPipe(stdin):
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		text = string(b)
	case len(args) > 0:
		if t, ok := tts.ImportText(args[0]); ok && len(args) == 1 {
			text = t
		} else {
			text = strings.Join(args, " ")
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", tts.ErrEmptyText
	}
	return text, nil
}

func stdinIsPipe(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0
}

// resolveVoice looks up the configured voice. An empty name picks the
// engine's default.
func resolveVoice(ctx context.Context, catalog tts.VoiceCatalog, name string) (tts.Voice, error) {
	if name == "" {
		return tts.Voice{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	voices, err := catalog.Voices(ctx)
	if err != nil {
		return tts.Voice{}, fmt.Errorf("unable to list voices: %w", err)
	}
	v, err := tts.ResolveVoice(voices, name)
	if err != nil {
		return tts.Voice{}, fmt.Errorf("%q: %w", name, err)
	}
	return v, nil
}

func runSpeak(ctx context.Context, cfg tts.Config, text string, w io.Writer) error {
	synth, err := newSynthesizer(cfg, true)
	if err != nil {
		return err
	}
	defer synth.Close() //nolint:errcheck
	return speak(ctx, synth, cfg, text, w)
}

// speak plays text and blocks until the engine goes idle again or ctx
// is done. An interrupt stops playback.
func speak(ctx context.Context, synth *engines.Synthesizer, cfg tts.Config, text string, w io.Writer) error {
	voice, err := resolveVoice(ctx, synth, cfg.Voice)
	if err != nil {
		return err
	}

	dispatch := tts.NewSerialDispatcher(16)
	defer dispatch.Close()

	controller := tts.NewController(synth, tts.WithDispatcher(dispatch), tts.WithLogger(log.Default().WithPrefix("controller")))
	states := make(chan tts.StateType, 16)
	cancel := controller.Subscribe(func(s tts.StateType) {
		select {
		case states <- s:
		default:
		}
	})
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	controller.Speak(text, voice, cfg.Utterance())
	status(w, "Speaking with %s (%s)", synth.Name(), voiceLabel(voice))

	timeout := time.NewTimer(engineStartTimeout(cfg))
	defer timeout.Stop()

	started := false
	for {
		select {
		case s := <-states:
			log.Debug("playback state", "state", s)
			switch {
			case s.IsActive():
				started = true
			case started:
				status(w, "Done")
				return nil
			}
		case <-ctx.Done():
			controller.Stop()
			warn(w, "Stopped")
			return nil
		case <-timeout.C:
			if !started {
				return fmt.Errorf("engine did not start: %w", tts.ErrGenerationFailed)
			}
		}
	}
}

// engineStartTimeout bounds the wait for the first audio. Rendering
// happens before playback starts, so it follows the engine's timeout.
func engineStartTimeout(cfg tts.Config) time.Duration {
	return max(cfg.Piper.Timeout, cfg.Espeak.Timeout) + 5*time.Second
}

func runExport(ctx context.Context, cfg tts.Config, text, dest string, w io.Writer) error {
	synth, err := newSynthesizer(cfg, false)
	if err != nil {
		return err
	}
	defer synth.Close() //nolint:errcheck
	return export(ctx, synth, cfg, text, dest, w)
}

func export(ctx context.Context, synth *engines.Synthesizer, cfg tts.Config, text, dest string, w io.Writer) error {
	voice, err := resolveVoice(ctx, synth, cfg.Voice)
	if err != nil {
		return err
	}

	type outcome struct {
		res tts.ExportResult
		err error
	}
	done := make(chan outcome, 1)

	exporter := tts.NewExporter(synth,
		tts.WithExportDir(cfg.ExportDir),
		tts.WithExportLogger(log.Default().WithPrefix("export")),
	)
	started := exporter.ExportToFile(text, voice, cfg.Utterance(), dest, tts.ExportHandler{
		OnFinished: func(res tts.ExportResult) { done <- outcome{res: res} },
		OnFailed:   func(err error) { done <- outcome{err: err} },
	})
	if !started {
		return tts.ErrEmptyText
	}

	select {
	case o := <-done:
		if o.err != nil {
			return o.err
		}
		status(w, "Exported %s", o.res.Path)
		detail(w, "%s, %s, %s", o.res.Duration.Round(10*time.Millisecond), humanize.IBytes(uint64(max(o.res.Bytes, 0))), voiceLabel(voice))
		return nil
	case <-ctx.Done():
		// Closing the engine aborts the write and leaves the partial file.
		if err := synth.Close(); err != nil {
			log.Debug("closing engine", "err", err)
		}
		return errors.Join(ctx.Err(), tts.ErrInterrupted)
	}
}

func voiceLabel(v tts.Voice) string {
	if v == (tts.Voice{}) {
		return "default voice"
	}
	return v.String()
}

func init() {
	for _, c := range []*cobra.Command{speakCmd, exportCmd} {
		c.Flags().StringVarP(&inputFile, "file", "f", "", "read text from a file (.txt or .md)")
	}
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "destination WAV file (default: a new file in the export directory)")
}
