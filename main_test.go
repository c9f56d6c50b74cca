package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/dgnsrekt/localtts/tts/engines"
)

func tempInput(t *testing.T, name, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestReadInput(t *testing.T) {
	md := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(md, []byte("# Notes\n\nRead *this*.\n"), 0o600))

	tests := []struct {
		name  string
		args  []string
		file  string
		stdin string
		want  string
	}{
		{name: "words", args: []string{"hello", "there"}, want: "hello there"},
		{name: "file flag", file: md, want: "Notes\n\nRead this."},
		{name: "file argument", args: []string{md}, want: "Notes\n\nRead this."},
		{name: "dash reads stdin", args: []string{"-"}, stdin: "from a pipe", want: "from a pipe"},
		{name: "piped stdin", stdin: "piped", want: "piped"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readInput(tc.args, tc.file, tempInput(t, "stdin", tc.stdin))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReadInputEmpty(t *testing.T) {
	_, err := readInput(nil, "", tempInput(t, "stdin", "  \n"))
	assert.ErrorIs(t, err, tts.ErrEmptyText)

	_, err = readInput([]string{"-"}, "", tempInput(t, "stdin", ""))
	assert.ErrorIs(t, err, tts.ErrEmptyText)

	bin := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0xfd}, 0o600))
	_, err = readInput(nil, bin, tempInput(t, "stdin", ""))
	assert.ErrorIs(t, err, tts.ErrNotText)
}

func TestVoiceFilterFlags(t *testing.T) {
	f, err := voiceFilter("en", "female", "", "amy")
	require.NoError(t, err)
	assert.Equal(t, tts.VoiceFilter{Language: "en", Gender: tts.GenderFemale, Search: "amy"}, f)

	_, err = voiceFilter("", "robot", "", "")
	assert.Error(t, err)
	_, err = voiceFilter("", "", "ultra", "")
	assert.Error(t, err)
}

func TestPrintVoices(t *testing.T) {
	voices := []tts.Voice{
		{ID: "en_US-lessac-medium", Name: "lessac (medium)", Language: "en-US", Gender: tts.GenderUnspecified, Quality: tts.QualityEnhanced},
	}
	var buf bytes.Buffer
	printVoices(&buf, "piper", voices, 3)
	out := buf.String()
	assert.Contains(t, out, "en_US-lessac-medium")
	assert.Contains(t, out, "English [United States]")
	assert.Contains(t, out, "1 of 3 voices (piper)")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short", truncateName("short", 10))
	assert.Equal(t, "abcd…", truncateName("abcdefgh", 5))
}

func mockConfig(t *testing.T) tts.Config {
	t.Helper()
	cfg := tts.DefaultConfig()
	cfg.Engine = tts.EngineMock
	cfg.Mock.WordsPerMinute = 600
	cfg.ExportDir = t.TempDir()
	return cfg
}

func TestRunExport(t *testing.T) {
	cfg := mockConfig(t)
	dest := filepath.Join(t.TempDir(), "hello.wav")

	var buf bytes.Buffer
	require.NoError(t, runExport(context.Background(), cfg, "hello there world", dest, &buf))
	assert.Contains(t, buf.String(), "Exported "+dest)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	pcm, err := audio.DecodeWAV(f)
	require.NoError(t, err)
	assert.Equal(t, audio.ExportFormat, pcm.Format)
	assert.Positive(t, pcm.Frames())
}

func TestRunExportUnknownVoice(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Voice = "qqqq"
	err := runExport(context.Background(), cfg, "hello", "", &bytes.Buffer{})
	assert.ErrorIs(t, err, tts.ErrVoiceNotFound)

	entries, err := os.ReadDir(cfg.ExportDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// stalledBackend never finishes a render on its own.
type stalledBackend struct{}

func (stalledBackend) Name() string                                { return "stalled" }
func (stalledBackend) Available() error                            { return nil }
func (stalledBackend) Voices(context.Context) ([]tts.Voice, error) { return nil, nil }

func (stalledBackend) Render(ctx context.Context, _ tts.Utterance) (audio.PCM, error) {
	<-ctx.Done()
	return audio.PCM{}, ctx.Err() //nolint:wrapcheck
}

func TestExportStopsOnCancel(t *testing.T) {
	cfg := mockConfig(t)
	synth := engines.NewSynthesizer(stalledBackend{}, audio.NewNullOutput(audio.ExportFormat, 0))
	defer synth.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "partial.wav")
	err := export(ctx, synth, cfg, "never finished", dest, &bytes.Buffer{})
	require.ErrorIs(t, err, tts.ErrInterrupted)
	require.ErrorIs(t, err, context.Canceled)

	// the engine is shut down rather than left rendering
	u := tts.NewUtterance("again", tts.Voice{}, tts.DefaultUtteranceConfiguration())
	assert.ErrorIs(t, synth.Speak(u), tts.ErrEngineClosed)
	assert.FileExists(t, dest)
}

func TestSpeakWaitsForPlayback(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Voice = "Mock Kim"
	synth, err := newSynthesizer(cfg, false)
	require.NoError(t, err)
	defer synth.Close() //nolint:errcheck

	var buf bytes.Buffer
	require.NoError(t, speak(context.Background(), synth, cfg, "one two", &buf))
	assert.Contains(t, buf.String(), "Speaking with mock (Mock Kim)")
	assert.Contains(t, buf.String(), "Done")
}

func TestSpeakStopsOnCancel(t *testing.T) {
	cfg := mockConfig(t)
	synth, err := newSynthesizer(cfg, false)
	require.NoError(t, err)
	defer synth.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	require.NoError(t, speak(ctx, synth, cfg, strings.Repeat("word ", 200), &buf))
	assert.Contains(t, buf.String(), "Stopped")
}

func TestDefaultConfigParses(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(defaultConfig)))
	assert.Equal(t, tts.EngineAuto, v.GetString("tts.engine"))
	assert.InDelta(t, 0.5, v.GetFloat64("tts.rate"), 0.001)
	assert.Equal(t, 44100, v.GetInt("tts.player.sample_rate"))
	assert.Equal(t, "60s", v.GetString("tts.piper.timeout"))
}

func TestEnsureConfigFile(t *testing.T) {
	orig := configFile
	t.Cleanup(func() { configFile = orig })

	configFile = filepath.Join(t.TempDir(), "nested", "localtts.yml")
	require.NoError(t, ensureConfigFile())
	b, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, string(b))

	// an existing file is left alone
	require.NoError(t, os.WriteFile(configFile, []byte("tts:\n  engine: mock\n"), 0o600))
	require.NoError(t, ensureConfigFile())
	b, err = os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, "tts:\n  engine: mock\n", string(b))

	configFile = filepath.Join(t.TempDir(), "localtts.toml")
	assert.Error(t, ensureConfigFile())
}
