// Package piper provides the Piper TTS engine integration. Each request
// runs a fresh piper process against an installed .onnx voice model and
// reads raw 16-bit PCM from its stdout.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// Model is an installed piper voice: the .onnx network plus its json
// description.
type Model struct {
	Voice      tts.Voice
	Path       string
	SampleRate int
}

// modelConfig is the part of <model>.onnx.json that matters here.
type modelConfig struct {
	Dataset  string `json:"dataset"`
	Language struct {
		Code        string `json:"code"`
		NameEnglish string `json:"name_english"`
	} `json:"language"`
	Audio struct {
		SampleRate int    `json:"sample_rate"`
		Quality    string `json:"quality"`
	} `json:"audio"`
}

// Engine is the piper backend.
type Engine struct {
	config tts.PiperConfig
	logger *log.Logger
}

// New creates a piper backend.
func New(config tts.PiperConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{config: config, logger: logger.WithPrefix("piper")}
}

// Name returns the backend name.
func (e *Engine) Name() string {
	return tts.EnginePiper
}

// Available checks that the binary is on the path and a model exists.
func (e *Engine) Available() error {
	if _, err := exec.LookPath(e.config.Binary); err != nil {
		return fmt.Errorf("%w: piper binary %q: %w", tts.ErrEngineNotAvailable, e.config.Binary, err)
	}
	if len(e.Models()) == 0 {
		return fmt.Errorf("%w: no piper models in %s", tts.ErrEngineNotAvailable, strings.Join(e.config.ModelDirs, ", "))
	}
	return nil
}

// Voices returns one voice per installed model.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	models := e.Models()
	voices := make([]tts.Voice, 0, len(models))
	for _, m := range models {
		voices = append(voices, m.Voice)
	}
	return voices, nil
}

// Models scans the model directories. Models without a readable json
// description are skipped; the first directory wins on duplicate IDs.
func (e *Engine) Models() []Model {
	var models []Model
	seen := make(map[string]bool)
	for _, dir := range e.config.ModelDirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.onnx"))
		if err != nil {
			continue
		}
		slices.Sort(paths)
		for _, path := range paths {
			m, err := LoadModel(path)
			if err != nil {
				e.logger.Debug("skipping model", "path", path, "err", err)
				continue
			}
			if seen[m.Voice.ID] {
				continue
			}
			seen[m.Voice.ID] = true
			models = append(models, m)
		}
	}
	return models
}

// LoadModel reads the description next to the .onnx file at path.
func LoadModel(path string) (Model, error) {
	raw, err := os.ReadFile(path + ".json")
	if err != nil {
		return Model{}, err
	}
	var cfg modelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Model{}, fmt.Errorf("parsing %s.json: %w", filepath.Base(path), err)
	}
	if cfg.Audio.SampleRate <= 0 {
		return Model{}, fmt.Errorf("%s.json: missing sample rate", filepath.Base(path))
	}

	id := strings.TrimSuffix(filepath.Base(path), ".onnx")
	name := cfg.Dataset
	if name == "" {
		name = id
	}
	if cfg.Audio.Quality != "" {
		name = fmt.Sprintf("%s (%s)", name, strings.ReplaceAll(cfg.Audio.Quality, "_", " "))
	}
	return Model{
		Voice: tts.Voice{
			ID:       id,
			Name:     name,
			Language: strings.ReplaceAll(cfg.Language.Code, "_", "-"),
			Gender:   tts.GenderUnspecified,
			Quality:  quality(cfg.Audio.Quality),
		},
		Path:       path,
		SampleRate: cfg.Audio.SampleRate,
	}, nil
}

func quality(q string) tts.Quality {
	switch q {
	case "medium":
		return tts.QualityEnhanced
	case "high":
		return tts.QualityPremium
	}
	return tts.QualityDefault
}

// model finds the model for voice; an empty ID selects the first model.
func (e *Engine) model(v tts.Voice) (Model, error) {
	models := e.Models()
	if len(models) == 0 {
		return Model{}, tts.ErrEngineNotAvailable
	}
	if v.ID == "" {
		return models[0], nil
	}
	for _, m := range models {
		if m.Voice.ID == v.ID {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %s", tts.ErrVoiceNotFound, v.ID)
}

// Args returns the piper command line for model m at cfg.
func Args(m Model, cfg tts.UtteranceConfiguration) []string {
	return []string{
		"--model", m.Path,
		"--output-raw",
		"--length-scale", strconv.FormatFloat(lengthScale(cfg), 'f', 3, 64),
	}
}

// lengthScale stretches phonemes for the rate and pre-compensates for the
// speed-up that relabeling the sample rate causes in pitchShift.
func lengthScale(cfg tts.UtteranceConfiguration) float64 {
	cfg = cfg.Clamp()
	return float64(cfg.PitchMultiplier) / cfg.SpeedFactor()
}

// Render runs piper once for u.
func (e *Engine) Render(ctx context.Context, u tts.Utterance) (audio.PCM, error) {
	m, err := e.model(u.Voice)
	if err != nil {
		return audio.PCM{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	args := Args(m, u.Config)
	e.logger.Debug("running piper", "binary", e.config.Binary, "args", args)
	cmd := exec.CommandContext(ctx, e.config.Binary, args...)
	cmd.Stdin = strings.NewReader(strings.Join(strings.Fields(u.Text), " ") + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return audio.PCM{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return audio.PCM{}, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(lastLine(stderr.String())))
		}
		return audio.PCM{}, fmt.Errorf("piper failed: %w", err)
	}
	if len(out) < 2 {
		return audio.PCM{}, errors.New("piper produced no audio")
	}
	out = out[:len(out)&^1]

	pcm := audio.PCM{
		Format: audio.Format{SampleRate: m.SampleRate, Channels: 1, BitDepth: 16},
		Data:   out,
	}
	return pitchShift(pcm, u.Config.Clamp().PitchMultiplier), nil
}

// pitchShift relabels the sample rate so that resampling to the output
// rate raises or lowers pitch by factor.
func pitchShift(p audio.PCM, factor float32) audio.PCM {
	rate := int(float64(p.Format.SampleRate) * float64(factor))
	rate = max(rate, 8000)
	p.Format.SampleRate = rate
	return p
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
