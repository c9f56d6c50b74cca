package engines

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/dgnsrekt/localtts/tts/engines/espeak"
	"github.com/dgnsrekt/localtts/tts/engines/mock"
	"github.com/dgnsrekt/localtts/tts/engines/piper"
)

// maxPrimaryFailures is how many render failures the auto engine allows
// before it switches to its fallback.
const maxPrimaryFailures = 3

// NewBackend picks the backend named by cfg.Engine. With EngineAuto it
// prefers piper, then espeak, and falls back to mock when neither is
// installed.
func NewBackend(cfg tts.Config, logger *log.Logger) (Backend, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch cfg.Engine {
	case tts.EnginePiper:
		return piper.New(cfg.Piper, logger), nil
	case tts.EngineEspeak:
		return espeak.New(cfg.Espeak, logger), nil
	case tts.EngineMock:
		return mock.New(cfg.Mock.WordsPerMinute), nil
	case tts.EngineAuto, "":
		return autoBackend(cfg, logger), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrInvalidConfig, cfg.Engine)
}

func autoBackend(cfg tts.Config, logger *log.Logger) Backend {
	var available []Backend
	for _, b := range []Backend{piper.New(cfg.Piper, logger), espeak.New(cfg.Espeak, logger)} {
		if err := b.Available(); err != nil {
			logger.Debug("engine not available", "engine", b.Name(), "err", err)
			continue
		}
		available = append(available, b)
	}

	switch len(available) {
	case 0:
		logger.Warn("no speech engine installed, using the mock engine")
		return mock.New(cfg.Mock.WordsPerMinute)
	case 1:
		return available[0]
	}
	f := NewFallback(available[0], available[1], maxPrimaryFailures, logger)
	logger.Debug("engine selected", "status", f.Status())
	return f
}

// New builds a Synthesizer for cfg that plays on out. Renders from real
// engines go through the render cache when it is enabled.
func New(cfg tts.Config, out audio.Output, logger *log.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = log.Default()
	}
	b, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	name := b.Name()
	if cfg.Cache.Enabled && name != tts.EngineMock {
		c, err := openCache(cfg.Cache)
		if err != nil {
			logger.Warn("render cache disabled", "err", err)
		} else {
			b = NewCachedBackend(b, c, logger.WithPrefix("cache"))
		}
	}
	return NewSynthesizer(b, out, WithLogger(logger.WithPrefix(name))), nil
}
