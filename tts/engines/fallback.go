package engines

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// Fallback wraps a primary backend and switches to a secondary one when
// the primary fails repeatedly.
type Fallback struct {
	primary     Backend
	fallback    Backend
	maxFailures int
	logger      *log.Logger

	mu            sync.RWMutex
	failures      int
	usingFallback bool
}

// NewFallback creates a backend that moves to fallback after maxFailures
// consecutive render failures of primary.
func NewFallback(primary, fallback Backend, maxFailures int, logger *log.Logger) *Fallback {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fallback{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		logger:      logger,
	}
}

func (f *Fallback) active() Backend {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}

// Name returns the name of the backend currently in use.
func (f *Fallback) Name() string {
	return f.active().Name()
}

// Available succeeds if either backend is available.
func (f *Fallback) Available() error {
	perr := f.primary.Available()
	if perr == nil {
		return nil
	}
	if ferr := f.fallback.Available(); ferr != nil {
		return fmt.Errorf("%w: primary=%v, fallback=%v", tts.ErrEngineNotAvailable, perr, ferr)
	}
	f.mu.Lock()
	if !f.usingFallback {
		f.logger.Warn("primary engine not available, switching to fallback", "primary", f.primary.Name(), "fallback", f.fallback.Name())
		f.usingFallback = true
	}
	f.mu.Unlock()
	return nil
}

// Voices returns voices from the active backend.
func (f *Fallback) Voices(ctx context.Context) ([]tts.Voice, error) {
	return f.active().Voices(ctx)
}

// Render renders with the active backend, with automatic fallback.
func (f *Fallback) Render(ctx context.Context, u tts.Utterance) (audio.PCM, error) {
	f.mu.RLock()
	usingFallback := f.usingFallback
	f.mu.RUnlock()

	if usingFallback {
		return f.fallback.Render(ctx, u)
	}

	pcm, err := f.primary.Render(ctx, u)
	if err == nil {
		f.mu.Lock()
		if f.failures > 0 {
			f.logger.Info("primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return pcm, nil
	}
	if ctx.Err() != nil {
		return audio.PCM{}, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	f.logger.Warn("primary engine failed", "attempt", failures, "max", f.maxFailures, "err", err)
	if failures < f.maxFailures {
		f.mu.Unlock()
		return audio.PCM{}, err
	}
	f.logger.Warn("switching to fallback engine", "fallback", f.fallback.Name(), "failures", failures)
	f.usingFallback = true
	f.mu.Unlock()

	pcm, ferr := f.fallback.Render(ctx, u)
	if ferr != nil {
		return audio.PCM{}, fmt.Errorf("both engines failed: %w", ferr)
	}
	return pcm, nil
}

// Reset returns to the primary backend.
func (f *Fallback) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
	f.usingFallback = false
	f.logger.Info("reset to primary engine")
}

// Status describes which backend is in use.
func (f *Fallback) Status() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.usingFallback {
		return fmt.Sprintf("using fallback engine %s (primary failed %d times)", f.fallback.Name(), f.failures)
	}
	return fmt.Sprintf("using primary engine %s (failures: %d/%d)", f.primary.Name(), f.failures, f.maxFailures)
}
