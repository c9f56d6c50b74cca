package tts

import (
	"fmt"
	"math/rand/v2"
)

// Prosody limits.
const (
	MinRate   float32 = 0.1
	MaxRate   float32 = 1.0
	MinVolume float32 = 0.1
	MaxVolume float32 = 1.0
	MinPitch  float32 = 0.2
	MaxPitch  float32 = 2.0

	// NeutralRate is the engine's normal speaking rate.
	NeutralRate float32 = 0.5
)

// UtteranceConfiguration is the prosody snapshot for one utterance.
type UtteranceConfiguration struct {
	Rate            float32
	Volume          float32
	PitchMultiplier float32
}

// DefaultUtteranceConfiguration returns the neutral configuration.
func DefaultUtteranceConfiguration() UtteranceConfiguration {
	return UtteranceConfiguration{
		Rate:            NeutralRate,
		Volume:          1.0,
		PitchMultiplier: 1.0,
	}
}

// Validate reports values outside the supported ranges.
func (c UtteranceConfiguration) Validate() error {
	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("%w: rate must be between %.1f and %.1f, got %.2f", ErrInvalidConfig, MinRate, MaxRate, c.Rate)
	}
	if c.Volume < MinVolume || c.Volume > MaxVolume {
		return fmt.Errorf("%w: volume must be between %.1f and %.1f, got %.2f", ErrInvalidConfig, MinVolume, MaxVolume, c.Volume)
	}
	if c.PitchMultiplier < MinPitch || c.PitchMultiplier > MaxPitch {
		return fmt.Errorf("%w: pitch must be between %.1f and %.1f, got %.2f", ErrInvalidConfig, MinPitch, MaxPitch, c.PitchMultiplier)
	}
	return nil
}

// Clamp forces every value into range.
func (c UtteranceConfiguration) Clamp() UtteranceConfiguration {
	return UtteranceConfiguration{
		Rate:            clamp(c.Rate, MinRate, MaxRate),
		Volume:          clamp(c.Volume, MinVolume, MaxVolume),
		PitchMultiplier: clamp(c.PitchMultiplier, MinPitch, MaxPitch),
	}
}

// Randomize picks a pleasant random configuration.
func Randomize(rng *rand.Rand) UtteranceConfiguration {
	between := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}
	return UtteranceConfiguration{
		Rate:            between(0.35, 0.65),
		Volume:          between(0.7, 1.0),
		PitchMultiplier: between(0.9, 1.3),
	}
}

// SpeedFactor maps the rate to a multiple of the neutral speed: 0.5 is
// 1x, 1.0 is 2x and 0.1 is 0.2x.
func (c UtteranceConfiguration) SpeedFactor() float64 {
	return float64(clamp(c.Rate, MinRate, MaxRate) / NeutralRate)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
