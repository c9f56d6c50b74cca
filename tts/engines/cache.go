package engines

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/dgnsrekt/localtts/tts/cache"
)

// pcmHeaderSize prefixes cached audio with its format: sample rate,
// channels and bit depth.
const pcmHeaderSize = 8

var errBadCacheEntry = errors.New("malformed cache entry")

// CachedBackend serves repeated renders from a cache. Entries are keyed
// on everything the backend output depends on; volume is left out since
// the runtime applies it after rendering.
type CachedBackend struct {
	Backend
	cache  cache.Cache
	logger *log.Logger
}

// NewCachedBackend wraps b with c.
func NewCachedBackend(b Backend, c cache.Cache, logger *log.Logger) *CachedBackend {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedBackend{Backend: b, cache: c, logger: logger}
}

// Unwrap returns the backend behind the cache.
func (cb *CachedBackend) Unwrap() Backend {
	return cb.Backend
}

// Stats returns the cache counters.
func (cb *CachedBackend) Stats() cache.Stats {
	return cb.cache.Stats()
}

func (cb *CachedBackend) key(u tts.Utterance) string {
	return cache.Key(
		cb.Name(),
		u.Voice.ID,
		strconv.FormatFloat(float64(u.Config.Rate), 'f', 3, 32),
		strconv.FormatFloat(float64(u.Config.PitchMultiplier), 'f', 3, 32),
		u.Text,
	)
}

// Render implements Backend.
func (cb *CachedBackend) Render(ctx context.Context, u tts.Utterance) (audio.PCM, error) {
	key := cb.key(u)
	if data, ok := cb.cache.Get(key); ok {
		pcm, err := decodePCM(data)
		if err == nil {
			cb.logger.Debug("render cache hit", "utterance", u.ID, "voice", u.Voice.ID)
			return pcm, nil
		}
		cb.logger.Warn("ignoring cache entry", "err", err)
	}

	pcm, err := cb.Backend.Render(ctx, u)
	if err != nil {
		return pcm, err //nolint:wrapcheck
	}
	if err := cb.cache.Put(key, encodePCM(pcm)); err != nil {
		cb.logger.Debug("render not cached", "utterance", u.ID, "err", err)
	}
	return pcm, nil
}

// Close closes the cache if it holds resources.
func (cb *CachedBackend) Close() error {
	s := cb.cache.Stats()
	cb.logger.Debug("render cache", "items", s.Items, "size", s.Size, "hit_rate", s.HitRate())
	if c, ok := cb.cache.(io.Closer); ok {
		return c.Close() //nolint:wrapcheck
	}
	return nil
}

func encodePCM(p audio.PCM) []byte {
	out := make([]byte, pcmHeaderSize+len(p.Data))
	binary.LittleEndian.PutUint32(out[0:], uint32(p.Format.SampleRate)) //nolint:gosec
	binary.LittleEndian.PutUint16(out[4:], uint16(p.Format.Channels))   //nolint:gosec
	binary.LittleEndian.PutUint16(out[6:], uint16(p.Format.BitDepth))   //nolint:gosec
	copy(out[pcmHeaderSize:], p.Data)
	return out
}

// decodePCM returns audio sharing data's memory; the runtime clones it
// before applying gain.
func decodePCM(data []byte) (audio.PCM, error) {
	if len(data) < pcmHeaderSize {
		return audio.PCM{}, errBadCacheEntry
	}
	f := audio.Format{
		SampleRate: int(binary.LittleEndian.Uint32(data[0:])),
		Channels:   int(binary.LittleEndian.Uint16(data[4:])),
		BitDepth:   int(binary.LittleEndian.Uint16(data[6:])),
	}
	if err := f.Validate(); err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %w", errBadCacheEntry, err)
	}
	return audio.PCM{Format: f, Data: data[pcmHeaderSize:]}, nil
}

// openCache builds the render cache described by cfg.
func openCache(cfg tts.CacheConfig) (*cache.Layered, error) {
	mem, err := cfg.MemoryBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrInvalidConfig, err)
	}
	disk, err := cfg.DiskBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrInvalidConfig, err)
	}
	return cache.Open(cache.Config{ //nolint:wrapcheck
		MemoryCapacity: mem,
		DiskCapacity:   disk,
		Dir:            cfg.Dir,
	})
}
