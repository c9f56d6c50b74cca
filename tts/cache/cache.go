// Package cache keeps rendered speech so repeated requests skip the
// engine. A Layered cache holds recent renderings in memory and, when a
// directory is configured, zstd-compressed copies on disk that survive
// restarts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Cache stores byte values under string keys.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // bytes
	Size      int64 // bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Key derives a fixed-length key from the parts that determine a value.
// Parts are separated so ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Config sizes a Layered cache.
type Config struct {
	MemoryCapacity int64
	DiskCapacity   int64
	// Dir holds the disk layer; empty keeps everything in memory.
	Dir string
	// CompressionLevel is a zstd level, 1 (fastest) to 22.
	CompressionLevel int
}

// Layered checks memory first, then disk, and promotes disk hits into
// memory.
type Layered struct {
	memory *MemoryCache
	disk   *DiskCache

	mu       sync.Mutex
	diskHits int64
}

// Open creates a layered cache for cfg.
func Open(cfg Config) (*Layered, error) {
	l := &Layered{memory: NewMemoryCache(cfg.MemoryCapacity)}
	if cfg.Dir == "" || cfg.DiskCapacity <= 0 {
		return l, nil
	}
	disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}
	l.disk = disk
	return l, nil
}

// Get implements Cache.
func (l *Layered) Get(key string) ([]byte, bool) {
	if v, ok := l.memory.Get(key); ok {
		return v, true
	}
	if l.disk == nil {
		return nil, false
	}
	v, ok := l.disk.Get(key)
	if !ok {
		return nil, false
	}

	l.mu.Lock()
	l.diskHits++
	l.mu.Unlock()
	_ = l.memory.Put(key, v)
	return v, true
}

// Put implements Cache. Values too large for memory still go to disk.
func (l *Layered) Put(key string, value []byte) error {
	memErr := l.memory.Put(key, value)
	if l.disk == nil {
		return memErr
	}
	if err := l.disk.Put(key, value); err != nil {
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

// Stats implements Cache. Hits count lookups served by either layer.
func (l *Layered) Stats() Stats {
	s := l.memory.Stats()
	if l.disk == nil {
		return s
	}
	d := l.disk.Stats()

	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Capacity:  s.Capacity + d.Capacity,
		Size:      s.Size + d.Size,
		Items:     d.Items,
		Hits:      s.Hits + l.diskHits,
		Misses:    s.Misses - l.diskHits,
		Evictions: s.Evictions + d.Evictions,
	}
}

// Close releases the disk layer's codecs.
func (l *Layered) Close() error {
	if l.disk == nil {
		return nil
	}
	return l.disk.Close()
}
