package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const diskExt = ".zst"

// DiskCache stores zstd-compressed values as one file per key. The index
// is rebuilt from the directory on open, with file modification times
// standing in for last access.
type DiskCache struct {
	dir      string
	capacity int64 // compressed bytes on disk

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry
	stats Stats
}

type diskEntry struct {
	path       string
	size       int64
	lastAccess time.Time
}

// NewDiskCache opens or creates a disk cache in dir.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if level <= 0 {
		level = 3
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		encoder:  enc,
		decoder:  dec,
		index:    make(map[string]*diskEntry),
	}
	if err := dc.load(); err != nil {
		dc.Close() //nolint:errcheck
		return nil, err
	}
	return dc, nil
}

func (dc *DiskCache) load() error {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, diskExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, diskExt)
		dc.index[key] = &diskEntry{
			path:       filepath.Join(dc.dir, name),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		dc.size += info.Size()
	}
	for dc.size > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}
	return nil
}

// fileKey maps a key to a file name stem. Keys from Key pass through.
func fileKey(key string) string {
	if key == "" || len(key) > 128 || strings.ContainsAny(key, `/\.`) {
		return Key(key)
	}
	return key
}

// Get implements Cache. Unreadable or corrupt files are dropped.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	fk := fileKey(key)
	entry, ok := dc.index[fk]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.path)
	if err == nil {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.drop(fk)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.lastAccess = now
	_ = os.Chtimes(entry.path, now, now)
	dc.stats.Hits++
	return data, true
}

// Put implements Cache.
func (dc *DiskCache) Put(key string, value []byte) error {
	compressed := dc.encoder.EncodeAll(value, nil)
	n := int64(len(compressed))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if n > dc.capacity {
		return ErrItemTooLarge
	}
	fk := fileKey(key)
	if _, ok := dc.index[fk]; ok {
		dc.drop(fk)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	path := filepath.Join(dc.dir, fk+diskExt)
	if err := writeFile(path, compressed); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	dc.index[fk] = &diskEntry{path: path, size: n, lastAccess: time.Now()}
	dc.size += n
	return nil
}

// Stats implements Cache.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close releases the codecs. Cached files stay on disk.
func (dc *DiskCache) Close() error {
	dc.decoder.Close()
	return dc.encoder.Close() //nolint:wrapcheck
}

func (dc *DiskCache) drop(key string) {
	entry := dc.index[key]
	_ = os.Remove(entry.path)
	dc.size -= entry.size
	delete(dc.index, key)
}

func (dc *DiskCache) evictOldest() {
	var oldest string
	var at time.Time
	for key, e := range dc.index {
		if oldest == "" || e.lastAccess.Before(at) {
			oldest, at = key, e.lastAccess
		}
	}
	if oldest != "" {
		dc.drop(oldest)
		dc.stats.Evictions++
	}
}

// writeFile writes through a temp file so readers never see a partial
// value.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmp)
		return err //nolint:wrapcheck
	}
	return os.Rename(tmp, path) //nolint:wrapcheck
}
