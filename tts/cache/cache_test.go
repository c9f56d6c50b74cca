package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	if got := len(Key("a")); got != 64 {
		t.Errorf("len(Key) = %d, want 64", got)
	}
	if Key("piper", "hello") != Key("piper", "hello") {
		t.Error("Key is not stable")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("parts must be separated")
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := NewMemoryCache(10)
	for _, key := range []string{"a", "b"} {
		if err := c.Put(key, []byte("1234")); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	// touch a so b is the oldest
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a not found")
	}
	if err := c.Put("c", []byte("1234")); err != nil {
		t.Fatalf("Put(c) failed: %v", err)
	}

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || string(v) != "1234" {
		t.Errorf("Get(a) = %q, %v; want 1234, true", v, ok)
	}

	s := c.Stats()
	if s.Size != 8 || s.Items != 2 || s.Evictions != 1 {
		t.Errorf("Stats = %+v, want size 8, 2 items, 1 eviction", s)
	}
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 hits, 1 miss", s)
	}
	if rate := s.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate() = %v, want 2/3", rate)
	}
}

func TestMemoryCache_Replace(t *testing.T) {
	c := NewMemoryCache(10)
	if err := c.Put("a", []byte("12345678")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a", []byte("12")); err != nil {
		t.Fatal(err)
	}
	if got := c.Stats().Size; got != 2 {
		t.Errorf("Size = %d after replace, want 2", got)
	}

	if err := c.Put("big", make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(big) error = %v, want ErrItemTooLarge", err)
	}

	c.Delete("a")
	if s := c.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("Stats = %+v after delete, want empty", s)
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	value := bytes.Repeat([]byte("speech "), 1000)
	key := Key("piper", "hello")
	if err := dc.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, ok := dc.Get(key); !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get returned %d bytes, %v", len(got), ok)
	}

	s := dc.Stats()
	if s.Items != 1 {
		t.Errorf("Items = %d, want 1", s.Items)
	}
	if s.Size >= int64(len(value)) {
		t.Errorf("Size = %d, want less than %d (compressed)", s.Size, len(value))
	}
	if _, err := os.Stat(filepath.Join(dir, key+diskExt)); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// a new cache finds what the last one wrote
	dc, err = NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer dc.Close() //nolint:errcheck
	if got, ok := dc.Get(key); !ok || !bytes.Equal(got, value) {
		t.Errorf("Get after reopen returned %d bytes, %v", len(got), ok)
	}
}

func TestDiskCache_OddKeys(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	if err := dc.Put("../escape/me", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, ok := dc.Get("../escape/me"); !ok || string(got) != "x" {
		t.Errorf("Get = %q, %v; want x, true", got, ok)
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	if err := dc.Put("first", []byte("aaaa")); err != nil {
		t.Fatal(err)
	}
	dc.capacity = dc.Stats().Size * 2

	for _, key := range []string{"second", "third"} {
		if err := dc.Put(key, []byte("bbbb")); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	if _, ok := dc.Get("first"); ok {
		t.Error("first should have been evicted")
	}
	if _, err := os.Stat(filepath.Join(dir, "first"+diskExt)); !os.IsNotExist(err) {
		t.Errorf("evicted file still on disk: %v", err)
	}
	if got := dc.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}

	dc.capacity = 1
	if err := dc.Put("big", []byte("dddd")); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(big) error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_DropsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken"+diskExt), []byte("not zstd"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.tmp"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck
	if got := dc.Stats().Items; got != 1 {
		t.Fatalf("Items = %d, want 1", got)
	}

	if _, ok := dc.Get("broken"); ok {
		t.Error("corrupt entry returned")
	}
	if got := dc.Stats().Items; got != 0 {
		t.Errorf("Items = %d after dropping, want 0", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken"+diskExt)); !os.IsNotExist(err) {
		t.Errorf("corrupt file still on disk: %v", err)
	}
}

func TestLayered_PromotesDiskHits(t *testing.T) {
	cfg := Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, Dir: t.TempDir()}

	l, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Put("k", []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// fresh memory layer, same disk
	l, err = Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close() //nolint:errcheck

	if v, ok := l.Get("k"); !ok || string(v) != "value" {
		t.Fatalf("Get = %q, %v; want value, true", v, ok)
	}
	if got := l.memory.Stats().Items; got != 1 {
		t.Errorf("memory holds %d items, want the promoted one", got)
	}
	if _, ok := l.Get("k"); !ok {
		t.Fatal("second Get missed")
	}
	if _, ok := l.Get("missing"); ok {
		t.Fatal("missing key found")
	}

	if s := l.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 hits, 1 miss", s)
	}
}

func TestLayered_MemoryOnly(t *testing.T) {
	l, err := Open(Config{MemoryCapacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if l.disk != nil {
		t.Error("no directory should mean no disk layer")
	}
	if err := l.Put("k", []byte("too long")); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
	if err := l.Close(); err != nil {
		t.Error(err)
	}
}
