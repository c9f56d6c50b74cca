package tts

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"

	"github.com/dgnsrekt/localtts/tts/audio"
)

// Engine names accepted by Config.Engine.
const (
	EngineAuto   = "auto"
	EnginePiper  = "piper"
	EngineEspeak = "espeak"
	EngineMock   = "mock"
)

// Config contains all speech configuration options.
type Config struct {
	Engine string `yaml:"engine" env:"LOCALTTS_ENGINE"`
	Voice  string `yaml:"voice" env:"LOCALTTS_VOICE"`

	// Prosody defaults for new utterances
	Rate   float64 `yaml:"rate" env:"LOCALTTS_RATE"`
	Volume float64 `yaml:"volume" env:"LOCALTTS_VOLUME"`
	Pitch  float64 `yaml:"pitch" env:"LOCALTTS_PITCH"`

	// Where exports go when no destination is given; empty means the
	// system temp directory.
	ExportDir string `yaml:"export_dir" env:"LOCALTTS_EXPORT_DIR"`

	// Engine-specific configurations
	Piper  PiperConfig  `yaml:"piper"`
	Espeak EspeakConfig `yaml:"espeak"`
	Mock   MockConfig   `yaml:"mock"`
	Player PlayerConfig `yaml:"player"`
	Cache  CacheConfig  `yaml:"cache"`
}

// PiperConfig contains Piper engine settings.
type PiperConfig struct {
	Binary    string        `yaml:"binary" env:"LOCALTTS_PIPER_BINARY"`
	ModelDirs []string      `yaml:"model_dirs" env:"LOCALTTS_PIPER_MODEL_DIRS" envSeparator:":"`
	Timeout   time.Duration `yaml:"timeout" env:"LOCALTTS_PIPER_TIMEOUT"`
}

// EspeakConfig contains eSpeak NG engine settings.
type EspeakConfig struct {
	Binary  string        `yaml:"binary" env:"LOCALTTS_ESPEAK_BINARY"`
	Timeout time.Duration `yaml:"timeout" env:"LOCALTTS_ESPEAK_TIMEOUT"`
}

// MockConfig contains settings for the in-process tone engine.
type MockConfig struct {
	WordsPerMinute int `yaml:"words_per_minute" env:"LOCALTTS_MOCK_WORDS_PER_MINUTE"`
}

// PlayerConfig contains speaker output settings.
type PlayerConfig struct {
	SampleRate int `yaml:"sample_rate" env:"LOCALTTS_PLAYER_SAMPLE_RATE"`
	BufferSize int `yaml:"buffer_size" env:"LOCALTTS_PLAYER_BUFFER_SIZE"`
}

// CacheConfig controls the rendered speech cache. Sizes are written the
// way humanize parses them, e.g. "64 MiB" or "500MB".
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" env:"LOCALTTS_CACHE_ENABLED"`
	Dir        string `yaml:"dir" env:"LOCALTTS_CACHE_DIR"`
	MemorySize string `yaml:"memory_size" env:"LOCALTTS_CACHE_MEMORY_SIZE"`
	DiskSize   string `yaml:"disk_size" env:"LOCALTTS_CACHE_DISK_SIZE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	u := DefaultUtteranceConfiguration()
	return Config{
		Engine: EngineAuto,
		Rate:   float64(u.Rate),
		Volume: float64(u.Volume),
		Pitch:  float64(u.PitchMultiplier),

		Piper:  DefaultPiperConfig(),
		Espeak: DefaultEspeakConfig(),
		Mock:   DefaultMockConfig(),
		Player: DefaultPlayerConfig(),
		Cache:  DefaultCacheConfig(),
	}
}

// DefaultCacheConfig returns default cache configuration. The disk layer
// lives in the user's cache directory.
func DefaultCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:    true,
		MemorySize: "64 MiB",
		DiskSize:   "512 MiB",
	}
	if dir, err := gap.NewScope(gap.User, "localtts").CacheDir(); err == nil {
		cfg.Dir = filepath.Join(dir, "audio")
	}
	return cfg
}

// DefaultPiperConfig returns default Piper configuration. Models are
// looked up in the user's data directory and the common system paths.
func DefaultPiperConfig() PiperConfig {
	cfg := PiperConfig{
		Binary:  "piper",
		Timeout: 60 * time.Second,
	}
	if dir, err := gap.NewScope(gap.User, "localtts").DataPath("piper"); err == nil {
		cfg.ModelDirs = append(cfg.ModelDirs, dir)
	}
	cfg.ModelDirs = append(cfg.ModelDirs, "/usr/share/piper-voices", "/usr/local/share/piper-voices")
	return cfg
}

// DefaultEspeakConfig returns default eSpeak NG configuration.
func DefaultEspeakConfig() EspeakConfig {
	return EspeakConfig{
		Binary:  "espeak-ng",
		Timeout: 30 * time.Second,
	}
}

// DefaultMockConfig returns default mock engine configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{WordsPerMinute: 180}
}

// DefaultPlayerConfig returns default speaker configuration.
func DefaultPlayerConfig() PlayerConfig {
	p := audio.DefaultPlayerConfig()
	return PlayerConfig{SampleRate: p.SampleRate, BufferSize: p.BufferSize}
}

// Utterance returns the configured prosody, clamped into range.
func (c Config) Utterance() UtteranceConfiguration {
	return UtteranceConfiguration{
		Rate:            float32(c.Rate),
		Volume:          float32(c.Volume),
		PitchMultiplier: float32(c.Pitch),
	}.Clamp()
}

// AudioPlayerConfig converts the player settings for the audio package.
func (c Config) AudioPlayerConfig() audio.PlayerConfig {
	return audio.PlayerConfig{SampleRate: c.Player.SampleRate, BufferSize: c.Player.BufferSize}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineAuto, EnginePiper, EngineEspeak, EngineMock:
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Engine)
	}

	u := UtteranceConfiguration{Rate: float32(c.Rate), Volume: float32(c.Volume), PitchMultiplier: float32(c.Pitch)}
	if err := u.Validate(); err != nil {
		return err
	}

	if err := c.Piper.Validate(); err != nil {
		return fmt.Errorf("piper config: %w", err)
	}
	if err := c.Espeak.Validate(); err != nil {
		return fmt.Errorf("espeak config: %w", err)
	}
	if err := c.Mock.Validate(); err != nil {
		return fmt.Errorf("mock config: %w", err)
	}
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	return nil
}

// Validate checks if the Piper configuration is valid.
func (c PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalidConfig)
	}
	if c.Timeout < time.Second || c.Timeout > 10*time.Minute {
		return fmt.Errorf("%w: timeout must be between 1s and 10m, got %v", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Validate checks if the eSpeak configuration is valid.
func (c EspeakConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalidConfig)
	}
	if c.Timeout < time.Second || c.Timeout > 10*time.Minute {
		return fmt.Errorf("%w: timeout must be between 1s and 10m, got %v", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("%w: words per minute must be between 50 and 500, got %d", ErrInvalidConfig, c.WordsPerMinute)
	}
	return nil
}

// Validate checks if the player configuration is valid.
func (c PlayerConfig) Validate() error {
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("%w: sample rate must be 44100 or 48000, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize < 512 || c.BufferSize > 1<<20 {
		return fmt.Errorf("%w: buffer size must be between 512 and 1048576 bytes, got %d", ErrInvalidConfig, c.BufferSize)
	}
	return nil
}

// MemoryBytes returns the memory layer capacity.
func (c CacheConfig) MemoryBytes() (int64, error) {
	return parseSize(c.MemorySize)
}

// DiskBytes returns the disk layer capacity. Zero disables the layer.
func (c CacheConfig) DiskBytes() (int64, error) {
	if c.DiskSize == "" {
		return 0, nil
	}
	return parseSize(c.DiskSize)
}

// Validate checks if the cache configuration is valid.
func (c CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	mem, err := c.MemoryBytes()
	if err != nil {
		return fmt.Errorf("%w: memory_size: %w", ErrInvalidConfig, err)
	}
	if mem < 1<<20 {
		return fmt.Errorf("%w: memory_size must be at least 1 MiB, got %s", ErrInvalidConfig, c.MemorySize)
	}
	if _, err := c.DiskBytes(); err != nil {
		return fmt.Errorf("%w: disk_size: %w", ErrInvalidConfig, err)
	}
	return nil
}

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	if n > 1<<40 {
		return 0, fmt.Errorf("%s is too large", s)
	}
	return int64(n), nil //nolint:gosec
}
