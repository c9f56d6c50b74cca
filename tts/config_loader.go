package tts

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper. LOCALTTS_*
// environment variables override the config file.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.voice") {
		cfg.Voice = viper.GetString("tts.voice")
	}
	if viper.IsSet("tts.rate") {
		cfg.Rate = viper.GetFloat64("tts.rate")
	}
	if viper.IsSet("tts.volume") {
		cfg.Volume = viper.GetFloat64("tts.volume")
	}
	if viper.IsSet("tts.pitch") {
		cfg.Pitch = viper.GetFloat64("tts.pitch")
	}
	if viper.IsSet("tts.export_dir") {
		cfg.ExportDir = viper.GetString("tts.export_dir")
	}

	cfg.Piper = loadPiperConfig()
	cfg.Espeak = loadEspeakConfig()
	cfg.Mock = loadMockConfig()
	cfg.Player = loadPlayerConfig()
	cfg.Cache = loadCacheConfig()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.ExportDir, err = homedir.Expand(c.ExportDir); err != nil {
		return fmt.Errorf("export_dir: %w", err)
	}
	if c.Cache.Dir, err = homedir.Expand(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	for i, dir := range c.Piper.ModelDirs {
		if c.Piper.ModelDirs[i], err = homedir.Expand(dir); err != nil {
			return fmt.Errorf("piper.model_dirs: %w", err)
		}
	}
	return nil
}

// durationSetting reads a duration that may be written as "30s" or as
// a number of seconds.
func durationSetting(key string, fallback time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return fallback
	}
	if d, err := time.ParseDuration(viper.GetString(key)); err == nil {
		return d
	}
	if secs := viper.GetFloat64(key); secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("tts.piper.binary") {
		cfg.Binary = viper.GetString("tts.piper.binary")
	}
	if viper.IsSet("tts.piper.model_dirs") {
		cfg.ModelDirs = viper.GetStringSlice("tts.piper.model_dirs")
	}
	cfg.Timeout = durationSetting("tts.piper.timeout", cfg.Timeout)

	return cfg
}

// loadEspeakConfig loads eSpeak-specific configuration from Viper.
func loadEspeakConfig() EspeakConfig {
	cfg := DefaultEspeakConfig()

	if viper.IsSet("tts.espeak.binary") {
		cfg.Binary = viper.GetString("tts.espeak.binary")
	}
	cfg.Timeout = durationSetting("tts.espeak.timeout", cfg.Timeout)

	return cfg
}

// loadMockConfig loads mock engine configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("tts.mock.words_per_minute")
	}

	return cfg
}

// loadPlayerConfig loads speaker configuration from Viper.
func loadPlayerConfig() PlayerConfig {
	cfg := DefaultPlayerConfig()

	if viper.IsSet("tts.player.sample_rate") {
		cfg.SampleRate = viper.GetInt("tts.player.sample_rate")
	}
	if viper.IsSet("tts.player.buffer_size") {
		cfg.BufferSize = viper.GetInt("tts.player.buffer_size")
	}

	return cfg
}

// loadCacheConfig loads render cache configuration from Viper.
func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("tts.cache.enabled") {
		cfg.Enabled = viper.GetBool("tts.cache.enabled")
	}
	if viper.IsSet("tts.cache.dir") {
		cfg.Dir = viper.GetString("tts.cache.dir")
	}
	if viper.IsSet("tts.cache.memory_size") {
		cfg.MemorySize = viper.GetString("tts.cache.memory_size")
	}
	if viper.IsSet("tts.cache.disk_size") {
		cfg.DiskSize = viper.GetString("tts.cache.disk_size")
	}

	return cfg
}

// SetDefaults sets default values in Viper for speech configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.voice", defaults.Voice)
	viper.SetDefault("tts.rate", defaults.Rate)
	viper.SetDefault("tts.volume", defaults.Volume)
	viper.SetDefault("tts.pitch", defaults.Pitch)
	viper.SetDefault("tts.export_dir", defaults.ExportDir)

	viper.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("tts.piper.model_dirs", defaults.Piper.ModelDirs)
	viper.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())

	viper.SetDefault("tts.espeak.binary", defaults.Espeak.Binary)
	viper.SetDefault("tts.espeak.timeout", defaults.Espeak.Timeout.String())

	viper.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)

	viper.SetDefault("tts.player.sample_rate", defaults.Player.SampleRate)
	viper.SetDefault("tts.player.buffer_size", defaults.Player.BufferSize)

	viper.SetDefault("tts.cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("tts.cache.dir", defaults.Cache.Dir)
	viper.SetDefault("tts.cache.memory_size", defaults.Cache.MemorySize)
	viper.SetDefault("tts.cache.disk_size", defaults.Cache.DiskSize)
}
