package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# write debug output to the log file
debug: false
# mouse support (TUI-mode only)
mouse: false

tts:
  # speech engine: auto, piper, espeak or mock
  engine: "auto"
  # voice ID or name; empty uses the engine's first voice
  voice: ""
  # prosody defaults: rate 0.1-1.0 (0.5 is normal), volume 0.1-1.0, pitch 0.2-2.0
  rate: 0.5
  volume: 1.0
  pitch: 1.0
  # where exports go when no -o is given; empty uses the system temp dir
  export_dir: ""

  piper:
    binary: "piper"
    # directories searched for *.onnx voices and their .onnx.json configs
    # model_dirs:
    #   - "~/.local/share/localtts/piper"
    timeout: "60s"

  espeak:
    binary: "espeak-ng"
    timeout: "30s"

  # silent tone engine, useful without any voices installed
  mock:
    words_per_minute: 180

  player:
    # 44100 or 48000
    sample_rate: 44100
    buffer_size: 8192

  # rendered speech is kept so repeated text plays without re-rendering
  cache:
    enabled: true
    # dir: "~/.cache/localtts/audio"
    memory_size: "64 MiB"
    # compressed on disk; "0" keeps the cache in memory only
    disk_size: "512 MiB"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the localtts config file",
	Long:    paragraph(fmt.Sprintf("\n%s the localtts config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("localtts config\nlocaltts config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("localtts", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
