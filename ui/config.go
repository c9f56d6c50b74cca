package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool   `env:"LOCALTTS_MOUSE"`
	HomeDir     string `env:"HOME"`

	// File to import when the UI starts
	Path string

	// Voice selected at startup, resolved against the engine's catalog
	Voice string

	// Directory the import picker opens in; defaults to the working directory
	ImportDir string `env:"LOCALTTS_IMPORT_DIR"`

	StatusMessageTimeout time.Duration `env:"LOCALTTS_STATUS_TIMEOUT" envDefault:"3s"`

	// Copy the path of each finished export to the clipboard
	CopyExportPath bool `env:"LOCALTTS_COPY_EXPORT_PATH" envDefault:"true"`

	// For debugging the UI
	AltScreen bool `env:"LOCALTTS_ALT_SCREEN" envDefault:"true"`
}
