// Package config provides configuration management for the flowcanvas CLI.
// Settings come from flowcanvas.yaml, FLOWCANVAS_* environment variables,
// and command-line flags, in ascending precedence.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	BackendURL   string          `koanf:"backend_url"`
	ProjectID    int             `koanf:"project"`
	StatePath    string          `koanf:"state_path"`
	Timeout      time.Duration   `koanf:"timeout"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	Autosave     *AutosaveConfig `koanf:"autosave"`
	UI           *UIConfig       `koanf:"ui"`
}

// AutosaveConfig tunes layout persistence.
type AutosaveConfig struct {
	Interval time.Duration `koanf:"interval"`
	Coalesce time.Duration `koanf:"coalesce"`
}

// UIConfig holds configuration for the canvas web server.
type UIConfig struct {
	Port             int  `koanf:"port"`
	AutoOpen         bool `koanf:"auto_open"`
	DataPreviewLimit int  `koanf:"data_preview_limit"`
}

// Default configuration values.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultStateFile  = ".flowcanvas/state.db"
	DefaultTimeout    = 60 * time.Second
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultUIPort     = 8765

	DefaultAutosaveInterval = 10 * time.Second
	DefaultAutosaveCoalesce = 100 * time.Millisecond
)

// GetAutosave returns the autosave config with defaults applied for any
// unset values.
func (c *Config) GetAutosave() *AutosaveConfig {
	a := c.Autosave
	if a == nil {
		a = &AutosaveConfig{}
	}
	if a.Interval == 0 {
		a.Interval = DefaultAutosaveInterval
	}
	if a.Coalesce == 0 {
		a.Coalesce = DefaultAutosaveCoalesce
	}
	return a
}

// GetUIConfig returns the UI config with defaults applied for any unset
// values.
func (c *Config) GetUIConfig() *UIConfig {
	ui := c.UI
	if ui == nil {
		ui = &UIConfig{AutoOpen: true}
	}
	if ui.Port == 0 {
		ui.Port = DefaultUIPort
	}
	if ui.DataPreviewLimit == 0 {
		ui.DataPreviewLimit = 50
	}
	return ui
}
