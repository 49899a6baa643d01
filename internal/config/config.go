// Package config loads the application settings: language-server commands,
// hydration budget overrides, and logging. Settings come from a fluxel.toml
// or fluxel.yaml file with FLUXEL_* environment overrides applied on top;
// a missing file is not an error, defaults apply.
package config

import (
	"time"

	"github.com/ifBars/Fluxel-sub000/internal/hydrate"
)

// Settings is the full application configuration.
type Settings struct {
	Logging   LoggingSettings           `toml:"logging" yaml:"logging"`
	Servers   map[string]ServerSettings `toml:"servers" yaml:"servers"`
	Hydration HydrationSettings         `toml:"hydration" yaml:"hydration"`
}

// LoggingSettings configures the slog backend.
type LoggingSettings struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "text" or "json"
}

// ServerSettings describes how to launch one language server.
type ServerSettings struct {
	Command        string            `toml:"command" yaml:"command"`
	Args           []string          `toml:"args" yaml:"args"`
	Env            map[string]string `toml:"env" yaml:"env"`
	StartupTimeout time.Duration     `toml:"startup_timeout" yaml:"startup_timeout"`
}

// HydrationSettings overrides the hydration engine's resource limits.
// Zero values fall back to the engine defaults.
type HydrationSettings struct {
	MaxSourceFiles        int   `toml:"max_source_files" yaml:"max_source_files"`
	MaxUnitBytes          int64 `toml:"max_unit_bytes" yaml:"max_unit_bytes"`
	MaxTotalBytes         int64 `toml:"max_total_bytes" yaml:"max_total_bytes"`
	MaxUnitsPerPackage    int   `toml:"max_units_per_package" yaml:"max_units_per_package"`
	MaxTransitivePackages int   `toml:"max_transitive_packages" yaml:"max_transitive_packages"`
	LazyBatchSize         int   `toml:"lazy_batch_size" yaml:"lazy_batch_size"`

	// ExcludeDirs are extra directory names the source walk skips.
	ExcludeDirs []string `toml:"exclude_dirs" yaml:"exclude_dirs"`
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	return Settings{
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
		Servers: map[string]ServerSettings{
			"typescript": {
				Command: "typescript-language-server",
				Args:    []string{"--stdio"},
			},
			"css": {
				Command: "vscode-css-language-server",
				Args:    []string{"--stdio"},
			},
			"html": {
				Command: "vscode-html-language-server",
				Args:    []string{"--stdio"},
			},
		},
	}
}

// Budget converts the hydration overrides into an engine budget, filling
// gaps with defaults.
func (s Settings) Budget() hydrate.Budget {
	b := hydrate.DefaultBudget()
	h := s.Hydration
	if h.MaxSourceFiles > 0 {
		b.MaxSourceFiles = h.MaxSourceFiles
	}
	if h.MaxUnitBytes > 0 {
		b.MaxUnitBytes = h.MaxUnitBytes
	}
	if h.MaxTotalBytes > 0 {
		b.MaxTotalBytes = h.MaxTotalBytes
	}
	if h.MaxUnitsPerPackage > 0 {
		b.MaxUnitsPerPackage = h.MaxUnitsPerPackage
	}
	if h.MaxTransitivePackages > 0 {
		b.MaxTransitivePackages = h.MaxTransitivePackages
	}
	if h.LazyBatchSize > 0 {
		b.LazyBatchSize = h.LazyBatchSize
	}
	b.ExcludeDirs = append(b.ExcludeDirs, h.ExcludeDirs...)
	return b
}
