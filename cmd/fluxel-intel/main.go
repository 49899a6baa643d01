// Package main is the entry point for the fluxel-intel CLI, the
// language-intelligence core's standalone driver: workspace detection,
// type hydration, and language-server sessions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ifBars/Fluxel-sub000/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	flagConfig string
	flagFormat string

	settings config.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "fluxel-intel",
	Short:         "Language intelligence for Fluxel workspaces",
	Long:          "fluxel-intel talks to language servers over JSON-RPC and hydrates an in-memory project model (sources, type declarations, path aliases) for static analysis.",
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagFormat != "text" && flagFormat != "json" {
			return fmt.Errorf("invalid format %q (want text or json)", flagFormat)
		}
		var err error
		if flagConfig != "" {
			settings, err = config.LoadFile(flagConfig)
		} else {
			settings, err = config.Load(".")
		}
		if err != nil {
			return err
		}
		setupLogging(settings.Logging)
		return nil
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: fluxel.toml|fluxel.yaml in the current directory)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(hydrateCmd)
	rootCmd.AddCommand(importsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serversCmd)
}

// setupLogging configures the process-wide slog default from settings.
func setupLogging(cfg config.LoggingSettings) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// resolveRoot turns an optional positional argument into an absolute
// workspace root, defaulting to the current directory.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
