package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ifBars/Fluxel-sub000/internal/diagnostics"
	"github.com/ifBars/Fluxel-sub000/internal/hydrate"
	"github.com/ifBars/Fluxel-sub000/internal/lang"
	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/protocol"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

var flagLanguage string

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Run a language session for a workspace",
	Long:  "Starts the configured language server (or the hydration engine for static analysis), keeps the session alive, and logs published diagnostics until interrupted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagLanguage, "language", "typescript", "language id to start")
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	store := model.NewMemStore()
	diagStore := diagnostics.NewStore()
	ec := &lang.Context{
		FS:          vfs.NewOSFS(),
		Models:      store,
		Diagnostics: diagStore,
		Logger:      slog.Default(),
	}

	registry := lang.NewRegistry(ec)
	registry.RegisterFactory(flagLanguage, serverFactory(flagLanguage))
	registry.RegisterFactory("static", hydrationFactory())

	if err := registry.StartProvider(cmd.Context(), flagLanguage, root); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "session started for %s at %s (ctrl-c to stop)\n", flagLanguage, root)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-signals:
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := registry.Dispose(ctx); err != nil {
		slog.Warn("teardown incomplete", "error", err)
	}

	errs, warns := diagStore.Counts()
	fmt.Fprintf(os.Stderr, "session ended: %d errors, %d warnings\n", errs, warns)
	return nil
}

// serverFactory builds a provider around the configured server command for
// a language id.
func serverFactory(languageID string) lang.Factory {
	return func(ec *lang.Context) (lang.Provider, error) {
		server, ok := settings.Servers[languageID]
		if !ok || server.Command == "" {
			return nil, fmt.Errorf("no server command configured for %q", languageID)
		}
		transport := protocol.NewStdioTransport(server.Command, server.Args, protocol.WithEnv(server.Env))
		client := protocol.NewClient(languageID, transport, protocol.WithLogger(ec.Logger))
		return lang.NewServerProvider(languageID, client, ec), nil
	}
}

// hydrationFactory builds the static-analysis provider backed by the
// hydration engine.
func hydrationFactory() lang.Factory {
	return func(ec *lang.Context) (lang.Provider, error) {
		engine := hydrate.NewEngine(ec.FS, ec.Models,
			hydrate.WithEngineLogger(ec.Logger),
			hydrate.WithBudget(settings.Budget()),
		)
		return lang.NewHydrationProvider("static", engine, ec), nil
	}
}
