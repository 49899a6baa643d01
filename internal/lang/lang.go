// Package lang manages per-language providers: creation through registered
// factories, lifecycle (start, stop, workspace reload) and disposal. A
// provider either wraps a protocol client talking to a language server, or
// drives the hydration engine for languages analyzed statically in-process.
package lang

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ifBars/Fluxel-sub000/internal/diagnostics"
	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

var (
	// ErrNoContext indicates a factory was invoked before the shared
	// editor-integration context was initialized.
	ErrNoContext = errors.New("lang: editor context not initialized")

	// ErrNoProvider indicates no factory is registered for a language id.
	ErrNoProvider = errors.New("lang: no provider registered")
)

// Context is the shared editor-integration context handed to provider
// factories. All fields except Logger are required.
type Context struct {
	FS          vfs.FS
	Models      model.Store
	Diagnostics diagnostics.Sink
	Logger      *slog.Logger
}

// Valid reports whether the context carries everything a provider needs.
func (c *Context) Valid() bool {
	return c != nil && c.FS != nil && c.Models != nil && c.Diagnostics != nil
}

func (c *Context) logger() *slog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Provider is one language's intelligence backend.
type Provider interface {
	// LanguageID returns the language this provider serves.
	LanguageID() string

	// Start brings the provider up for a workspace root.
	Start(ctx context.Context, workspaceRoot string) error

	// Stop tears the provider down. Idempotent.
	Stop(ctx context.Context) error

	// ReloadWorkspace retargets the provider at a new root, restarting
	// whatever backs it.
	ReloadWorkspace(ctx context.Context, workspaceRoot string) error

	// Dispose releases all owned resources. The provider cannot be
	// restarted afterwards.
	Dispose(ctx context.Context) error
}

// Factory creates a provider from the shared context.
type Factory func(ec *Context) (Provider, error)
