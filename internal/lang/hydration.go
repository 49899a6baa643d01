package lang

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ifBars/Fluxel-sub000/internal/hydrate"
)

// HydrationProvider backs a language with the workspace type hydration
// engine instead of a server process: it builds a virtual project model for
// a background type-checking worker and keeps it fresh through a config
// watcher.
type HydrationProvider struct {
	languageID string
	engine     *hydrate.Engine
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	watcher *hydrate.Watcher
}

var _ Provider = (*HydrationProvider)(nil)

// NewHydrationProvider wraps a hydration engine as a provider.
func NewHydrationProvider(languageID string, engine *hydrate.Engine, ec *Context) *HydrationProvider {
	return &HydrationProvider{
		languageID: languageID,
		engine:     engine,
		logger:     ec.logger().With("language", languageID),
	}
}

// LanguageID returns the language this provider serves.
func (p *HydrationProvider) LanguageID() string { return p.languageID }

// Engine exposes the underlying hydration engine.
func (p *HydrationProvider) Engine() *hydrate.Engine { return p.engine }

// Started reports whether the provider is up.
func (p *HydrationProvider) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Start eagerly hydrates the workspace and begins watching its manifest and
// compiler configuration for changes.
func (p *HydrationProvider) Start(ctx context.Context, workspaceRoot string) error {
	if err := p.engine.HydrateWorkspace(ctx, workspaceRoot); err != nil {
		return err
	}

	watcher, err := hydrate.NewWatcher(p.engine, p.logger)
	if err != nil {
		// Hydration itself succeeded; a missing watcher only loses
		// auto-refresh.
		p.logger.Warn("config watcher unavailable", "error", err)
	}

	p.mu.Lock()
	if p.watcher != nil {
		p.watcher.Close()
	}
	p.watcher = watcher
	p.started = true
	p.mu.Unlock()
	return nil
}

// Stop halts watching. Hydrated models stay in the store; the consumer
// owns their lifetime.
func (p *HydrationProvider) Stop(ctx context.Context) error {
	p.mu.Lock()
	watcher := p.watcher
	p.watcher = nil
	p.started = false
	p.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			p.logger.Warn("config watcher close failed", "error", err)
		}
	}
	return nil
}

// ReloadWorkspace rehydrates against a new root. The engine clears all
// prior hydration state when the root changes.
func (p *HydrationProvider) ReloadWorkspace(ctx context.Context, workspaceRoot string) error {
	if err := p.Stop(ctx); err != nil {
		return err
	}
	return p.Start(ctx, workspaceRoot)
}

// Dispose stops the provider.
func (p *HydrationProvider) Dispose(ctx context.Context) error {
	return p.Stop(ctx)
}

// EnsureTypesForFile lazily loads declarations for the packages a file
// imports.
func (p *HydrationProvider) EnsureTypesForFile(ctx context.Context, content string) error {
	return p.engine.EnsureTypesForFile(ctx, content)
}
