package lang

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry is the directory of language id to provider. It guarantees at
// most one active provider per language id; factories run only when no
// active instance exists. The registry never restarts a provider's client
// implicitly; workspace-root changes go through Provider.ReloadWorkspace.
//
// The registry is explicitly constructed and injected by whatever owns
// application lifetime; there is no package-level instance.
type Registry struct {
	ec *Context

	mu        sync.Mutex
	factories map[string]Factory
	active    map[string]Provider
}

// NewRegistry creates a registry bound to the shared editor context.
func NewRegistry(ec *Context) *Registry {
	return &Registry{
		ec:        ec,
		factories: make(map[string]Factory),
		active:    make(map[string]Provider),
	}
}

// RegisterFactory installs the factory for a language id, replacing any
// previous one. An already-active provider for the id is unaffected.
func (r *Registry) RegisterFactory(languageID string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[languageID] = factory
}

// GetProvider returns the active provider for a language id, creating it
// through the registered factory on first use. A missing factory returns
// (nil, nil) with no side effects.
func (r *Registry) GetProvider(languageID string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.active[languageID]; ok {
		return p, nil
	}
	factory, ok := r.factories[languageID]
	if !ok {
		return nil, nil
	}
	if !r.ec.Valid() {
		return nil, ErrNoContext
	}

	p, err := factory(r.ec)
	if err != nil {
		return nil, fmt.Errorf("create provider for %q: %w", languageID, err)
	}
	r.active[languageID] = p
	return p, nil
}

// StartProvider starts the provider for a language id, creating it first if
// needed.
func (r *Registry) StartProvider(ctx context.Context, languageID, workspaceRoot string) error {
	p, err := r.GetProvider(languageID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w for %q", ErrNoProvider, languageID)
	}
	return p.Start(ctx, workspaceRoot)
}

// StopProvider stops the active provider for a language id. An id with no
// active provider is a safe no-op; the factory is never invoked just to
// stop something.
func (r *Registry) StopProvider(ctx context.Context, languageID string) error {
	r.mu.Lock()
	p, ok := r.active[languageID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return p.Stop(ctx)
}

// ActiveIDs returns the ids with an active provider, sorted.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispose stops every active provider concurrently, disposes each, and
// clears the directory. Used on full application teardown.
func (r *Registry) Dispose(ctx context.Context) error {
	r.mu.Lock()
	providers := make([]Provider, 0, len(r.active))
	for _, p := range r.active {
		providers = append(providers, p)
	}
	r.active = make(map[string]Provider)
	r.factories = make(map[string]Factory)
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			return p.Stop(gctx)
		})
	}
	err := g.Wait()

	for _, p := range providers {
		if derr := p.Dispose(ctx); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}
