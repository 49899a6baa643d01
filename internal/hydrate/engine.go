// Package hydrate builds a virtual, queryable project model for static
// analysis without a language server: it mirrors source files so relative
// imports resolve, and loads package type declarations so bare imports
// resolve, under hard memory and file-count budgets.
//
// The engine supports an eager path (hydrate a whole workspace) and a lazy
// path (load declarations on demand for the packages a file imports). All
// hydration state is scoped to the current workspace root and cleared on
// root change.
package hydrate

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/vfs"
)

// Default resource limits. Budgets bound what a pathological dependency tree
// can load into the model store; exceeding a budget is a silent skip, never
// an error.
const (
	DefaultMaxSourceFiles        = 10000
	DefaultMaxUnitBytes          = 2_500_000
	DefaultMaxTotalBytes         = 50_000_000
	DefaultMaxUnitsPerPackage    = 200
	DefaultMaxTransitivePackages = 10
	DefaultLazyBatchSize         = 10

	// flushBatchSize bounds how many units are applied to the store
	// between cooperative yields.
	flushBatchSize = 64
)

// ErrNoWorkspace indicates a lazy load was requested before any workspace
// was hydrated.
var ErrNoWorkspace = errors.New("hydrate: no workspace configured")

// Budget holds the resource limits for one workspace.
type Budget struct {
	MaxSourceFiles        int
	MaxUnitBytes          int64
	MaxTotalBytes         int64
	MaxUnitsPerPackage    int
	MaxTransitivePackages int
	LazyBatchSize         int

	// ExcludeDirs names additional directories skipped by the source walk,
	// on top of the built-in tooling-output set.
	ExcludeDirs []string
}

// DefaultBudget returns the default limits.
func DefaultBudget() Budget {
	return Budget{
		MaxSourceFiles:        DefaultMaxSourceFiles,
		MaxUnitBytes:          DefaultMaxUnitBytes,
		MaxTotalBytes:         DefaultMaxTotalBytes,
		MaxUnitsPerPackage:    DefaultMaxUnitsPerPackage,
		MaxTransitivePackages: DefaultMaxTransitivePackages,
		LazyBatchSize:         DefaultLazyBatchSize,
	}
}

// Stats reports what hydration has loaded for the current workspace.
type Stats struct {
	SessionID    string
	Root         string
	SourceFiles  int
	Packages     int
	Units        int
	BytesLoaded  int64
	SkippedUnits int
}

// Engine is the workspace type hydration engine.
// It is safe for concurrent use; lazy-queue draining is serialized so only
// one drain loop runs at a time.
type Engine struct {
	fs     vfs.FS
	store  model.Store
	logger *slog.Logger
	budget Budget
	yield  func(ctx context.Context)

	mu        sync.Mutex
	root      string
	sessionID string
	hydrating bool
	resolver  *Resolver
	compiler  CompilerConfig
	aliases   *AliasTable

	loaded   map[string]struct{} // package roots fully processed
	queued   map[string]struct{} // in the pending queue or mid-drain
	queue    []string
	draining bool

	sourceFiles int
	packages    int
	units       int
	totalBytes  int64
	skipped     int
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBudget overrides the default resource limits.
func WithBudget(b Budget) EngineOption {
	return func(e *Engine) {
		e.budget = b
	}
}

// WithYield overrides the cooperative yield inserted between flush batches.
// Tests use this to count yields.
func WithYield(fn func(ctx context.Context)) EngineOption {
	return func(e *Engine) {
		e.yield = fn
	}
}

// NewEngine creates an engine writing into the given model store.
func NewEngine(fsys vfs.FS, store model.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		fs:     fsys,
		store:  store,
		logger: slog.Default(),
		budget: DefaultBudget(),
		yield: func(ctx context.Context) {
			runtime.Gosched()
		},
		loaded: make(map[string]struct{}),
		queued: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HydrateWorkspace performs eager hydration of a workspace root: compiler
// configuration, source mirroring, declaration loading for every declared
// dependency plus a bounded set of transitively referenced packages, and
// ambient declarations. Re-entrant calls for a root already hydrating are a
// no-op; a new root clears all previous hydration state first.
func (e *Engine) HydrateWorkspace(ctx context.Context, root string) error {
	root = filepath.Clean(root)

	e.mu.Lock()
	if e.hydrating {
		// One hydration at a time; duplicate calls for the same root
		// collapse, and a different root must wait for the current pass.
		e.mu.Unlock()
		return nil
	}
	if e.root != root {
		e.resetLocked(root)
	}
	e.hydrating = true
	e.sessionID = uuid.NewString()
	session := e.sessionID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.hydrating = false
		e.mu.Unlock()
	}()

	manifest := ReadManifest(e.fs, root)
	cfg := ReadCompilerConfig(e.fs, root)
	aliases := BuildAliasTable(root, cfg)
	resolver := NewResolver(e.fs, root, e.budget.MaxUnitsPerPackage)

	e.mu.Lock()
	e.compiler = cfg
	e.aliases = aliases
	e.resolver = resolver
	e.mu.Unlock()

	mirrored, err := e.mirrorSources(ctx, root)
	if err != nil {
		return err
	}

	deps := manifest.AllDependencies()
	accepted := e.loadPackages(ctx, deps)
	e.loadTransitive(ctx, accepted)
	e.loadAmbient(ctx, root, manifest)

	e.mu.Lock()
	stats := e.statsLocked()
	e.mu.Unlock()

	e.logger.Info("workspace hydrated",
		"session", session,
		"root", root,
		"source_files", mirrored,
		"packages", stats.Packages,
		"units", stats.Units,
		"bytes", stats.BytesLoaded,
		"skipped", stats.SkippedUnits,
	)
	return ctx.Err()
}

// Reset clears all hydration state and retargets the engine at a new root.
// Pending lazy-queue entries are discarded.
func (e *Engine) Reset(root string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(filepath.Clean(root))
}

// resetLocked clears per-workspace state. Caller holds e.mu.
func (e *Engine) resetLocked(root string) {
	e.root = root
	e.sessionID = ""
	e.resolver = nil
	e.compiler = CompilerConfig{}
	e.aliases = nil
	e.loaded = make(map[string]struct{})
	e.queued = make(map[string]struct{})
	e.queue = nil
	e.sourceFiles = 0
	e.packages = 0
	e.units = 0
	e.totalBytes = 0
	e.skipped = 0
}

// Stats returns a snapshot of the current workspace's hydration counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	return Stats{
		SessionID:    e.sessionID,
		Root:         e.root,
		SourceFiles:  e.sourceFiles,
		Packages:     e.packages,
		Units:        e.units,
		BytesLoaded:  e.totalBytes,
		SkippedUnits: e.skipped,
	}
}

// Config returns the compiler-style configuration for the current root.
func (e *Engine) Config() CompilerConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compiler
}

// Aliases returns the resolved path-alias table for the current root.
func (e *Engine) Aliases() *AliasTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aliases
}

// Root returns the current workspace root.
func (e *Engine) Root() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// unit is a declaration candidate waiting to be applied to the store.
type unit struct {
	path    string
	content string
}

// loadPackages runs one discovery round and one bulk read for the given
// package roots, applies budget checks, registers the surviving units, and
// marks every package as loaded. It returns the accepted units so callers
// can chase transitive references.
func (e *Engine) loadPackages(ctx context.Context, pkgs []string) []unit {
	e.mu.Lock()
	resolver := e.resolver
	todo := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if _, done := e.loaded[pkg]; done {
			continue
		}
		todo = append(todo, pkg)
	}
	e.mu.Unlock()

	if resolver == nil || len(todo) == 0 {
		return nil
	}

	// One discovery round-trip for the whole batch.
	perPackage := make(map[string][]string, len(todo))
	var allFiles []string
	for _, pkg := range todo {
		typings := resolver.DiscoverTypings(pkg)
		perPackage[pkg] = typings.Files
		allFiles = append(allFiles, typings.Files...)
	}

	// One bulk content read; unreadable files drop out silently.
	contents := vfs.BatchRead(ctx, e.fs, allFiles)

	var accepted []unit
	for _, pkg := range todo {
		count := 0
		for _, file := range perPackage[pkg] {
			content, ok := contents[file]
			if !ok {
				continue
			}
			if count >= e.budget.MaxUnitsPerPackage {
				break
			}
			if e.admit(pkg, file, int64(len(content))) {
				accepted = append(accepted, unit{path: file, content: content})
				count++
			}
		}

		e.mu.Lock()
		e.loaded[pkg] = struct{}{}
		delete(e.queued, pkg)
		if len(perPackage[pkg]) > 0 {
			e.packages++
		}
		e.mu.Unlock()
	}

	e.applyUnits(ctx, accepted)
	return accepted
}

// admit applies the per-unit and total-byte budgets. A unit over the
// per-unit cap is skipped without counting toward the total; a unit that
// would push the total past the workspace cap is skipped likewise.
func (e *Engine) admit(pkg, file string, size int64) bool {
	if size > e.budget.MaxUnitBytes {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		e.logger.Debug("declaration over per-unit cap", "package", pkg, "file", file, "size", size)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.totalBytes+size > e.budget.MaxTotalBytes {
		e.skipped++
		return false
	}
	e.totalBytes += size
	return true
}

// applyUnits registers accepted units in small batches with a cooperative
// yield in between, so flushing thousands of declarations does not starve
// the editing surface.
func (e *Engine) applyUnits(ctx context.Context, units []unit) {
	for start := 0; start < len(units); start += flushBatchSize {
		if ctx.Err() != nil {
			return
		}
		end := start + flushBatchSize
		if end > len(units) {
			end = len(units)
		}
		added := 0
		for _, u := range units[start:end] {
			if e.store.Add(model.PathToURI(u.path), u.content) {
				added++
			}
		}
		e.mu.Lock()
		e.units += added
		e.mu.Unlock()

		if end < len(units) {
			e.yield(ctx)
		}
	}
}

// loadTransitive scans freshly accepted declarations for bare packages they
// reference and loads a bounded number of them. This handles packages whose
// published declarations re-export types from a peer package not imported
// by the user's source.
func (e *Engine) loadTransitive(ctx context.Context, accepted []unit) {
	if e.budget.MaxTransitivePackages <= 0 {
		return
	}

	var extra []string
	seen := make(map[string]struct{})
	for _, u := range accepted {
		for _, pkg := range ReferencedPackages(u.content) {
			if _, ok := seen[pkg]; ok {
				continue
			}
			seen[pkg] = struct{}{}

			e.mu.Lock()
			_, done := e.loaded[pkg]
			e.mu.Unlock()
			if done {
				continue
			}
			extra = append(extra, pkg)
			if len(extra) >= e.budget.MaxTransitivePackages {
				break
			}
		}
		if len(extra) >= e.budget.MaxTransitivePackages {
			break
		}
	}

	if len(extra) > 0 {
		e.loadPackages(ctx, extra)
	}
}

// ambientCandidates are project-colocated declaration files that declare
// globals and module shapes the compiler cannot infer from source.
var ambientCandidates = []string{
	"env.d.ts",
	"global.d.ts",
	"app.d.ts",
	"src/env.d.ts",
	"src/global.d.ts",
	"src/vite-env.d.ts",
}

// loadAmbient loads environment declaration files colocated with the
// project, plus build-tool ambient types for tools found in the manifest.
func (e *Engine) loadAmbient(ctx context.Context, root string, manifest Manifest) {
	paths := make([]string, 0, len(ambientCandidates)+1)
	for _, rel := range ambientCandidates {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(rel)))
	}

	// Build-tool client types (e.g. vite/client.d.ts declares import.meta
	// and asset module shapes).
	for _, dep := range manifest.AllDependencies() {
		switch dep {
		case "vite":
			paths = append(paths, filepath.Join(root, "node_modules", "vite", "client.d.ts"))
		case "webpack":
			paths = append(paths, filepath.Join(root, "node_modules", "webpack", "module.d.ts"))
		}
	}

	contents := vfs.BatchRead(ctx, e.fs, paths)
	var accepted []unit
	for _, p := range paths {
		content, ok := contents[p]
		if !ok {
			continue
		}
		if e.admit("(ambient)", p, int64(len(content))) {
			accepted = append(accepted, unit{path: p, content: content})
		}
	}
	e.applyUnits(ctx, accepted)
}
