package lang

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ifBars/Fluxel-sub000/internal/diagnostics"
	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/protocol"
)

// publishDiagnosticsParams is the payload of textDocument/publishDiagnostics.
type publishDiagnosticsParams struct {
	URI         string                   `json:"uri"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// ServerProvider backs a language with an out-of-process language server
// reached through a protocol client. Capability registrations and
// notification subscriptions it creates are tracked as disposables and
// released together on stop.
type ServerProvider struct {
	languageID string
	client     *protocol.Client
	ec         *Context
	logger     *slog.Logger

	mu          sync.Mutex
	started     bool
	disposables map[string]func()
}

var _ Provider = (*ServerProvider)(nil)

// NewServerProvider wraps a protocol client as a provider. The diagnostics
// route is wired immediately so no early notification is lost.
func NewServerProvider(languageID string, client *protocol.Client, ec *Context) *ServerProvider {
	p := &ServerProvider{
		languageID:  languageID,
		client:      client,
		ec:          ec,
		logger:      ec.logger().With("language", languageID),
		disposables: make(map[string]func()),
	}
	p.client.OnNotification("textDocument/publishDiagnostics", p.handlePublishDiagnostics)
	return p
}

// LanguageID returns the language this provider serves.
func (p *ServerProvider) LanguageID() string { return p.languageID }

// Client exposes the underlying protocol client for editor surfaces that
// issue their own requests (completion, hover, navigation).
func (p *ServerProvider) Client() *protocol.Client { return p.client }

// Started reports whether the provider is up.
func (p *ServerProvider) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Start starts the server process and runs the initialize handshake.
func (p *ServerProvider) Start(ctx context.Context, workspaceRoot string) error {
	if err := p.client.Start(ctx, workspaceRoot); err != nil {
		return err
	}
	if err := p.client.Initialize(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	p.logger.Info("language server started", "root", workspaceRoot)
	return nil
}

// Stop releases owned disposables and stops the protocol client. Safe to
// call repeatedly.
func (p *ServerProvider) Stop(ctx context.Context) error {
	p.mu.Lock()
	released := p.disposables
	p.disposables = make(map[string]func())
	p.started = false
	p.mu.Unlock()

	for id, release := range released {
		p.release(id, release)
	}
	return p.client.Stop(ctx)
}

// release runs one disposable, containing any panic so one bad registration
// cannot abort the rest of the teardown.
func (p *ServerProvider) release(id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("disposable release failed", "id", id, "panic", r)
		}
	}()
	fn()
}

// ReloadWorkspace restarts the server against a new root and re-runs the
// handshake. The client's start path handles the stop when the root differs.
func (p *ServerProvider) ReloadWorkspace(ctx context.Context, workspaceRoot string) error {
	return p.Start(ctx, workspaceRoot)
}

// Dispose stops the provider and releases everything it owns.
func (p *ServerProvider) Dispose(ctx context.Context) error {
	return p.Stop(ctx)
}

// AddDisposable tracks a release function to run on stop and returns its
// handle.
func (p *ServerProvider) AddDisposable(release func()) string {
	id := uuid.NewString()
	p.mu.Lock()
	p.disposables[id] = release
	p.mu.Unlock()
	return id
}

// RemoveDisposable releases one tracked resource early.
func (p *ServerProvider) RemoveDisposable(id string) {
	p.mu.Lock()
	release, ok := p.disposables[id]
	delete(p.disposables, id)
	p.mu.Unlock()
	if ok {
		p.release(id, release)
	}
}

// handlePublishDiagnostics forwards server diagnostics to the sink.
// Diagnostics for files without a virtual model are dropped; the analysis
// surface cannot present problems for files it does not know.
func (p *ServerProvider) handlePublishDiagnostics(params json.RawMessage) {
	var payload publishDiagnosticsParams
	if err := json.Unmarshal(params, &payload); err != nil {
		p.logger.Warn("malformed publishDiagnostics payload", "error", err)
		return
	}
	if !p.ec.Models.Has(payload.URI) {
		return
	}
	p.ec.Diagnostics.Publish(model.URIToPath(payload.URI), payload.Diagnostics)
}
