package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifBars/Fluxel-sub000/internal/diagnostics"
	"github.com/ifBars/Fluxel-sub000/internal/model"
	"github.com/ifBars/Fluxel-sub000/internal/protocol"
)

// loopbackTransport answers every request with a null result so the
// initialize handshake completes without a real server.
type loopbackTransport struct {
	mu         sync.Mutex
	subscriber func(raw []byte)
	stops      int
}

func (t *loopbackTransport) StartServer(workspaceRoot string) error { return nil }

func (t *loopbackTransport) StopServer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return nil
}

func (t *loopbackTransport) Send(raw []byte) error {
	t.mu.Lock()
	sub := t.subscriber
	t.mu.Unlock()
	if sub == nil {
		return nil
	}
	msg := struct {
		ID     *int64 `json:"id"`
		Method string `json:"method"`
	}{}
	_ = json.Unmarshal(raw, &msg)
	if msg.ID != nil && msg.Method != "" {
		sub([]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":null}`, *msg.ID)))
	}
	return nil
}

func (t *loopbackTransport) Subscribe(fn func(raw []byte)) func() {
	t.mu.Lock()
	t.subscriber = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.subscriber = nil
		t.mu.Unlock()
	}
}

func newTestServerProvider(t *testing.T) (*ServerProvider, *Context, *loopbackTransport) {
	t.Helper()
	ec := testContext()
	transport := &loopbackTransport{}
	client := protocol.NewClient("typescript", transport)
	return NewServerProvider("typescript", client, ec), ec, transport
}

func TestServerProviderLifecycle(t *testing.T) {
	provider, _, transport := newTestServerProvider(t)

	require.NoError(t, provider.Start(context.Background(), "/proj"))
	assert.True(t, provider.Started())
	assert.True(t, provider.Client().Initialized())

	require.NoError(t, provider.Stop(context.Background()))
	assert.False(t, provider.Started())
	assert.Equal(t, 1, transport.stops)

	// Stop again is harmless.
	require.NoError(t, provider.Stop(context.Background()))
}

func TestServerProviderDisposablesReleasedOnStop(t *testing.T) {
	provider, _, _ := newTestServerProvider(t)
	require.NoError(t, provider.Start(context.Background(), "/proj"))

	var released []string
	var mu sync.Mutex
	record := func(name string) func() {
		return func() {
			mu.Lock()
			released = append(released, name)
			mu.Unlock()
		}
	}

	provider.AddDisposable(record("completion"))
	provider.AddDisposable(record("hover"))
	provider.AddDisposable(func() { panic("bad registration") })

	require.NoError(t, provider.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"completion", "hover"}, released,
		"all disposables run; a panicking one does not abort the rest")
}

func TestServerProviderRemoveDisposableEarly(t *testing.T) {
	provider, _, _ := newTestServerProvider(t)

	var releases int
	id := provider.AddDisposable(func() { releases++ })
	provider.RemoveDisposable(id)
	assert.Equal(t, 1, releases)

	// Releasing an unknown id is a no-op.
	provider.RemoveDisposable("missing")
	require.NoError(t, provider.Start(context.Background(), "/proj"))
	require.NoError(t, provider.Stop(context.Background()))
	assert.Equal(t, 1, releases, "an early-released disposable must not run again on stop")
}

func TestServerProviderDiagnosticsGatedOnModel(t *testing.T) {
	provider, ec, _ := newTestServerProvider(t)
	store := ec.Diagnostics.(*diagnostics.Store)

	knownURI := model.PathToURI("/proj/src/app.ts")
	ec.Models.Add(knownURI, "let x = 1")

	publish := func(uri string) {
		raw := fmt.Sprintf(
			`{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{"uri":%q,"diagnostics":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}},"severity":1,"message":"broken"}]}}`,
			uri)
		provider.Client().HandleMessage([]byte(raw))
	}

	publish(knownURI)
	got := store.Get("/proj/src/app.ts")
	require.Len(t, got, 1)
	assert.Equal(t, "broken", got[0].Message)
	assert.Equal(t, diagnostics.SeverityError, got[0].Severity)

	// Diagnostics for a file with no model are dropped silently.
	publish(model.PathToURI("/proj/src/ghost.ts"))
	assert.Nil(t, store.Get("/proj/src/ghost.ts"))
}

func TestServerProviderClearsDiagnostics(t *testing.T) {
	provider, ec, _ := newTestServerProvider(t)
	store := ec.Diagnostics.(*diagnostics.Store)

	uri := model.PathToURI("/proj/src/app.ts")
	ec.Models.Add(uri, "let x = 1")

	withDiag := fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{"uri":%q,"diagnostics":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}},"message":"oops"}]}}`, uri)
	provider.Client().HandleMessage([]byte(withDiag))
	require.Len(t, store.Get("/proj/src/app.ts"), 1)

	empty := fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{"uri":%q,"diagnostics":[]}}`, uri)
	provider.Client().HandleMessage([]byte(empty))
	assert.Nil(t, store.Get("/proj/src/app.ts"), "empty publish clears the file")
}
