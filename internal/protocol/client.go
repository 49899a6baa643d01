// Package protocol implements the JSON-RPC 2.0 client side of the language
// server protocol: message framing over stdio, request/response correlation,
// and dispatch of server-initiated notifications and requests.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// NotificationHandler handles a server-to-client notification.
type NotificationHandler func(params json.RawMessage)

// RequestHandler handles a server-to-client request. The returned value is
// marshaled and sent back as the response result.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// pendingResult carries the outcome of a request back to its caller.
type pendingResult struct {
	result json.RawMessage
	err    error
}

// Client owns one logical connection to one language server. It turns
// application calls into correlated request/response pairs and routes
// server-initiated traffic to registered handlers.
//
// Client is safe for concurrent use. Concurrent Start or Initialize calls
// collapse onto a single underlying attempt; all callers observe the same
// outcome.
type Client struct {
	languageID string
	transport  Transport
	logger     *slog.Logger

	// flight latches Start and Initialize so duplicate concurrent calls
	// join the in-flight attempt instead of spawning twice.
	flight singleflight.Group

	nextID atomic.Int64

	mu            sync.Mutex
	started       bool
	initialized   bool
	workspaceRoot string
	pending       map[string]chan pendingResult
	notifHandlers map[string][]NotificationHandler
	reqHandlers   map[string]RequestHandler
	openDocs      map[string]struct{}
	unsubscribe   func()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for one language over the given transport.
func NewClient(languageID string, transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		languageID:    languageID,
		transport:     transport,
		logger:        slog.Default(),
		pending:       make(map[string]chan pendingResult),
		notifHandlers: make(map[string][]NotificationHandler),
		reqHandlers:   make(map[string]RequestHandler),
		openDocs:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registerDefaultHandlers()
	return c
}

// LanguageID returns the language this client serves.
func (c *Client) LanguageID() string { return c.languageID }

// Started reports whether the client is started.
func (c *Client) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Initialized reports whether the handshake has completed.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// WorkspaceRoot returns the root the client was started with.
func (c *Client) WorkspaceRoot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceRoot
}

// registerDefaultHandlers pre-registers permissive acknowledgments for
// server requests the client intentionally accepts without validation.
func (c *Client) registerDefaultHandlers() {
	nullAck := func(ctx context.Context, params json.RawMessage) (any, error) {
		return json.RawMessage("null"), nil
	}
	c.OnRequest("client/registerCapability", nullAck)
	c.OnRequest("client/unregisterCapability", nullAck)
	c.OnRequest("window/workDoneProgress/create", nullAck)
}

// Start spawns or attaches the language server for the given workspace root.
// A second concurrent Start joins the in-flight attempt. Starting with a
// different root than the current one stops the client first, then restarts.
func (c *Client) Start(ctx context.Context, workspaceRoot string) error {
	c.mu.Lock()
	if c.started {
		if c.workspaceRoot == workspaceRoot {
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		if err := c.Stop(ctx); err != nil {
			return err
		}
	} else {
		c.mu.Unlock()
	}

	_, err, _ := c.flight.Do("start", func() (any, error) {
		return nil, c.doStart(workspaceRoot)
	})
	return err
}

// doStart performs the single underlying start attempt. The inbound
// subscription is registered before the spawn command so early messages are
// never dropped.
func (c *Client) doStart(workspaceRoot string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	unsubscribe := c.transport.Subscribe(c.HandleMessage)

	if err := c.transport.StartServer(workspaceRoot); err != nil {
		unsubscribe()
		return fmt.Errorf("start %s server: %w", c.languageID, err)
	}

	c.mu.Lock()
	c.started = true
	c.workspaceRoot = workspaceRoot
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.logger.Debug("language server started", "language", c.languageID, "root", workspaceRoot)
	return nil
}

// Stop gracefully shuts down the connection. The shutdown request and exit
// notification are best effort; failures are logged, not fatal. Requests
// still pending are rejected with ErrStopped. Idempotent.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.initialized = false
	c.workspaceRoot = ""
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	abandoned := c.pending
	c.pending = make(map[string]chan pendingResult)
	c.openDocs = make(map[string]struct{})
	c.mu.Unlock()

	// Graceful handshake teardown, directly through the transport since the
	// client already reads as stopped. The shutdown response, if one comes,
	// arrives with no pending entry and is dropped.
	if raw, err := encodeRequest(c.nextID.Add(1), "shutdown", nil); err == nil {
		if err := c.transport.Send(raw); err != nil {
			c.logger.Debug("shutdown request failed", "language", c.languageID, "err", err)
		}
	}
	if raw, err := encodeNotification("exit", nil); err == nil {
		if err := c.transport.Send(raw); err != nil {
			c.logger.Debug("exit notification failed", "language", c.languageID, "err", err)
		}
	}

	if err := c.transport.StopServer(); err != nil {
		c.logger.Warn("terminate server failed", "language", c.languageID, "err", err)
	}
	if unsubscribe != nil {
		unsubscribe()
	}

	for _, ch := range abandoned {
		ch <- pendingResult{err: ErrStopped}
	}

	c.logger.Debug("language server stopped", "language", c.languageID)
	return nil
}

// Initialize performs the handshake: an initialize request followed by an
// initialized notification. A no-op when already initialized; concurrent
// callers join the in-flight attempt. Must be called after Start completes.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	if !c.started {
		c.mu.Unlock()
		return ErrStartNotComplete
	}
	root := c.workspaceRoot
	c.mu.Unlock()

	_, err, _ := c.flight.Do("initialize", func() (any, error) {
		return nil, c.doInitialize(ctx, root)
	})
	return err
}

func (c *Client) doInitialize(ctx context.Context, root string) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	params := InitializeParams{
		ProcessID:    os.Getpid(),
		RootURI:      fileURI(root),
		Capabilities: defaultClientCapabilities(),
	}
	if _, err := c.SendRequest(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}
	if err := c.SendNotification("initialized", struct{}{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// SendRequest sends a correlated request and waits for its response. The
// assigned id is strictly greater than every id previously assigned by this
// client. The continuation is fulfilled exclusively by HandleMessage, or
// rejected here if the host-level send fails synchronously.
func (c *Client) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}
	id := c.nextID.Add(1)
	key := idFromCounter(id)
	ch := make(chan pendingResult, 1)
	c.pending[key] = ch
	c.mu.Unlock()

	raw, err := encodeRequest(id, method, params)
	if err != nil {
		c.removePending(key)
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	if err := c.transport.Send(raw); err != nil {
		// Only surface the send failure if the entry is still ours to
		// remove; a racing response wins and is never resolved twice.
		if c.removePending(key) {
			return nil, fmt.Errorf("send %s: %w", method, err)
		}
	}

	select {
	case <-ctx.Done():
		c.removePending(key)
		return nil, ctx.Err()
	case res := <-ch:
		return res.result, res.err
	}
}

// SendNotification sends a fire-and-forget notification. As a side effect,
// textDocument/didOpen and didClose maintain the advisory open-document set;
// that set may be stale and is used only to avoid redundant notifications.
func (c *Client) SendNotification(method string, params any) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.mu.Unlock()

	raw, err := encodeNotification(method, params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	switch method {
	case "textDocument/didOpen":
		if uri := gjson.GetBytes(raw, "params.textDocument.uri").Str; uri != "" {
			c.mu.Lock()
			c.openDocs[uri] = struct{}{}
			c.mu.Unlock()
		}
	case "textDocument/didClose":
		if uri := gjson.GetBytes(raw, "params.textDocument.uri").Str; uri != "" {
			c.mu.Lock()
			delete(c.openDocs, uri)
			c.mu.Unlock()
		}
	}

	return c.transport.Send(raw)
}

// IsDocumentOpen reports whether a didOpen was sent for the URI without a
// matching didClose. Advisory only.
func (c *Client) IsDocumentOpen(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.openDocs[uri]
	return ok
}

// OnNotification registers a handler for a notification method. Multiple
// handlers for the same method all fire, in registration order.
func (c *Client) OnNotification(method string, handler NotificationHandler) {
	c.mu.Lock()
	c.notifHandlers[method] = append(c.notifHandlers[method], handler)
	c.mu.Unlock()
}

// OnRequest registers the handler for a server-to-client request method.
// At most one handler per method; a later registration replaces the earlier.
func (c *Client) OnRequest(method string, handler RequestHandler) {
	c.mu.Lock()
	c.reqHandlers[method] = handler
	c.mu.Unlock()
}

// HandleMessage routes one inbound serialized message. A message whose id
// matches a pending request is treated as that request's response even when
// it also carries a method; otherwise a method dispatches to the registered
// request or notification handlers.
func (c *Client) HandleMessage(raw []byte) {
	idRes := gjson.GetBytes(raw, "id")
	method := gjson.GetBytes(raw, "method").Str

	if idRes.Exists() {
		key := idKey([]byte(idRes.Raw))
		c.mu.Lock()
		ch, ok := c.pending[key]
		if ok {
			delete(c.pending, key)
		}
		c.mu.Unlock()

		if ok {
			ch <- c.decodeResponse(raw)
			return
		}
		if method == "" {
			// Response with no pending entry: late arrival after a stop
			// or timeout. Dropping it is a no-op by design.
			c.logger.Debug("dropped unmatched response", "language", c.languageID, "id", idRes.Raw)
			return
		}
		// Fall through: a server-to-client request.
	}

	if method == "" {
		c.logger.Debug("dropped invalid message", "language", c.languageID)
		return
	}

	params := json.RawMessage(gjson.GetBytes(raw, "params").Raw)

	if !idRes.Exists() {
		c.dispatchNotification(method, params)
		return
	}
	c.dispatchRequest(json.RawMessage(idRes.Raw), method, params)
}

// decodeResponse turns a raw response into a pendingResult, carrying the
// server error code/message unchanged when present.
func (c *Client) decodeResponse(raw []byte) pendingResult {
	if errRes := gjson.GetBytes(raw, "error"); errRes.Exists() {
		respErr := &ResponseError{}
		if err := json.Unmarshal([]byte(errRes.Raw), respErr); err != nil {
			respErr = &ResponseError{Code: CodeParseError, Message: errRes.Raw}
		}
		return pendingResult{err: respErr}
	}
	return pendingResult{result: json.RawMessage(gjson.GetBytes(raw, "result").Raw)}
}

// dispatchNotification invokes every registered handler in order.
func (c *Client) dispatchNotification(method string, params json.RawMessage) {
	c.mu.Lock()
	handlers := make([]NotificationHandler, len(c.notifHandlers[method]))
	copy(handlers, c.notifHandlers[method])
	c.mu.Unlock()

	for _, h := range handlers {
		h(params)
	}
}

// dispatchRequest invokes the registered request handler asynchronously and
// sends its result back keyed by the echoed id. A missing handler answers
// "method not found"; a handler error answers "internal error".
func (c *Client) dispatchRequest(id json.RawMessage, method string, params json.RawMessage) {
	c.mu.Lock()
	handler, ok := c.reqHandlers[method]
	c.mu.Unlock()

	if !ok {
		c.respondError(id, &ResponseError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", method),
		})
		return
	}

	go func() {
		value, err := handler(context.Background(), params)
		if err != nil {
			c.respondError(id, &ResponseError{Code: CodeInternalError, Message: err.Error()})
			return
		}
		var result json.RawMessage
		switch v := value.(type) {
		case nil:
			result = json.RawMessage("null")
		case json.RawMessage:
			result = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				c.respondError(id, &ResponseError{Code: CodeInternalError, Message: err.Error()})
				return
			}
			result = encoded
		}
		c.respond(id, result)
	}()
}

func (c *Client) respond(id json.RawMessage, result json.RawMessage) {
	raw, err := encodeResponse(id, result, nil)
	if err != nil {
		c.logger.Warn("encode response failed", "language", c.languageID, "err", err)
		return
	}
	if err := c.transport.Send(raw); err != nil {
		c.logger.Debug("send response failed", "language", c.languageID, "err", err)
	}
}

func (c *Client) respondError(id json.RawMessage, respErr *ResponseError) {
	raw, err := encodeResponse(id, nil, respErr)
	if err != nil {
		c.logger.Warn("encode error response failed", "language", c.languageID, "err", err)
		return
	}
	if err := c.transport.Send(raw); err != nil {
		c.logger.Debug("send error response failed", "language", c.languageID, "err", err)
	}
}

// removePending deletes a pending entry and reports whether it was present.
func (c *Client) removePending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[key]; !ok {
		return false
	}
	delete(c.pending, key)
	return true
}

// PendingCount returns the number of in-flight requests.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
