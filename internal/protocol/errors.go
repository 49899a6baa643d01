package protocol

import (
	"errors"
	"fmt"
)

// Standard errors returned by the protocol client.
var (
	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.New("protocol client not started")

	// ErrStopped indicates the client was stopped while a request was pending.
	// Callers must treat stop as invalidating any outstanding call.
	ErrStopped = errors.New("protocol client stopped")

	// ErrStartNotComplete indicates initialize was called before start finished.
	ErrStartNotComplete = errors.New("initialize called before start completed")

	// ErrInvalidMessage indicates an inbound payload that is not a valid
	// protocol message.
	ErrInvalidMessage = errors.New("invalid protocol message")
)

// ResponseError is a protocol-level error returned by the server on a
// response. The server-supplied code and message are carried unchanged.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// LSP-specific errors
	CodeServerNotInitialized = -32002
	CodeUnknownErrorCode     = -32001
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)
