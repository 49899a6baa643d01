package protocol

import (
	"net/url"
	"path/filepath"
	"runtime"
)

// InitializeParams is the payload for the initialize handshake request.
type InitializeParams struct {
	ProcessID    int                `json:"processId"`
	RootURI      string             `json:"rootUri,omitempty"`
	Capabilities ClientCapabilities `json:"capabilities"`
}

// ClientCapabilities advertises what the editing surface supports. Kept
// deliberately minimal; servers degrade gracefully for absent capabilities.
type ClientCapabilities struct {
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
}

// TextDocumentClientCapabilities covers per-document features.
type TextDocumentClientCapabilities struct {
	Synchronization    *SyncClientCapabilities    `json:"synchronization,omitempty"`
	PublishDiagnostics *PublishDiagnosticsClientCapabilities `json:"publishDiagnostics,omitempty"`
}

// SyncClientCapabilities covers document synchronization.
type SyncClientCapabilities struct {
	DidSave bool `json:"didSave,omitempty"`
}

// PublishDiagnosticsClientCapabilities covers the diagnostics push channel.
type PublishDiagnosticsClientCapabilities struct {
	RelatedInformation bool `json:"relatedInformation,omitempty"`
}

// WorkspaceClientCapabilities covers workspace-level features.
type WorkspaceClientCapabilities struct {
	WorkspaceFolders bool `json:"workspaceFolders,omitempty"`
	Configuration    bool `json:"configuration,omitempty"`
}

func defaultClientCapabilities() ClientCapabilities {
	return ClientCapabilities{
		TextDocument: &TextDocumentClientCapabilities{
			Synchronization:    &SyncClientCapabilities{DidSave: true},
			PublishDiagnostics: &PublishDiagnosticsClientCapabilities{RelatedInformation: true},
		},
		Workspace: &WorkspaceClientCapabilities{
			WorkspaceFolders: true,
		},
	}
}

// fileURI converts an absolute path to a file:// URI for handshake payloads.
func fileURI(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}
	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}
