package protocol

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestMessageClassification(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		request      bool
		response     bool
		notification bool
	}{
		{
			name:    "id and method is a request",
			raw:     `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
			request: true,
		},
		{
			name:     "id without method is a response",
			raw:      `{"jsonrpc":"2.0","id":1,"result":{}}`,
			response: true,
		},
		{
			name:         "method without id is a notification",
			raw:          `{"jsonrpc":"2.0","method":"initialized"}`,
			notification: true,
		},
		{
			name:     "string id response",
			raw:      `{"jsonrpc":"2.0","id":"abc","error":{"code":-32600,"message":"bad"}}`,
			response: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := msg.IsRequest(); got != tt.request {
				t.Errorf("IsRequest: got %v, want %v", got, tt.request)
			}
			if got := msg.IsResponse(); got != tt.response {
				t.Errorf("IsResponse: got %v, want %v", got, tt.response)
			}
			if got := msg.IsNotification(); got != tt.notification {
				t.Errorf("IsNotification: got %v, want %v", got, tt.notification)
			}
		})
	}
}

func TestIDKeyNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`1`, "1"},
		{`42`, "42"},
		{`"req-7"`, "req-7"},
		{`"1"`, "1"},
	}
	for _, tt := range tests {
		if got := idKey([]byte(tt.raw)); got != tt.want {
			t.Errorf("idKey(%s): got %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIDKeyMatchesCounterForm(t *testing.T) {
	// The key computed from an echoed numeric id must equal the key stored
	// when the request was sent.
	raw, err := encodeRequest(17, "shutdown", nil)
	if err != nil {
		t.Fatal(err)
	}
	echoed := gjson.GetBytes(raw, "id").Raw
	if got := idKey([]byte(echoed)); got != idFromCounter(17) {
		t.Errorf("round-tripped key: got %q, want %q", got, idFromCounter(17))
	}
}

func TestEncodeRequest(t *testing.T) {
	raw, err := encodeRequest(5, "textDocument/hover", map[string]int{"line": 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(raw, "jsonrpc").Str; got != "2.0" {
		t.Errorf("jsonrpc: got %q", got)
	}
	if got := gjson.GetBytes(raw, "id").Int(); got != 5 {
		t.Errorf("id: got %d, want 5", got)
	}
	if got := gjson.GetBytes(raw, "method").Str; got != "textDocument/hover" {
		t.Errorf("method: got %q", got)
	}
	if got := gjson.GetBytes(raw, "params.line").Int(); got != 2 {
		t.Errorf("params.line: got %d, want 2", got)
	}
}

func TestEncodeNotificationOmitsID(t *testing.T) {
	raw, err := encodeNotification("exit", nil)
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(raw, "id").Exists() {
		t.Error("notification must not carry an id")
	}
	if got := gjson.GetBytes(raw, "method").Str; got != "exit" {
		t.Errorf("method: got %q, want exit", got)
	}
}

func TestEncodeResponse(t *testing.T) {
	t.Run("echoes id bytes and raw result", func(t *testing.T) {
		raw, err := encodeResponse(json.RawMessage(`"srv-3"`), json.RawMessage(`{"ok":true}`), nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := gjson.GetBytes(raw, "id").Raw; got != `"srv-3"` {
			t.Errorf("id: got %s, want \"srv-3\"", got)
		}
		if got := gjson.GetBytes(raw, "result.ok").Bool(); !got {
			t.Error("result.ok: got false, want true")
		}
	})

	t.Run("nil result becomes null", func(t *testing.T) {
		raw, err := encodeResponse(json.RawMessage(`1`), nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := gjson.GetBytes(raw, "result").Raw; got != "null" {
			t.Errorf("result: got %s, want null", got)
		}
	})

	t.Run("error response", func(t *testing.T) {
		raw, err := encodeResponse(json.RawMessage(`9`), nil, &ResponseError{Code: CodeMethodNotFound, Message: "nope"})
		if err != nil {
			t.Fatal(err)
		}
		if got := gjson.GetBytes(raw, "error.code").Int(); got != CodeMethodNotFound {
			t.Errorf("error.code: got %d, want %d", got, CodeMethodNotFound)
		}
		if gjson.GetBytes(raw, "result").Exists() {
			t.Error("error response must not carry a result")
		}
	})
}
