package protocol

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Message is a JSON-RPC 2.0 shaped envelope. A message is a request if it has
// both an id and a method, a response if it has an id without a method, and a
// notification if it has a method without an id.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// IsRequest reports whether the message carries both an id and a method.
func (m *Message) IsRequest() bool { return len(m.ID) > 0 && m.Method != "" }

// IsResponse reports whether the message carries an id without a method.
func (m *Message) IsResponse() bool { return len(m.ID) > 0 && m.Method == "" }

// IsNotification reports whether the message carries a method without an id.
func (m *Message) IsNotification() bool { return len(m.ID) == 0 && m.Method != "" }

// idKey normalizes a raw id value (number or string) to a map key.
// Numeric 1 and string "1" intentionally collapse to the same key: a correct
// server echoes ids back verbatim, and the counter never produces colliding
// string forms.
func idKey(raw []byte) string {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.String:
		return res.Str
	case gjson.Number:
		return res.Raw
	default:
		return res.Raw
	}
}

// encodeRequest builds a serialized request envelope.
func encodeRequest(id int64, method string, params any) ([]byte, error) {
	msg := struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int64  `json:"id"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	return json.Marshal(msg)
}

// encodeNotification builds a serialized notification envelope.
func encodeNotification(method string, params any) ([]byte, error) {
	msg := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params}
	return json.Marshal(msg)
}

// encodeResponse builds a serialized response that echoes the request id
// bytes verbatim. The result is set raw when it is already-encoded JSON so a
// handler's payload survives the round trip untouched.
func encodeResponse(id json.RawMessage, result json.RawMessage, respErr *ResponseError) ([]byte, error) {
	out := []byte(`{"jsonrpc":"2.0"}`)

	out, err := sjson.SetRawBytes(out, "id", id)
	if err != nil {
		return nil, err
	}

	if respErr != nil {
		encoded, err := json.Marshal(respErr)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(out, "error", encoded)
	}

	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return sjson.SetRawBytes(out, "result", result)
}

// idFromCounter renders a client-allocated id the same way encodeRequest
// serializes it, so pending-map keys line up with echoed response ids.
func idFromCounter(id int64) string {
	return strconv.FormatInt(id, 10)
}
