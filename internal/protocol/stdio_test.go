package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"testing"
)

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestReadMessage(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"initialized"}`
	reader := bufio.NewReader(strings.NewReader(frame(body)))

	got, err := readMessage(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("body: got %q, want %q", got, body)
	}
}

func TestReadMessageSequence(t *testing.T) {
	first := `{"jsonrpc":"2.0","id":1,"result":null}`
	second := `{"jsonrpc":"2.0","method":"$/progress","params":{}}`
	reader := bufio.NewReader(strings.NewReader(frame(first) + frame(second)))

	got1, err := readMessage(reader)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := readMessage(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(got1) != first || string(got2) != second {
		t.Errorf("sequence: got %q then %q", got1, got2)
	}

	if _, err := readMessage(reader); err != io.EOF {
		t.Errorf("after last message: got %v, want EOF", err)
	}
}

func TestReadMessageExtraHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"exit"}`
	input := fmt.Sprintf("Content-Type: application/vscode-jsonrpc; charset=utf-8\r\nContent-Length: %d\r\n\r\n%s", len(body), body)

	got, err := readMessage(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("body: got %q, want %q", got, body)
	}
}

func TestReadMessageMissingContentLength(t *testing.T) {
	input := "Content-Type: application/json\r\n\r\n{}"
	if _, err := readMessage(bufio.NewReader(strings.NewReader(input))); err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

func TestReadMessageTruncatedBody(t *testing.T) {
	input := "Content-Length: 100\r\n\r\n{\"short\":true}"
	if _, err := readMessage(bufio.NewReader(strings.NewReader(input))); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestStdioSendWhenStopped(t *testing.T) {
	transport := NewStdioTransport("definitely-not-a-server", nil)
	if err := transport.Send([]byte(`{}`)); err != ErrStopped {
		t.Errorf("send before start: got %v, want ErrStopped", err)
	}
	// StopServer before start is a no-op.
	if err := transport.StopServer(); err != nil {
		t.Errorf("stop before start: %v", err)
	}
}

func TestStdioSubscribeUnsubscribe(t *testing.T) {
	transport := NewStdioTransport("server", nil)

	var got []string
	unsub1 := transport.Subscribe(func(raw []byte) { got = append(got, "a:"+string(raw)) })
	unsub2 := transport.Subscribe(func(raw []byte) { got = append(got, "b:"+string(raw)) })

	transport.deliver([]byte(`1`))
	unsub1()
	transport.deliver([]byte(`2`))
	unsub2()
	transport.deliver([]byte(`3`))

	want := 3 // a:1, b:1, b:2
	if len(got) != want {
		t.Fatalf("deliveries: got %v, want %d entries", got, want)
	}
}
