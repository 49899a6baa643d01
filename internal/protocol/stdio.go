package protocol

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// StdioTransport runs a language server as a child process and speaks the
// base protocol (Content-Length framed JSON) over its stdin/stdout.
type StdioTransport struct {
	command string
	args    []string
	env     map[string]string
	logger  *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool

	subMu  sync.Mutex
	subs   map[int64]func(raw []byte)
	subSeq atomic.Int64

	closed atomic.Bool
}

// StdioOption configures a StdioTransport.
type StdioOption func(*StdioTransport)

// WithEnv sets additional environment variables for the server process.
func WithEnv(env map[string]string) StdioOption {
	return func(t *StdioTransport) {
		t.env = env
	}
}

// WithStdioLogger sets the logger used for process-level events.
func WithStdioLogger(logger *slog.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// NewStdioTransport creates a transport that will run the given command.
func NewStdioTransport(command string, args []string, opts ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		command: command,
		args:    args,
		logger:  slog.Default(),
		subs:    make(map[int64]func(raw []byte)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ensure StdioTransport implements Transport.
var _ Transport = (*StdioTransport)(nil)

// StartServer spawns the language-server process rooted at workspaceRoot.
func (t *StdioTransport) StartServer(workspaceRoot string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	cmd := exec.Command(t.command, t.args...)
	cmd.Env = os.Environ()
	for k, v := range t.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if workspaceRoot != "" {
		cmd.Dir = workspaceRoot
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start process: %w", err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.running = true
	t.closed.Store(false)

	go t.readLoop(stdout)
	go t.drainStderr(stderr)
	go func() {
		// Reap the child so it never lingers as a zombie.
		_ = cmd.Wait()
	}()

	return nil
}

// StopServer kills the server process. Idempotent.
func (t *StdioTransport) StopServer() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.closed.Store(true)
	t.running = false

	if t.stdin != nil {
		t.stdin.Close()
		t.stdin = nil
	}
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.cmd = nil
	return nil
}

// Send writes one framed message to the server's stdin.
func (t *StdioTransport) Send(raw []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.stdin == nil {
		return ErrStopped
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(raw))
	if _, err := io.WriteString(t.stdin, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.stdin.Write(raw); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Subscribe registers an inbound-message receiver.
func (t *StdioTransport) Subscribe(fn func(raw []byte)) func() {
	id := t.subSeq.Add(1)
	t.subMu.Lock()
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

// readLoop reads framed messages until the pipe closes.
func (t *StdioTransport) readLoop(stdout io.Reader) {
	reader := bufio.NewReaderSize(stdout, 64*1024)
	for {
		raw, err := readMessage(reader)
		if err != nil {
			if !t.closed.Load() && err != io.EOF && err != io.ErrClosedPipe {
				t.logger.Debug("transport read failed", "err", err)
			}
			return
		}
		t.deliver(raw)
	}
}

// deliver fans a raw message out to every subscriber.
func (t *StdioTransport) deliver(raw []byte) {
	t.subMu.Lock()
	subs := make([]func([]byte), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.subMu.Unlock()

	for _, fn := range subs {
		fn(raw)
	}
}

// drainStderr logs server stderr lines.
func (t *StdioTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		t.logger.Debug("server stderr", "line", scanner.Text())
	}
}

// readMessage reads one Content-Length framed message.
func readMessage(reader *bufio.Reader) ([]byte, error) {
	var contentLength int
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				if length, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
					contentLength = length
				}
			}
		}
		// Ignore Content-Type and other headers
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
