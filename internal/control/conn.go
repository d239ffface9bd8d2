package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// ErrConnectionClosed is returned by Send after the control stream has
// ended for any reason.
var ErrConnectionClosed = errors.New("control connection closed")

// Config describes how to attach to the multiplexer.
type Config struct {
	// Session is the target session name. The session is created when
	// it does not exist and attached otherwise.
	Session string
}

// Command is a sent control-mode command awaiting its reply. Replies
// are correlated strictly in send order; the token only identifies the
// command to the caller, it never travels over the wire.
type Command struct {
	Token string
	Text  string
}

// Conn is a control-mode connection to a tmux server over the stdio of
// a `tmux -C` subprocess. A single read goroutine decodes the stream
// and delivers events on Events; Send may be called from any goroutine.
type Conn struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu      sync.Mutex
	pending []Command
	closed  bool

	events chan Event
}

// Connect launches the tmux subprocess in control mode and starts the
// read loop. The context covers process startup and kills the
// subprocess when cancelled.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	session := cfg.Session
	if session == "" {
		session = "main"
	}
	cmd := exec.CommandContext(ctx, "tmux", "-C", "new-session", "-A", "-s", session)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tmux stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tmux stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch tmux control mode: %w", err)
	}

	c := &Conn{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan Event, 64),
	}
	go c.readLoop(stdout)
	return c, nil
}

// Attach wraps an already-established control-mode stream without
// spawning a subprocess. It serves transports that provide the stream
// some other way, and tests.
func Attach(stdin io.WriteCloser, stdout io.Reader) *Conn {
	c := &Conn{
		stdin:  stdin,
		events: make(chan Event, 64),
	}
	go c.readLoop(stdout)
	return c
}

// Events returns the stream of decoded events. The channel is closed
// after a Closed event has been delivered.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Send queues a command and writes it to the server. The returned
// Command carries the token that the eventual Reply will echo.
func (c *Conn) Send(text string) (Command, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Command{}, ErrConnectionClosed
	}
	cmd := Command{Token: uuid.NewString(), Text: text}
	c.pending = append(c.pending, cmd)
	c.mu.Unlock()

	if _, err := io.WriteString(c.stdin, text+"\n"); err != nil {
		c.markClosed()
		return Command{}, fmt.Errorf("write command: %w", err)
	}
	return cmd, nil
}

// Detach asks the server to detach this client. The server answers
// with %exit, which ends the stream cleanly.
func (c *Conn) Detach() error {
	_, err := c.Send(DetachClient())
	return err
}

// Close tears the connection down without waiting for the server.
func (c *Conn) Close() error {
	c.markClosed()
	err := c.stdin.Close()
	if c.cmd != nil {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		_ = c.cmd.Wait()
	}
	return err
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// nextToken pops the oldest unanswered command for FIFO reply
// correlation. An empty token means a reply arrived with nothing
// pending, which the decoder reports as a violation upstream.
func (c *Conn) nextToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return ""
	}
	cmd := c.pending[0]
	c.pending = c.pending[1:]
	return cmd.Token
}

func (c *Conn) readLoop(stdout io.Reader) {
	dec := &decoder{nextToken: c.nextToken, greeting: true}
	r := bufio.NewReader(stdout)
	buf := make([]byte, 32*1024)
	sentClosed := false
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range dec.feed(buf[:n]) {
				c.events <- ev
				if _, ok := ev.(Closed); ok {
					sentClosed = true
				}
			}
		}
		if sentClosed {
			break
		}
		if err != nil {
			reason := "transport closed"
			if !errors.Is(err, io.EOF) {
				reason = fmt.Sprintf("transport error: %v", err)
			}
			c.events <- Closed{Reason: reason}
			break
		}
	}
	c.markClosed()
	if c.cmd != nil {
		_ = c.cmd.Wait()
	}
	close(c.events)
}
