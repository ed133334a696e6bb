package logsrv

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/acceptord/internal/usock"
)

// Client sends Records to a Server over a single lazily-established
// connection. Each goroutine that wants to log typically owns one Client
// rather than sharing it, so Trace calls do not contend on the Client's
// lock.
type Client struct {
	path string
	mu   sync.Mutex
	sock *usock.Socket
}

// NewClient returns a Client targeting the Server listening at path. It
// does not connect until the first Trace.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// Trace sends rec to the server, connecting first if necessary. A failed
// send drops the connection so the next Trace retries from scratch.
func (c *Client) Trace(rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock == nil {
		if err := c.connect(); err != nil {
			return err
		}
	}

	if _, err := c.sock.Send(rec.Encode()); err != nil {
		c.sock.Close()
		c.sock = nil
		return fmt.Errorf("logsrv: send: %w", err)
	}
	return nil
}

func (c *Client) connect() error {
	sock := usock.New()
	if err := sock.Init(usock.Params{Path: c.path, IsServer: false}); err != nil {
		return fmt.Errorf("logsrv: client init: %w", err)
	}
	if err := sock.Connect(); err != nil {
		sock.Close()
		return fmt.Errorf("logsrv: client connect %s: %w", c.path, err)
	}
	c.sock = sock
	return nil
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}
