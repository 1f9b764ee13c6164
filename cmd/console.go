package main

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gookit/color"
)

// ConsoleTransport prints every pushed entry as "(user) line".
type ConsoleTransport struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
	pushed  int
	changed chan struct{}
}

var _ contract.Transport = (*ConsoleTransport)(nil)

func NewConsoleTransport(out io.Writer, colours bool) *ConsoleTransport {
	return &ConsoleTransport{out: out, colours: colours, changed: make(chan struct{}, 1)}
}

func (c *ConsoleTransport) Push(_ context.Context, user domain.UserID, entry domain.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	who := fmt.Sprintf("(%s)", user)
	line := entry.String()
	if c.colours {
		who = color.New(color.FgCyan, color.OpBold).Render(who)
		if entry.IsMedia() {
			line = color.New(color.FgMagenta).Render(line)
		}
	}
	if _, err := fmt.Fprintln(c.out, who, line); err != nil {
		return err
	}
	c.pushed++
	select {
	case c.changed <- struct{}{}:
	default:
	}
	return nil
}

func (c *ConsoleTransport) Pushed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushed
}

// WaitFor blocks until n entries were printed, the timeout elapses or ctx is done.
func (c *ConsoleTransport) WaitFor(ctx context.Context, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for c.Pushed() < n {
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			return false
		case <-c.changed:
		}
	}
	return true
}
