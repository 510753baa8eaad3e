// Package sink provides the in-repo Sink implementations. Platform key
// injection backends (X11, SendInput, accessibility APIs) live outside this
// repository; the console sink is the dry-run and test vehicle.
package sink

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Console writes emitted characters to a writer, holding each "key" for its
// declared duration so a dry run is paced like a real session. Backspaces
// erase the previous character the way a terminal would.
type Console struct {
	mu         sync.Mutex
	w          io.Writer
	paced      bool
	backspaces int
}

// NewConsole returns a paced console sink.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, paced: true}
}

// NewUnpacedConsole returns a console sink that ignores hold times, for
// tests and instant dumps.
func NewUnpacedConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(ch rune, hold time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "%c", ch); err != nil {
		return fmt.Errorf("sink: console write: %w", err)
	}
	if c.paced {
		time.Sleep(hold)
	}
	return nil
}

func (c *Console) EmitBackspace() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backspaces++
	if _, err := io.WriteString(c.w, "\b \b"); err != nil {
		return fmt.Errorf("sink: console backspace: %w", err)
	}
	return nil
}

// ReleaseAllKeys is a no-op for a console; there are no modifiers to stick.
func (c *Console) ReleaseAllKeys() error {
	return nil
}

// Backspaces reports how many backspaces were emitted.
func (c *Console) Backspaces() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backspaces
}
