package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/toplist/internal/rank"
)

// Console prints prompts to a writer. It remembers the last fingerprint
// printed per user and does not print it again.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]string
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, last: make(map[string]string)}
}

// Present implements session.Gateway.
func (c *Console) Present(_ context.Context, cmp rank.Comparison) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last[cmp.UserID] == cmp.Fingerprint {
		return nil
	}

	_, err := fmt.Fprintf(c.w,
		"Which do you prefer?\n  [left]  %s\n  [right] %s\nfingerprint: %s\n",
		cmp.Left, cmp.Right, cmp.Fingerprint)
	if err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}
	c.last[cmp.UserID] = cmp.Fingerprint
	return nil
}

// CancelPrompt implements session.Gateway.
func (c *Console) CancelPrompt(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, userID)
	return nil
}
