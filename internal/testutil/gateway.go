package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/toplist/internal/rank"
)

// ErrInjected is returned by test doubles configured to fail.
var ErrInjected = errors.New("testutil: injected failure")

// RecordingGateway records every Present and CancelPrompt call.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingGateway struct {
	mu        sync.Mutex
	presented []rank.Comparison
	cancelled []string
	failNext  int
}

// NewRecordingGateway creates an empty RecordingGateway.
func NewRecordingGateway() *RecordingGateway {
	return &RecordingGateway{}
}

// Present implements session.Gateway.
func (g *RecordingGateway) Present(_ context.Context, c rank.Comparison) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext > 0 {
		g.failNext--
		return ErrInjected
	}
	g.presented = append(g.presented, c)
	return nil
}

// CancelPrompt implements session.Gateway.
func (g *RecordingGateway) CancelPrompt(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, userID)
	return nil
}

// FailNext makes the next n Present calls fail with ErrInjected.
func (g *RecordingGateway) FailNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = n
}

// Presented returns a copy of every successfully presented comparison.
func (g *RecordingGateway) Presented() []rank.Comparison {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]rank.Comparison(nil), g.presented...)
}

// Last returns the most recently presented comparison.
func (g *RecordingGateway) Last() (rank.Comparison, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.presented) == 0 {
		return rank.Comparison{}, false
	}
	return g.presented[len(g.presented)-1], true
}

// Cancelled returns the users whose prompts were withdrawn.
func (g *RecordingGateway) Cancelled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cancelled...)
}
