package gateway

import (
	"context"
	"sync"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// AnswerHandler receives answers from users.
// Implemented by *session.Manager.
type AnswerHandler interface {
	HandleAnswer(ctx context.Context, userID, fingerprint string, choice rank.Choice) (session.Result, error)
}

// Mailbox holds at most one outstanding prompt per user for polling
// clients.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Mailbox struct {
	mu      sync.RWMutex
	prompts map[string]rank.Comparison
	handler AnswerHandler
}

// NewMailbox creates an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{prompts: make(map[string]rank.Comparison)}
}

// OnAnswer registers the handler answers are forwarded to.
// The mailbox is usually constructed before the manager, hence the late
// binding.
func (m *Mailbox) OnAnswer(h AnswerHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Present implements session.Gateway. A new prompt replaces the old one.
func (m *Mailbox) Present(_ context.Context, c rank.Comparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[c.UserID] = c
	return nil
}

// CancelPrompt implements session.Gateway.
func (m *Mailbox) CancelPrompt(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prompts, userID)
	return nil
}

// Outstanding returns the user's current prompt, if any.
func (m *Mailbox) Outstanding(userID string) (rank.Comparison, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.prompts[userID]
	return c, ok
}

// Answer forwards a user's answer to the handler. The prompt is cleared
// once the session finishes; while collecting, the handler's next Present
// replaces it.
func (m *Mailbox) Answer(ctx context.Context, userID, fingerprint string, choice rank.Choice) (session.Result, error) {
	m.mu.RLock()
	h := m.handler
	m.mu.RUnlock()
	if h == nil {
		return session.Result{}, rank.WrapError(rank.KindDelivery, userID, "mailbox has no answer handler", nil)
	}

	res, err := h.HandleAnswer(ctx, userID, fingerprint, choice)
	if err != nil {
		return res, err
	}
	if res.Action == session.ActionFinished {
		m.clear(userID, fingerprint)
	}
	return res, nil
}

// clear removes the prompt only if it is still the one that was answered.
func (m *Mailbox) clear(userID, fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.prompts[userID]; ok && c.Fingerprint == fingerprint {
		delete(m.prompts, userID)
	}
}
