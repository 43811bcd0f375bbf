package rank

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a session.
// A user with no stored session is implicitly idle.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusFinalizing Status = "finalizing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further answers can be accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Window is the half-open range [Lo, Hi) of positions in the ranked list
// where the pending candidate may still be inserted.
type Window struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Converged reports whether the insertion point is known.
func (w Window) Converged() bool {
	return w.Lo >= w.Hi
}

// Mid returns the probe position lo + (hi-lo)/2.
func (w Window) Mid() int {
	return w.Lo + (w.Hi-w.Lo)/2
}

// Pending is the candidate currently being inserted and its window.
type Pending struct {
	Candidate Candidate `json:"candidate"`
	Window    Window    `json:"window"`
}

// Session is one user's ranking run.
//
// INVARIANTS (for a persisted session in StatusCollecting):
//   - Pending != nil and Pending.Window is not converged
//   - 0 <= Lo < Hi <= len(Ranked)
//   - Pending.Candidate is in neither Ranked nor Queue
//   - len(Ranked) + len(Queue) + 1 == Total
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Status      Status      `json:"status"`
	Queue       []Candidate `json:"queue"`
	Ranked      []Candidate `json:"ranked"`
	Pending     *Pending    `json:"pending"`
	Version     int64       `json:"version"`
	Comparisons int         `json:"comparisons"`
	Total       int         `json:"total"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so a mutation can be discarded if it is not
// committed.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Queue = slices.Clone(s.Queue)
	c.Ranked = slices.Clone(s.Ranked)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

// Active reports whether the session still accepts answers.
func (s *Session) Active() bool {
	return s != nil && s.Status == StatusCollecting
}

// Remaining counts candidates not yet placed, including the pending one.
func (s *Session) Remaining() int {
	n := len(s.Queue)
	if s.Pending != nil {
		n++
	}
	return n
}

// Progress is a read-only summary of a session.
type Progress struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Status      Status `json:"status"`
	Ranked      int    `json:"ranked"`
	Remaining   int    `json:"remaining"`
	Total       int    `json:"total"`
	Comparisons int    `json:"comparisons"`
	Version     int64  `json:"version"`
}

// ProgressOf summarizes s.
func ProgressOf(s *Session) Progress {
	return Progress{
		UserID:      s.UserID,
		SessionID:   s.ID,
		Status:      s.Status,
		Ranked:      len(s.Ranked),
		Remaining:   s.Remaining(),
		Total:       s.Total,
		Comparisons: s.Comparisons,
		Version:     s.Version,
	}
}
