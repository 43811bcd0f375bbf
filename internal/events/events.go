// Package events publishes ranking lifecycle events.
package events

import (
	"context"
	"time"
)

// Type names a lifecycle event. The NATS subject is SubjectPrefix + Type.
type Type string

const (
	SessionStarted    Type = "ranking.started"
	SessionCompleted  Type = "ranking.completed"
	SessionCancelled  Type = "ranking.cancelled"
	SessionSuperseded Type = "ranking.superseded"
)

// SubjectPrefix is prepended to every event type.
const SubjectPrefix = "toplist."

// Event is a lifecycle notification. Ordering is only set on completion and
// lists candidate IDs best first.
type Event struct {
	Type        Type      `json:"type"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Version     int64     `json:"version"`
	Total       int       `json:"total"`
	Comparisons int       `json:"comparisons"`
	Ordering    []string  `json:"ordering,omitempty"`
	At          time.Time `json:"at"`
}

// Subject returns the subject e is published on.
func (e Event) Subject() string {
	return SubjectPrefix + string(e.Type)
}

// Publisher sends events. Publishing is fire-and-forget from the ranking
// core's point of view: a failure is logged, never returned to the user.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
