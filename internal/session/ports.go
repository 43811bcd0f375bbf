package session

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/toplist/internal/rank"
)

// ErrVersionConflict is returned by Store.Save when the stored record does
// not carry the expected session ID and version.
var ErrVersionConflict = errors.New("session: version conflict")

// Store is durable keyed session storage.
type Store interface {
	// Load returns the user's session, or (nil, nil) if there is none.
	Load(ctx context.Context, userID string) (*rank.Session, error)

	// Save persists s with compare-and-swap on version:
	//   - Version 0 replaces whatever is stored for the user (new session)
	//   - otherwise the stored record must have the same ID and Version-1
	// A completed session also replaces the user's top list atomically.
	// Returns ErrVersionConflict if the predicate fails.
	Save(ctx context.Context, s *rank.Session) error

	// Delete removes the user's session. Deleting nothing is not an error.
	Delete(ctx context.Context, userID string) error
}

// AuditLog keeps the residue of cancelled and superseded sessions.
type AuditLog interface {
	Audit(ctx context.Context, rec rank.AuditRecord) error
}

// Source supplies the candidates a user may rank, most popular first.
type Source interface {
	Fetch(ctx context.Context, userID string) ([]rank.Candidate, error)
}

// Gateway delivers questions to the user.
type Gateway interface {
	// Present shows c to its user. Presenting the same fingerprint twice
	// must not create a second outstanding prompt.
	Present(ctx context.Context, c rank.Comparison) error

	// CancelPrompt removes any outstanding prompt. Best effort.
	CancelPrompt(ctx context.Context, userID string) error
}

// Answer results recorded by Metrics.
const (
	AnswerAccepted = "accepted"
	AnswerStale    = "stale"
	AnswerAbstain  = "abstain"
)

// Session outcomes recorded by Metrics.
const (
	OutcomeCompleted  = "completed"
	OutcomeCancelled  = "cancelled"
	OutcomeSuperseded = "superseded"
)

// Metrics observes the state machine.
type Metrics interface {
	SessionStarted()
	AnswerRecorded(result string)
	SessionFinished(outcome string)
	StoreConflict()
	ObserveOperation(op string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()                        {}
func (nopMetrics) AnswerRecorded(string)                  {}
func (nopMetrics) SessionFinished(string)                 {}
func (nopMetrics) StoreConflict()                         {}
func (nopMetrics) ObserveOperation(string, time.Duration) {}

// TopListReader reads persisted rankings.
type TopListReader interface {
	TopList(ctx context.Context, userID string) (rank.TopList, bool, error)
}

// AuditReader reads the audit trail of one user, oldest first.
type AuditReader interface {
	AuditRecords(ctx context.Context, userID string) ([]rank.AuditRecord, error)
}
