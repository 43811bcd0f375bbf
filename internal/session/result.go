package session

import "github.com/roach88/toplist/internal/rank"

// Action tells the host what to do next.
type Action string

const (
	// ActionPresent means Comparison is outstanding and has been handed to
	// the gateway.
	ActionPresent Action = "present"

	// ActionFinished means Ordering is the user's completed top list.
	ActionFinished Action = "finished"

	// ActionNoOp means the request changed nothing (see Reason).
	ActionNoOp Action = "noop"

	// ActionCancelled means the session was cancelled.
	ActionCancelled Action = "cancelled"

	// ActionNothingToRank means the candidate source returned no games.
	ActionNothingToRank Action = "nothing_to_rank"
)

// ReasonStale is the no-op reason for an answer to a superseded question.
const ReasonStale = "stale"

// Result describes the outcome of a host operation.
type Result struct {
	Action     Action           `json:"action"`
	UserID     string           `json:"user_id"`
	SessionID  string           `json:"session_id,omitempty"`
	Version    int64            `json:"version"`
	Comparison *rank.Comparison `json:"comparison,omitempty"`
	Ordering   []rank.Candidate `json:"ordering,omitempty"`
	Progress   *rank.Progress   `json:"progress,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

func resultFor(action Action, s *rank.Session) Result {
	p := rank.ProgressOf(s)
	return Result{
		Action:    action,
		UserID:    s.UserID,
		SessionID: s.ID,
		Version:   s.Version,
		Progress:  &p,
	}
}
