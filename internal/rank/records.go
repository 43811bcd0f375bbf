package rank

import "time"

// AuditEvent names why a session ended without completing.
type AuditEvent string

const (
	AuditCancelled  AuditEvent = "cancelled"
	AuditSuperseded AuditEvent = "superseded"
)

// AuditRecord is the only residue kept for a session that was cancelled or
// replaced by a new start.
type AuditRecord struct {
	SessionID   string     `json:"session_id"`
	UserID      string     `json:"user_id"`
	Event       AuditEvent `json:"event"`
	Version     int64      `json:"version"`
	RankedCount int        `json:"ranked_count"`
	Total       int        `json:"total"`
	At          time.Time  `json:"at"`
}

// AuditOf builds the audit record for s ending with ev at time at.
func AuditOf(s *Session, ev AuditEvent, at time.Time) AuditRecord {
	return AuditRecord{
		SessionID:   s.ID,
		UserID:      s.UserID,
		Event:       ev,
		Version:     s.Version,
		RankedCount: len(s.Ranked),
		Total:       s.Total,
		At:          at,
	}
}

// Placement is one row of a persisted top list. Position is 1-based.
type Placement struct {
	Position  int       `json:"position"`
	Candidate Candidate `json:"candidate"`
}

// TopList is the persisted outcome of a completed session.
type TopList struct {
	UserID      string      `json:"user_id"`
	SessionID   string      `json:"session_id"`
	Placements  []Placement `json:"placements"`
	CompletedAt time.Time   `json:"completed_at"`
}

// TopListOf builds the top list of a completed session.
func TopListOf(s *Session) TopList {
	placements := make([]Placement, len(s.Ranked))
	for i, c := range s.Ranked {
		placements[i] = Placement{Position: i + 1, Candidate: c}
	}
	return TopList{
		UserID:      s.UserID,
		SessionID:   s.ID,
		Placements:  placements,
		CompletedAt: s.UpdatedAt,
	}
}
