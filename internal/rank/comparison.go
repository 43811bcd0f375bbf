package rank

// Comparison is one pairwise question: is Left preferred over Right?
//
// Left is the pending candidate, Right the ranked incumbent at Index.
// Fingerprint binds an answer to exactly this question.
type Comparison struct {
	Fingerprint string    `json:"fingerprint"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Left        Candidate `json:"left"`
	Right       Candidate `json:"right"`
	Index       int       `json:"index"`
	Window      Window    `json:"window"`
}
