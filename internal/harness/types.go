package harness

// TraceEvent records one executed step and its outcome.
//
// Fingerprints are labels (fp#1, ...), not raw hashes. Progress fields are
// only meaningful when HasProgress is set.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Op          string   `json:"op"`
	Choice      string   `json:"choice,omitempty"`
	Answered    string   `json:"answered,omitempty"`
	Action      string   `json:"action,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Error       string   `json:"error,omitempty"`
	Session     string   `json:"session,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Left        string   `json:"left,omitempty"`
	Right       string   `json:"right,omitempty"`
	Ordering    []string `json:"ordering,omitempty"`

	HasProgress bool  `json:"-"`
	Version     int64 `json:"version"`
	Ranked      int   `json:"ranked"`
	Remaining   int   `json:"remaining"`
	Comparisons int   `json:"comparisons"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed operation, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// toCanonicalMap converts the event for canonical JSON serialization.
// Empty optional fields are omitted.
func (e TraceEvent) toCanonicalMap() map[string]any {
	m := map[string]any{
		"seq": e.Seq,
		"op":  e.Op,
	}
	optional := map[string]string{
		"choice":      e.Choice,
		"answered":    e.Answered,
		"action":      e.Action,
		"reason":      e.Reason,
		"error":       e.Error,
		"session":     e.Session,
		"fingerprint": e.Fingerprint,
		"left":        e.Left,
		"right":       e.Right,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	if len(e.Ordering) > 0 {
		m["ordering"] = e.Ordering
	}
	if e.HasProgress {
		m["version"] = e.Version
		m["ranked"] = e.Ranked
		m["remaining"] = e.Remaining
		m["comparisons"] = e.Comparisons
	}
	return m
}
