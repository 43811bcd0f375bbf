package rank

import (
	"fmt"
	"strings"
)

// Candidate is one game eligible for ranking.
type Candidate struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// String returns the display label, falling back to the ID.
func (c Candidate) String() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// ValidateCandidates checks that a candidate set can seed a session:
// non-empty, no blank IDs, no duplicate IDs.
//
// Returns a KindInvalidInput error describing the first violation.
func ValidateCandidates(candidates []Candidate) error {
	if len(candidates) == 0 {
		return NewError(KindInvalidInput, "candidate set is empty")
	}

	seen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if strings.TrimSpace(c.ID) == "" {
			return NewError(KindInvalidInput, fmt.Sprintf("candidate[%d] has a blank id", i))
		}
		if prev, ok := seen[c.ID]; ok {
			return NewError(KindInvalidInput,
				fmt.Sprintf("duplicate candidate id %q at positions %d and %d", c.ID, prev, i))
		}
		seen[c.ID] = i
	}
	return nil
}

// IDs returns the candidate identifiers in order.
func IDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}
