package rank

import (
	"fmt"
	"strings"
)

// Choice is the user's answer to one pairwise question.
type Choice string

const (
	// ChoiceLeft means the pending candidate (left) is preferred.
	ChoiceLeft Choice = "left"

	// ChoiceRight means the ranked incumbent (right) is preferred.
	ChoiceRight Choice = "right"

	// ChoiceAbstain skips the question without mutating any state.
	ChoiceAbstain Choice = "abstain"
)

// Decisive reports whether the choice narrows the search window.
func (c Choice) Decisive() bool {
	return c == ChoiceLeft || c == ChoiceRight
}

// ParseChoice accepts the canonical names plus the short forms used on chat
// buttons ("l", "r", "skip").
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "prefers_left":
		return ChoiceLeft, nil
	case "right", "r", "prefers_right":
		return ChoiceRight, nil
	case "abstain", "skip":
		return ChoiceAbstain, nil
	default:
		return "", NewError(KindInvalidInput, fmt.Sprintf("unknown choice %q", s))
	}
}
