package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/toplist/internal/engine"
	"github.com/roach88/toplist/internal/rank"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertions runs every assertion and returns failure messages.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := h.evaluate(ctx, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertOrdering:
		return assertSequence(a.Type, a.IDs, h.lastOrdering)

	case AssertTopList:
		tl, ok, err := h.store.TopList(ctx, h.scenario.User)
		if err != nil {
			return fmt.Errorf("load top list: %w", err)
		}
		if !ok {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.IDs), Actual: "no top list stored"}
		}
		got := make([]string, len(tl.Placements))
		for i, p := range tl.Placements {
			got[i] = p.Candidate.ID
		}
		return assertSequence(a.Type, a.IDs, got)

	case AssertEvents:
		return assertSequence(a.Type, a.Events, h.events.Types())

	case AssertAudit:
		recs, err := h.store.AuditRecords(ctx, h.scenario.User)
		if err != nil {
			return fmt.Errorf("load audit: %w", err)
		}
		got := make([]string, len(recs))
		for i, r := range recs {
			got[i] = string(r.Event)
		}
		return assertSequence(a.Type, a.Events, got)

	case AssertPromptCount:
		if n := len(h.gateway.Presented()); n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d prompts", a.Count),
				Actual:   fmt.Sprintf("%d prompts", n),
			}
		}
		return nil

	case AssertConsistent:
		return assertSequence(a.Type, h.tasteOrder(), h.lastOrdering)

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// tasteOrder is the taste restricted to the candidates of the latest
// session.
func (h *Harness) tasteOrder() []string {
	ids := rank.IDs(h.started)
	var out []string
	for _, id := range h.scenario.Taste {
		if slices.Contains(ids, id) {
			out = append(out, id)
		}
	}
	return out
}

// checkFinished verifies the invariants of every finished result: the
// ordering is a permutation of the session's candidates and took no more
// comparisons than binary insertion allows.
func (h *Harness) checkFinished(ev TraceEvent) []string {
	var msgs []string

	want := rank.IDs(h.started)
	got := slices.Clone(ev.Ordering)
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		msgs = append(msgs, fmt.Sprintf("ordering %v is not a permutation of %v", ev.Ordering, rank.IDs(h.started)))
	}

	if bound := engine.MaxComparisons(len(ev.Ordering)); ev.Comparisons > bound {
		msgs = append(msgs, fmt.Sprintf("%d comparisons exceed the bound %d", ev.Comparisons, bound))
	}
	return msgs
}

func assertSequence(kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
}

// matchExpect compares one trace event against an expect clause.
func matchExpect(exp *Expect, ev TraceEvent) []string {
	var msgs []string
	check := func(field string, want, got any) {
		if fmt.Sprint(want) != fmt.Sprint(got) {
			msgs = append(msgs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
		}
	}

	if exp.Action != "" {
		check("action", exp.Action, ev.Action)
	}
	if exp.Reason != "" {
		check("reason", exp.Reason, ev.Reason)
	}
	if exp.Error != "" {
		check("error", exp.Error, ev.Error)
	} else if ev.Error != "" {
		msgs = append(msgs, "unexpected error: "+ev.Error)
	}
	if exp.Session != "" {
		check("session", exp.Session, ev.Session)
	}
	if exp.Fingerprint != "" {
		check("fingerprint", exp.Fingerprint, ev.Fingerprint)
	}
	if exp.Left != "" {
		check("left", exp.Left, ev.Left)
	}
	if exp.Right != "" {
		check("right", exp.Right, ev.Right)
	}
	if exp.Version != nil {
		check("version", *exp.Version, ev.Version)
	}
	if exp.Ranked != nil {
		check("ranked", *exp.Ranked, ev.Ranked)
	}
	if exp.Remaining != nil {
		check("remaining", *exp.Remaining, ev.Remaining)
	}
	if exp.Comparisons != nil {
		check("comparisons", *exp.Comparisons, ev.Comparisons)
	}
	if exp.Ordering != nil {
		check("ordering", exp.Ordering, ev.Ordering)
	}
	return msgs
}
