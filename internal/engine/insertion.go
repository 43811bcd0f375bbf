package engine

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/roach88/toplist/internal/rank"
)

// Begin starts inserting the queued candidates of s and settles until a
// comparison is needed.
//
// Returns true if a comparison is outstanding, false if every candidate has
// been placed (the engine is idle).
func Begin(s *rank.Session) bool {
	if s.Pending == nil {
		popNext(s)
	}
	return Settle(s)
}

// Settle inserts every converged pending candidate and pops the next one.
// Returns true if the session now has an outstanding comparison.
func Settle(s *rank.Session) bool {
	for s.Pending != nil && s.Pending.Window.Converged() {
		insertAt(s, s.Pending.Window.Lo, s.Pending.Candidate)
		s.Pending = nil
		popNext(s)
	}
	return s.Pending != nil
}

// Idle reports whether no candidate is pending or queued.
func Idle(s *rank.Session) bool {
	return s.Pending == nil && len(s.Queue) == 0
}

// Current returns the outstanding comparison without mutating s.
// Returns false if there is no pending candidate or its window has already
// converged (call Settle first).
func Current(s *rank.Session) (rank.Comparison, bool) {
	if s.Pending == nil || s.Pending.Window.Converged() {
		return rank.Comparison{}, false
	}

	w := s.Pending.Window
	mid := w.Mid()
	left := s.Pending.Candidate
	right := s.Ranked[mid]

	return rank.Comparison{
		Fingerprint: rank.MustFingerprint(s.ID, left.ID, right.ID, w),
		SessionID:   s.ID,
		UserID:      s.UserID,
		Left:        left,
		Right:       right,
		Index:       mid,
		Window:      w,
	}, true
}

// Apply narrows the pending window by one decisive answer and counts the
// comparison.
//
// Only ChoiceLeft and ChoiceRight are valid; anything else is a caller
// contract violation and leaves s untouched. Apply does not settle: call
// Settle afterwards to insert a converged candidate.
func Apply(s *rank.Session, choice rank.Choice) error {
	if s.Pending == nil {
		return fmt.Errorf("engine: apply %q with no pending candidate", choice)
	}
	w := s.Pending.Window
	if w.Converged() {
		return fmt.Errorf("engine: apply %q to converged window [%d,%d)", choice, w.Lo, w.Hi)
	}

	mid := w.Mid()
	switch choice {
	case rank.ChoiceLeft:
		// Pending ranks above the incumbent at mid.
		s.Pending.Window = rank.Window{Lo: w.Lo, Hi: mid}
	case rank.ChoiceRight:
		s.Pending.Window = rank.Window{Lo: mid + 1, Hi: w.Hi}
	default:
		return fmt.Errorf("engine: invalid choice %q", choice)
	}

	s.Comparisons++
	return nil
}

// popNext moves the head of the queue into Pending with a full window.
// When nothing is ranked yet, the following candidate seeds the ranked list
// so the first pending candidate has an incumbent to face.
func popNext(s *rank.Session) {
	if len(s.Queue) == 0 {
		return
	}

	next := s.Queue[0]
	s.Queue = s.Queue[1:]

	if len(s.Ranked) == 0 && len(s.Queue) > 0 {
		s.Ranked = append(s.Ranked, s.Queue[0])
		s.Queue = s.Queue[1:]
	}

	s.Pending = &rank.Pending{
		Candidate: next,
		Window:    rank.Window{Lo: 0, Hi: len(s.Ranked)},
	}
}

func insertAt(s *rank.Session, pos int, c rank.Candidate) {
	s.Ranked = slices.Insert(s.Ranked, pos, c)
}

// MaxComparisons is the worst-case number of answers needed to rank n
// candidates: sum_{k=1}^{n-1} ceil(log2(k+1)).
func MaxComparisons(n int) int {
	total := 0
	for k := 1; k < n; k++ {
		total += ceilLog2(k + 1)
	}
	return total
}

// ceilLog2 returns ceil(log2(x)) for x >= 1.
func ceilLog2(x int) int {
	if x <= 1 {
		return 0
	}
	return bits.Len(uint(x - 1))
}
