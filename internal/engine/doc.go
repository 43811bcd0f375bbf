// Package engine implements the binary insertion sort that turns pairwise
// answers into a total order.
//
// The engine is pure: it mutates the Ranked, Queue and Pending fields of a
// rank.Session and nothing else. It never blocks, never performs I/O and
// never reads a clock. Callers decide when a mutation is committed; the
// session state machine always mutates a Clone and discards it on failure.
//
// ALGORITHM:
//
// Begin pops the first queued candidate as pending. If nothing is ranked yet
// the next queued candidate is seeded into the ranked list without a
// comparison, so the first question is candidates[0] vs candidates[1]. A lone
// candidate is inserted directly.
//
// Current probes mid = lo + (hi-lo)/2 and asks "pending (left) vs
// ranked[mid] (right)". Apply narrows the window to [lo, mid) when left is
// preferred and to [mid+1, hi) otherwise. Settle inserts a converged pending
// candidate at lo and pops the next one with a fresh window [0, len(ranked)).
//
// BOUNDS:
//
// Inserting into a ranked list of size k takes at most ceil(log2(k+1))
// comparisons, so n candidates need at most sum_{k=1}^{n-1} ceil(log2(k+1)).
// The same answer sequence always yields the same questions and the same
// ordering.
package engine
