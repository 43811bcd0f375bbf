// Package session implements the ranking state machine.
//
// A Manager owns every user's ranking session. It drives the insertion
// engine one comparison at a time, persists the session after every accepted
// answer and hands each question to a Gateway.
//
// STATES:
//
//	IDLE (no record) --start--> COLLECTING --last answer--> FINALIZING --> COMPLETED
//	                              |
//	                              +--cancel--> CANCELLED (record deleted, audit kept)
//
// A new start always discards the user's previous session.
//
// CONCURRENCY:
//
// All mutations of one user's session run inside a critical section keyed by
// user ID. Different users never share a lock. Between a Present call and the
// matching answer nothing blocks: the full session sits in the Store, so the
// process may restart in between.
//
// STALENESS:
//
// Every question carries a fingerprint of (session, left, right, window). An
// answer whose fingerprint differs from the current question is a late or
// duplicated button press and is dropped as a no-op. This is the only silent
// path; every other failure is returned as a *rank.Error.
package session
