// Package store provides SQLite-backed durable storage for ranking sessions.
//
// Tables:
//   - sessions: one row per user, the full session record with JSON columns
//   - toplists: the last completed ranking of each user, one row per place
//   - audit: residue of cancelled and superseded sessions
//   - games, user_games: the catalog candidates are drawn from
//
// # Compare-and-swap
//
// Save is conditional on (session_id, version). A version-0 record replaces
// whatever the user had; any other version must find its predecessor in
// place or the save fails with session.ErrVersionConflict. The session row
// and a completed top list are written in one transaction.
//
// # Deterministic reads
//
// Every multi-row query has a total ORDER BY so identical data always reads
// back identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
