// Package rank defines the value types shared by every layer of toplist.
//
// This package contains data definitions and pure helpers only. All other
// internal packages import rank; rank imports nothing internal.
//
// Key design constraints:
//   - Candidates are immutable once copied into a session
//   - Session is a plain value; every mutation happens on a Clone
//   - Left is always the pending candidate, right the ranked incumbent
//   - Fingerprints are derived from canonical JSON, never from fmt output
//   - All JSON tags use snake_case
package rank
