// Package harness runs ranking scenarios end to end against the session
// manager and an in-memory SQLite store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	user: alice                     # optional, default "alice"
//	session_ids: [s1, s2]           # optional, then session-N
//	candidates:
//	  - { id: A, label: Alpha }
//	taste: [B, A]                   # optional, answers choice "prefer"
//	flow:
//	  - op: start
//	    expect: { action: present, ranked: 1 }
//	  - op: answer
//	    choice: left                # left | right | abstain | prefer
//	    fingerprint: fp#1           # optional, default: the outstanding one
//	    expect: { action: noop, reason: stale }
//	  - op: answer_all              # answer until the session finishes
//	    choice: prefer
//	assertions:
//	  - type: ordering
//	    ids: [B, A]
//
// # Steps
//
//   - start: begins a session over the scenario candidates (or the step's own)
//   - answer: answers one comparison
//   - answer_all: answers repeatedly while a comparison is outstanding
//   - resume: re-presents the outstanding comparison
//   - cancel: cancels the collecting session
//
// # Assertion Types
//
//   - ordering: the last finished result has exactly these IDs in order
//   - top_list: the persisted top list has exactly these IDs in order
//   - events: the published event types, in order
//   - audit: the audit events recorded for the user, in order
//   - prompt_count: the number of comparisons handed to the gateway
//   - consistent: the last ordering agrees with taste
//
// Every finished result is also checked to be a permutation of the session's
// candidates reached within the worst-case comparison bound.
//
// # Deterministic Testing
//
// Session IDs come from a fixed generator and timestamps from
// testutil.DeterministicClock, so traces are identical across runs.
// Fingerprints are replaced by labels (fp#1, fp#2, ...) in order of first
// appearance, which keeps golden files readable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/stale_answer.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
