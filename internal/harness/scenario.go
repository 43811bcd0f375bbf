package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/toplist/internal/rank"
)

// DefaultUser is the user a scenario runs as when it names none.
const DefaultUser = "alice"

// Scenario defines one ranking conversation and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// User is the ranking user. Defaults to DefaultUser.
	User string `yaml:"user,omitempty"`

	// SessionIDs are handed out to new sessions in order.
	SessionIDs []string `yaml:"session_ids,omitempty"`

	// Candidates are ranked by a start step without its own list.
	Candidates []CandidateSpec `yaml:"candidates"`

	// Taste is the simulated user's preference, most preferred first.
	// Required by choice "prefer" and the consistent assertion.
	Taste []string `yaml:"taste,omitempty"`

	// Flow is executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CandidateSpec is a candidate in YAML form.
type CandidateSpec struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label,omitempty"`
}

// Step is one host operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Choice is left, right, abstain or prefer (answer and answer_all).
	Choice string `yaml:"choice,omitempty"`

	// Fingerprint selects the answered comparison: empty for the
	// outstanding one, a label such as "fp#1" for an earlier one, anything
	// else is sent verbatim.
	Fingerprint string `yaml:"fingerprint,omitempty"`

	// Candidates overrides the scenario candidates for a start step.
	Candidates []CandidateSpec `yaml:"candidates,omitempty"`

	// Expect validates the step's result. For answer_all it applies to the
	// last answer.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on a step outcome. Unset fields are ignored.
type Expect struct {
	Action      string   `yaml:"action,omitempty"`
	Reason      string   `yaml:"reason,omitempty"`
	Error       string   `yaml:"error,omitempty"`
	Session     string   `yaml:"session,omitempty"`
	Version     *int64   `yaml:"version,omitempty"`
	Ranked      *int     `yaml:"ranked,omitempty"`
	Remaining   *int     `yaml:"remaining,omitempty"`
	Comparisons *int     `yaml:"comparisons,omitempty"`
	Left        string   `yaml:"left,omitempty"`
	Right       string   `yaml:"right,omitempty"`
	Fingerprint string   `yaml:"fingerprint,omitempty"`
	Ordering    []string `yaml:"ordering,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs is the expected candidate order (ordering, top_list).
	IDs []string `yaml:"ids,omitempty"`

	// Events is the expected event sequence (events, audit).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected count (prompt_count).
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpStart     = "start"
	OpAnswer    = "answer"
	OpAnswerAll = "answer_all"
	OpResume    = "resume"
	OpCancel    = "cancel"
)

// ChoicePrefer answers according to the scenario taste.
const ChoicePrefer = "prefer"

// Assertion type constants.
const (
	AssertOrdering    = "ordering"
	AssertTopList     = "top_list"
	AssertEvents      = "events"
	AssertAudit       = "audit"
	AssertPromptCount = "prompt_count"
	AssertConsistent  = "consistent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.User == "" {
		scenario.User = DefaultUser
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	needsTaste := false
	for i, step := range s.Flow {
		switch step.Op {
		case OpStart:
			if len(step.Candidates) == 0 && len(s.Candidates) == 0 {
				return fmt.Errorf("flow[%d]: start needs candidates", i)
			}
		case OpAnswer, OpAnswerAll:
			if step.Choice == ChoicePrefer || (step.Op == OpAnswerAll && step.Choice == "") {
				needsTaste = true
				break
			}
			if _, err := rank.ParseChoice(step.Choice); err != nil {
				return fmt.Errorf("flow[%d]: %w", i, err)
			}
			if step.Op == OpAnswerAll && step.Choice == string(rank.ChoiceAbstain) {
				return fmt.Errorf("flow[%d]: answer_all cannot abstain", i)
			}
		case OpResume, OpCancel:
		case "":
			return fmt.Errorf("flow[%d]: op is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
		if a.Type == AssertConsistent {
			needsTaste = true
		}
	}

	if needsTaste && len(s.Taste) == 0 {
		return fmt.Errorf("taste is required for choice %q and %s assertions", ChoicePrefer, AssertConsistent)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOrdering, AssertTopList:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: ids are required for %s", index, a.Type)
		}
	case AssertEvents, AssertAudit:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events are required for %s", index, a.Type)
		}
	case AssertPromptCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for prompt_count", index)
		}
	case AssertConsistent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func toCandidates(specs []CandidateSpec) []rank.Candidate {
	out := make([]rank.Candidate, len(specs))
	for i, c := range specs {
		out[i] = rank.Candidate{ID: c.ID, Label: c.Label}
	}
	return out
}
