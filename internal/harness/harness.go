package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/toplist/internal/engine"
	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
	"github.com/roach88/toplist/internal/store"
	"github.com/roach88/toplist/internal/testutil"
)

// maxAnswerAll bounds answer_all so a broken engine cannot loop forever.
const maxAnswerAll = 10_000

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and session IDs.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	manager  *session.Manager
	gateway  *testutil.RecordingGateway
	events   *testutil.RecordingPublisher
	clock    *testutil.DeterministicClock
	taste    map[string]int

	// fingerprint labels, minted in order of first appearance
	labels  map[string]string
	byLabel map[string]string

	outstanding  *rank.Comparison
	started      []rank.Candidate
	lastOrdering []string
	seq          int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Failed
// expectations and assertions are reported in Result.Errors; the returned
// error is reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		gateway:  testutil.NewRecordingGateway(),
		events:   testutil.NewRecordingPublisher(),
		clock:    testutil.NewDeterministicClock(),
		taste:    make(map[string]int, len(scenario.Taste)),
		labels:   make(map[string]string),
		byLabel:  make(map[string]string),
	}
	for i, id := range scenario.Taste {
		h.taste[id] = i
	}
	h.manager = session.New(st, h.gateway,
		session.WithAuditLog(st),
		session.WithPublisher(h.events),
		session.WithIDGenerator(engine.NewFixedGenerator(scenario.SessionIDs...)),
		session.WithClock(h.clock.Now),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Flow {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		if step.Expect != nil {
			last := result.Trace[len(result.Trace)-1]
			for _, msg := range matchExpect(step.Expect, last) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
			}
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	user := h.scenario.User

	switch step.Op {
	case OpStart:
		specs := step.Candidates
		if len(specs) == 0 {
			specs = h.scenario.Candidates
		}
		cands := toCandidates(specs)
		res, err := h.manager.Start(ctx, user, cands)
		if err == nil {
			h.started = cands
		}
		h.record(result, step.Op, "", "", res, err)

	case OpAnswer:
		choice, err := h.resolveChoice(step.Choice)
		if err != nil {
			return err
		}
		fp, err := h.resolveFingerprint(step.Fingerprint)
		if err != nil {
			return err
		}
		res, err := h.manager.HandleAnswer(ctx, user, fp, choice)
		h.record(result, step.Op, string(choice), fp, res, err)

	case OpAnswerAll:
		if h.outstanding == nil {
			return fmt.Errorf("no outstanding comparison")
		}
		want := step.Choice
		if want == "" {
			want = ChoicePrefer
		}
		for n := 0; h.outstanding != nil; n++ {
			if n == maxAnswerAll {
				return fmt.Errorf("still presenting after %d answers", n)
			}
			choice, err := h.resolveChoice(want)
			if err != nil {
				return err
			}
			fp := h.outstanding.Fingerprint
			res, err := h.manager.HandleAnswer(ctx, user, fp, choice)
			h.record(result, OpAnswer, string(choice), fp, res, err)
			if err != nil {
				break
			}
		}

	case OpResume:
		res, err := h.manager.Resume(ctx, user)
		h.record(result, step.Op, "", "", res, err)

	case OpCancel:
		res, err := h.manager.Cancel(ctx, user)
		h.record(result, step.Op, "", "", res, err)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// record appends the trace event for one operation and tracks the
// outstanding comparison.
func (h *Harness) record(result *Result, op, choice, answered string, res session.Result, err error) {
	h.seq++
	ev := TraceEvent{
		Seq:     h.seq,
		Op:      op,
		Choice:  choice,
		Action:  string(res.Action),
		Reason:  res.Reason,
		Session: res.SessionID,
	}
	if answered != "" {
		ev.Answered = answered
		if label, ok := h.labels[answered]; ok {
			ev.Answered = label
		}
	}
	if err != nil {
		ev.Error = string(rank.KindOf(err))
		if ev.Error == "" {
			ev.Error = err.Error()
		}
	}
	if p := res.Progress; p != nil {
		ev.HasProgress = true
		ev.Version = p.Version
		ev.Ranked = p.Ranked
		ev.Remaining = p.Remaining
		ev.Comparisons = p.Comparisons
	}
	if c := res.Comparison; c != nil {
		ev.Fingerprint = h.label(c.Fingerprint)
		ev.Left = c.Left.ID
		ev.Right = c.Right.ID
	}
	if len(res.Ordering) > 0 {
		ev.Ordering = rank.IDs(res.Ordering)
	}

	switch res.Action {
	case session.ActionPresent:
		c := *res.Comparison
		h.outstanding = &c
	case session.ActionFinished:
		h.outstanding = nil
		h.lastOrdering = ev.Ordering
		for _, msg := range h.checkFinished(ev) {
			result.AddError(fmt.Sprintf("seq %d: %s", ev.Seq, msg))
		}
	case session.ActionCancelled, session.ActionNothingToRank:
		h.outstanding = nil
	}

	result.Trace = append(result.Trace, ev)
}

func (h *Harness) label(fingerprint string) string {
	if l, ok := h.labels[fingerprint]; ok {
		return l
	}
	l := fmt.Sprintf("fp#%d", len(h.labels)+1)
	h.labels[fingerprint] = l
	h.byLabel[l] = fingerprint
	return l
}

func (h *Harness) resolveFingerprint(ref string) (string, error) {
	switch {
	case ref == "":
		if h.outstanding == nil {
			return "", nil
		}
		return h.outstanding.Fingerprint, nil
	case len(ref) > 3 && ref[:3] == "fp#":
		fp, ok := h.byLabel[ref]
		if !ok {
			return "", fmt.Errorf("fingerprint %s has not been presented", ref)
		}
		return fp, nil
	default:
		return ref, nil
	}
}

// resolveChoice maps "prefer" to left or right by taste.
func (h *Harness) resolveChoice(choice string) (rank.Choice, error) {
	if choice != ChoicePrefer {
		return rank.ParseChoice(choice)
	}
	if h.outstanding == nil {
		return "", fmt.Errorf("choice %q with no outstanding comparison", choice)
	}
	l, okL := h.taste[h.outstanding.Left.ID]
	r, okR := h.taste[h.outstanding.Right.ID]
	if !okL || !okR {
		return "", fmt.Errorf("taste does not rank %s vs %s", h.outstanding.Left.ID, h.outstanding.Right.ID)
	}
	if l < r {
		return rank.ChoiceLeft, nil
	}
	return rank.ChoiceRight, nil
}
