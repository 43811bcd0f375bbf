package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/toplist/internal/engine"
	"github.com/roach88/toplist/internal/events"
	"github.com/roach88/toplist/internal/rank"
)

// DefaultMaxCandidates bounds how many candidates StartRanking takes from
// the source.
const DefaultMaxCandidates = 50

// maxSaveAttempts is the number of Save attempts before a version conflict
// is reported as KindStorageConflict.
const maxSaveAttempts = 2

// Manager is the ranking state machine for all users.
//
// Thread-safety: every method is safe for concurrent use. Mutating methods
// serialize per user; Progress takes no lock.
type Manager struct {
	store     Store
	gateway   Gateway
	source    Source
	audit     AuditLog
	publisher events.Publisher
	metrics   Metrics
	ids       engine.IDGenerator
	now       func() time.Time
	logger    *slog.Logger

	maxCandidates int
	locks         *keyedMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithSource sets the candidate source used by StartRanking.
func WithSource(src Source) Option {
	return func(m *Manager) { m.source = src }
}

// WithAuditLog sets where cancelled and superseded sessions are recorded.
// Without one, audit records are only logged.
func WithAuditLog(a AuditLog) Option {
	return func(m *Manager) { m.audit = a }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithIDGenerator sets the session ID generator.
// Use engine.NewFixedGenerator in tests for deterministic IDs.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMaxCandidates sets the StartRanking cap. n <= 0 disables the cap.
func WithMaxCandidates(n int) Option {
	return func(m *Manager) { m.maxCandidates = n }
}

// New creates a Manager over store and gw.
func New(store Store, gw Gateway, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		gateway:       gw,
		publisher:     events.Nop{},
		metrics:       nopMetrics{},
		ids:           engine.UUIDv7Generator{},
		now:           func() time.Time { return time.Now().UTC() },
		logger:        slog.Default(),
		maxCandidates: DefaultMaxCandidates,
		locks:         newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartRanking fetches the user's candidates from the source and starts a
// session over the most popular ones.
//
// An empty source result is not an error: the result action is
// ActionNothingToRank and no session is created.
func (m *Manager) StartRanking(ctx context.Context, userID string) (Result, error) {
	defer m.observe("start_ranking", time.Now())

	if m.source == nil {
		return Result{}, rank.WrapError(rank.KindSourceUnavailable, userID, "no candidate source configured", nil)
	}
	if strings.TrimSpace(userID) == "" {
		return Result{}, rank.NewError(rank.KindInvalidInput, "empty user id")
	}

	cands, err := m.source.Fetch(ctx, userID)
	if err != nil {
		if rank.KindOf(err) != "" {
			return Result{}, err
		}
		return Result{}, rank.WrapError(rank.KindSourceUnavailable, userID, "fetch candidates", err)
	}
	if len(cands) == 0 {
		m.logger.Info("nothing to rank", "user", userID)
		return Result{Action: ActionNothingToRank, UserID: userID}, nil
	}
	if m.maxCandidates > 0 && len(cands) > m.maxCandidates {
		cands = cands[:m.maxCandidates]
	}
	return m.Start(ctx, userID, cands)
}

// Start begins a new session for userID over candidates, discarding any
// previous session.
//
// Candidates must be non-empty with unique, non-blank IDs. A previous
// session that was still collecting is recorded as superseded and its
// prompt withdrawn. With one candidate the session completes immediately.
func (m *Manager) Start(ctx context.Context, userID string, candidates []rank.Candidate) (Result, error) {
	defer m.observe("start", time.Now())

	if strings.TrimSpace(userID) == "" {
		return Result{}, rank.NewError(rank.KindInvalidInput, "empty user id")
	}
	if err := rank.ValidateCandidates(candidates); err != nil {
		var re *rank.Error
		if errors.As(err, &re) && re.UserID == "" {
			re.UserID = userID
		}
		return Result{}, err
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	prev, err := m.store.Load(ctx, userID)
	if err != nil {
		return Result{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
	}

	now := m.now()
	s := &rank.Session{
		ID:        m.ids.Generate(),
		UserID:    userID,
		Status:    rank.StatusCollecting,
		Queue:     slices.Clone(candidates),
		Total:     len(candidates),
		CreatedAt: now,
		UpdatedAt: now,
	}
	more := engine.Begin(s)
	if !more {
		m.finalize(s)
	}

	if err := m.store.Save(ctx, s); err != nil {
		return Result{}, rank.WrapError(rank.KindStorage, userID, "save new session", err)
	}

	if prev.Active() {
		// Withdraw the old question before any new one is presented; a
		// session that completes at once presents nothing to replace it.
		if err := m.gateway.CancelPrompt(ctx, userID); err != nil {
			m.logger.Warn("cancel prompt failed", "user", userID, "session", prev.ID, "error", err)
		}
		m.recordAudit(ctx, rank.AuditOf(prev, rank.AuditSuperseded, now))
		m.metrics.SessionFinished(OutcomeSuperseded)
		m.publish(ctx, eventOf(events.SessionSuperseded, prev, now))
	}

	m.metrics.SessionStarted()
	m.publish(ctx, eventOf(events.SessionStarted, s, now))
	m.logger.Info("session started",
		"user", userID,
		"session", s.ID,
		"candidates", s.Total,
		"max_comparisons", engine.MaxComparisons(s.Total))

	if !more {
		return m.completed(ctx, s), nil
	}
	return m.present(ctx, s)
}

// HandleAnswer applies one answer to the user's current comparison.
//
// The answer only counts if fingerprint matches the outstanding comparison
// of a collecting session; anything else is a no-op with Reason
// ReasonStale. ChoiceAbstain changes nothing and re-presents the same
// comparison.
//
// A version conflict on save is retried once against freshly loaded state,
// after which it is reported as KindStorageConflict.
func (m *Manager) HandleAnswer(ctx context.Context, userID, fingerprint string, choice rank.Choice) (Result, error) {
	defer m.observe("answer", time.Now())

	if !choice.Decisive() && choice != rank.ChoiceAbstain {
		return Result{}, rank.WrapError(rank.KindInvalidInput, userID, "unknown choice "+string(choice), nil)
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		s, err := m.store.Load(ctx, userID)
		if err != nil {
			return Result{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
		}
		if s == nil {
			return Result{}, rank.WrapError(rank.KindNoActiveSession, userID, "no session", nil)
		}
		if !s.Active() {
			return m.stale(userID, fingerprint, s), nil
		}

		current, ok := engine.Current(s)
		if !ok {
			return Result{}, rank.WrapError(rank.KindStorage, userID, "collecting session has no outstanding comparison", nil)
		}
		if current.Fingerprint != fingerprint {
			return m.stale(userID, fingerprint, s), nil
		}

		if choice == rank.ChoiceAbstain {
			m.metrics.AnswerRecorded(AnswerAbstain)
			m.logger.Debug("abstained", "user", userID, "fingerprint", fingerprint)
			return m.present(ctx, s)
		}

		next := s.Clone()
		if err := engine.Apply(next, choice); err != nil {
			return Result{}, rank.WrapError(rank.KindInvalidInput, userID, "apply answer", err)
		}
		next.Version++
		next.UpdatedAt = m.now()
		more := engine.Settle(next)
		if !more {
			m.finalize(next)
		}

		err = m.store.Save(ctx, next)
		if errors.Is(err, ErrVersionConflict) {
			m.metrics.StoreConflict()
			if attempt < maxSaveAttempts {
				m.logger.Warn("version conflict, retrying", "user", userID, "version", next.Version)
				continue
			}
			return Result{}, rank.WrapError(rank.KindStorageConflict, userID, "save answer", err)
		}
		if err != nil {
			return Result{}, rank.WrapError(rank.KindStorage, userID, "save answer", err)
		}

		m.metrics.AnswerRecorded(AnswerAccepted)
		m.logger.Debug("answer accepted",
			"user", userID,
			"choice", string(choice),
			"version", next.Version,
			"ranked", len(next.Ranked))

		if !more {
			return m.completed(ctx, next), nil
		}
		return m.present(ctx, next)
	}
}

// Cancel discards the user's collecting session and withdraws its prompt.
func (m *Manager) Cancel(ctx context.Context, userID string) (Result, error) {
	defer m.observe("cancel", time.Now())

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return Result{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
	}
	if !s.Active() {
		return Result{}, rank.WrapError(rank.KindNoActiveSession, userID, "nothing to cancel", nil)
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		return Result{}, rank.WrapError(rank.KindStorage, userID, "delete session", err)
	}

	now := m.now()
	m.recordAudit(ctx, rank.AuditOf(s, rank.AuditCancelled, now))
	if err := m.gateway.CancelPrompt(ctx, userID); err != nil {
		m.logger.Warn("cancel prompt failed", "user", userID, "error", err)
	}

	s.Status = rank.StatusCancelled
	m.metrics.SessionFinished(OutcomeCancelled)
	m.publish(ctx, eventOf(events.SessionCancelled, s, now))
	m.logger.Info("session cancelled", "user", userID, "session", s.ID, "ranked", len(s.Ranked))

	return resultFor(ActionCancelled, s), nil
}

// Resume re-presents the outstanding comparison after a restart, or
// returns the ordering of a completed session. It never mutates state.
func (m *Manager) Resume(ctx context.Context, userID string) (Result, error) {
	defer m.observe("resume", time.Now())

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return Result{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
	}
	switch {
	case s == nil:
		return Result{}, rank.WrapError(rank.KindNoActiveSession, userID, "no session", nil)
	case s.Status == rank.StatusCompleted:
		res := resultFor(ActionFinished, s)
		res.Ordering = slices.Clone(s.Ranked)
		return res, nil
	case s.Active():
		return m.present(ctx, s)
	default:
		return Result{}, rank.WrapError(rank.KindNoActiveSession, userID, "session is "+string(s.Status), nil)
	}
}

// Current returns the outstanding comparison without presenting it.
// Takes no lock; the answer may already be stale when it is returned.
func (m *Manager) Current(ctx context.Context, userID string) (rank.Comparison, error) {
	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return rank.Comparison{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
	}
	if !s.Active() {
		return rank.Comparison{}, rank.WrapError(rank.KindNoActiveSession, userID, "no collecting session", nil)
	}
	c, ok := engine.Current(s)
	if !ok {
		return rank.Comparison{}, rank.WrapError(rank.KindStorage, userID, "collecting session has no outstanding comparison", nil)
	}
	return c, nil
}

// Progress summarizes the user's stored session. Takes no lock.
func (m *Manager) Progress(ctx context.Context, userID string) (rank.Progress, error) {
	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return rank.Progress{}, rank.WrapError(rank.KindStorage, userID, "load session", err)
	}
	if s == nil {
		return rank.Progress{}, rank.WrapError(rank.KindNoActiveSession, userID, "no session", nil)
	}
	return rank.ProgressOf(s), nil
}

// present hands the outstanding comparison of s to the gateway.
// State is already persisted, so a delivery failure is recoverable by
// Resume.
func (m *Manager) present(ctx context.Context, s *rank.Session) (Result, error) {
	c, ok := engine.Current(s)
	if !ok {
		return Result{}, rank.WrapError(rank.KindStorage, s.UserID, "collecting session has no outstanding comparison", nil)
	}

	res := resultFor(ActionPresent, s)
	res.Comparison = &c

	if err := m.gateway.Present(ctx, c); err != nil {
		m.logger.Error("present failed", "user", s.UserID, "fingerprint", c.Fingerprint, "error", err)
		return res, rank.WrapError(rank.KindDelivery, s.UserID, "present comparison", err)
	}
	return res, nil
}

func (m *Manager) stale(userID, fingerprint string, s *rank.Session) Result {
	m.metrics.AnswerRecorded(AnswerStale)
	m.logger.Debug("stale answer ignored",
		"user", userID,
		"fingerprint", fingerprint,
		"status", string(s.Status),
		"version", s.Version)
	res := resultFor(ActionNoOp, s)
	res.Reason = ReasonStale
	return res
}

// finalize moves a session whose engine is idle through FINALIZING to
// COMPLETED. Must be called before the final Save.
func (m *Manager) finalize(s *rank.Session) {
	s.Status = rank.StatusFinalizing
	s.Pending = nil
	if len(s.Ranked) != s.Total {
		m.logger.Error("finalizing session with missing candidates",
			"user", s.UserID, "session", s.ID, "ranked", len(s.Ranked), "total", s.Total)
	}
	s.Status = rank.StatusCompleted
}

func (m *Manager) completed(ctx context.Context, s *rank.Session) Result {
	m.metrics.SessionFinished(OutcomeCompleted)
	m.publish(ctx, eventOf(events.SessionCompleted, s, s.UpdatedAt))
	m.logger.Info("session completed",
		"user", s.UserID,
		"session", s.ID,
		"candidates", s.Total,
		"comparisons", s.Comparisons)

	res := resultFor(ActionFinished, s)
	res.Ordering = slices.Clone(s.Ranked)
	return res
}

func (m *Manager) recordAudit(ctx context.Context, rec rank.AuditRecord) {
	m.logger.Info("session ended",
		"user", rec.UserID,
		"session", rec.SessionID,
		"event", string(rec.Event),
		"ranked", rec.RankedCount,
		"total", rec.Total)
	if m.audit == nil {
		return
	}
	if err := m.audit.Audit(ctx, rec); err != nil {
		m.logger.Warn("audit write failed", "user", rec.UserID, "session", rec.SessionID, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.Warn("publish event failed", "type", string(e.Type), "user", e.UserID, "error", err)
	}
}

func (m *Manager) observe(op string, start time.Time) {
	m.metrics.ObserveOperation(op, time.Since(start))
}

func eventOf(t events.Type, s *rank.Session, at time.Time) events.Event {
	e := events.Event{
		Type:        t,
		UserID:      s.UserID,
		SessionID:   s.ID,
		Version:     s.Version,
		Total:       s.Total,
		Comparisons: s.Comparisons,
		At:          at,
	}
	if t == events.SessionCompleted {
		e.Ordering = rank.IDs(s.Ranked)
	}
	return e
}
