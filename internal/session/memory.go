package session

import (
	"context"
	"sync"

	"github.com/roach88/toplist/internal/rank"
)

// MemoryStore is a process-local Store, AuditLog and top list reader.
// Records are deep-copied on the way in and out.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*rank.Session
	toplists map[string]rank.TopList
	audit    []rank.AuditRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*rank.Session),
		toplists: make(map[string]rank.TopList),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, userID string) (*rank.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID].Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s *rank.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Version != 0 {
		cur, ok := m.sessions[s.UserID]
		if !ok || cur.ID != s.ID || cur.Version != s.Version-1 {
			return ErrVersionConflict
		}
	}
	m.sessions[s.UserID] = s.Clone()
	if s.Status == rank.StatusCompleted {
		m.toplists[s.UserID] = rank.TopListOf(s)
	}
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Audit implements AuditLog.
func (m *MemoryStore) Audit(_ context.Context, rec rank.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, rec)
	return nil
}

// AuditRecords returns the recorded audit entries for userID in order.
func (m *MemoryStore) AuditRecords(_ context.Context, userID string) ([]rank.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rank.AuditRecord
	for _, r := range m.audit {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// TopList returns the user's last completed ranking, or false if none.
func (m *MemoryStore) TopList(_ context.Context, userID string) (rank.TopList, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tl, ok := m.toplists[userID]
	return tl, ok, nil
}
