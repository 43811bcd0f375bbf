package testutil

import (
	"context"
	"sync"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// FlakyStore wraps a session.Store and injects failures.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FlakyStore struct {
	session.Store

	mu        sync.Mutex
	conflicts int
	saveErrs  int
	loadErrs  int
	saves     int
	// BeforeSave, if set, runs before each delegated Save with the lock
	// released. Tests use it to interleave a concurrent writer.
	BeforeSave func(s *rank.Session)
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner session.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

// ConflictNext makes the next n Save calls return session.ErrVersionConflict.
func (f *FlakyStore) ConflictNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts = n
}

// FailSaveNext makes the next n Save calls return ErrInjected.
func (f *FlakyStore) FailSaveNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErrs = n
}

// FailLoadNext makes the next n Load calls return ErrInjected.
func (f *FlakyStore) FailLoadNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErrs = n
}

// Saves returns how many Save calls reached the store.
func (f *FlakyStore) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// Load implements session.Store.
func (f *FlakyStore) Load(ctx context.Context, userID string) (*rank.Session, error) {
	f.mu.Lock()
	if f.loadErrs > 0 {
		f.loadErrs--
		f.mu.Unlock()
		return nil, ErrInjected
	}
	f.mu.Unlock()
	return f.Store.Load(ctx, userID)
}

// Save implements session.Store.
func (f *FlakyStore) Save(ctx context.Context, s *rank.Session) error {
	f.mu.Lock()
	switch {
	case f.conflicts > 0:
		f.conflicts--
		f.mu.Unlock()
		return session.ErrVersionConflict
	case f.saveErrs > 0:
		f.saveErrs--
		f.mu.Unlock()
		return ErrInjected
	}
	f.saves++
	hook := f.BeforeSave
	f.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return f.Store.Save(ctx, s)
}
