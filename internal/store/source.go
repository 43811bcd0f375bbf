package store

import (
	"context"

	"github.com/roach88/toplist/internal/rank"
)

// CatalogSource serves candidates from the user_games table.
type CatalogSource struct {
	store *Store
}

// NewCatalogSource returns a session.Source over s.
func NewCatalogSource(s *Store) *CatalogSource {
	return &CatalogSource{store: s}
}

// Fetch implements session.Source.
func (c *CatalogSource) Fetch(ctx context.Context, userID string) ([]rank.Candidate, error) {
	return c.store.UserCandidates(ctx, userID)
}
