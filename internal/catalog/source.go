package catalog

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// StaticSource serves candidates from an in-memory catalog.
type StaticSource struct {
	catalog *Catalog
}

// NewStaticSource returns a session.Source over c.
func NewStaticSource(c *Catalog) *StaticSource {
	return &StaticSource{catalog: c}
}

// Fetch implements session.Source.
func (s *StaticSource) Fetch(_ context.Context, userID string) ([]rank.Candidate, error) {
	return s.catalog.Candidates(userID), nil
}

// CachedSource memoizes another source per user for ttl.
// Failures are not cached.
type CachedSource struct {
	inner session.Source
	cache *cache.Cache
}

// NewCachedSource wraps inner. Expired entries are purged every 2*ttl.
func NewCachedSource(inner session.Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Fetch implements session.Source.
func (c *CachedSource) Fetch(ctx context.Context, userID string) ([]rank.Candidate, error) {
	if x, found := c.cache.Get(userID); found {
		return slices.Clone(x.([]rank.Candidate)), nil
	}

	cands, err := c.inner.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(userID, slices.Clone(cands), cache.DefaultExpiration)
	return cands, nil
}

// Invalidate drops the cached entry for userID, e.g. after an import.
func (c *CachedSource) Invalidate(userID string) {
	c.cache.Delete(userID)
}

// Flush drops every cached entry.
func (c *CachedSource) Flush() {
	c.cache.Flush()
}
