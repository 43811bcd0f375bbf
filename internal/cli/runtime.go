package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/toplist/internal/catalog"
	"github.com/roach88/toplist/internal/config"
	"github.com/roach88/toplist/internal/events"
	"github.com/roach88/toplist/internal/logging"
	"github.com/roach88/toplist/internal/redisstore"
	"github.com/roach88/toplist/internal/session"
	"github.com/roach88/toplist/internal/store"
)

// sessionStore is what every session backend offers.
type sessionStore interface {
	session.Store
	session.AuditLog
	session.TopListReader
}

// runtime is one run's wired collaborators.
type runtime struct {
	config   *config.Config
	catalog  *store.Store // games and libraries always live in SQLite
	sessions sessionStore
	manager  *session.Manager
	health   []func(ctx context.Context) error
	closers  []func() error
}

type runtimeOptions struct {
	gateway session.Gateway
	logger  *slog.Logger
	metrics session.Metrics

	// source replaces the catalog-backed candidate source.
	source session.Source

	// cacheTTL > 0 wraps the candidate source in a CachedSource.
	cacheTTL time.Duration
}

func openRuntime(ctx context.Context, opts *RootOptions, ro runtimeOptions) (*runtime, error) {
	cfg := opts.config
	if cfg == nil {
		return nil, errors.New("config not resolved")
	}

	cat, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	rt := &runtime{config: cfg, catalog: cat}
	rt.closers = append(rt.closers, cat.Close)
	rt.health = append(rt.health, func(context.Context) error { return cat.Ping() })

	switch cfg.Store {
	case config.StoreSQLite:
		rt.sessions = cat
	case config.StoreRedis:
		rs, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.sessions = rs
		rt.closers = append(rt.closers, rs.Close)
		rt.health = append(rt.health, rs.Ping)
	case config.StoreMemory:
		rt.sessions = session.NewMemoryStore()
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	logger := ro.logger
	if logger == nil {
		logger = logging.Discard()
	}

	var src session.Source = store.NewCatalogSource(cat)
	if ro.source != nil {
		src = ro.source
	}
	if ro.cacheTTL > 0 {
		src = catalog.NewCachedSource(src, ro.cacheTTL)
	}

	mopts := []session.Option{
		session.WithSource(src),
		session.WithAuditLog(rt.sessions),
		session.WithLogger(logger),
		session.WithMaxCandidates(cfg.MaxCandidates),
	}
	if ro.metrics != nil {
		mopts = append(mopts, session.WithMetrics(ro.metrics))
	}
	if opts.ids != nil {
		mopts = append(mopts, session.WithIDGenerator(opts.ids))
	}
	if opts.now != nil {
		mopts = append(mopts, session.WithClock(opts.now))
	}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub.Close)
		mopts = append(mopts, session.WithPublisher(pub))
	}

	rt.manager = session.New(rt.sessions, ro.gateway, mopts...)
	return rt, nil
}

// Health pings every backing store.
func (rt *runtime) Health(ctx context.Context) error {
	for _, check := range rt.health {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
