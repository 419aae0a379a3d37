package main

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/jumpin/internal/config"
	"github.com/geocoder89/jumpin/internal/db"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/http/handlers"
	"github.com/geocoder89/jumpin/internal/identity"
	"github.com/geocoder89/jumpin/internal/observability"
	"github.com/geocoder89/jumpin/internal/redisclient"
	"github.com/geocoder89/jumpin/internal/repo/memory"
	"github.com/geocoder89/jumpin/internal/repo/postgres"
	"github.com/geocoder89/jumpin/internal/scanguard"
	"github.com/geocoder89/jumpin/internal/session"
)

type profileStore interface {
	Insert(ctx context.Context, p profile.Profile) (profile.Profile, error)
	UpdateLastCheckin(ctx context.Context, id string, at time.Time) (profile.Profile, error)
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

type stores struct {
	users    identity.UserStore
	sessions session.Store
	profiles profileStore
	guard    scanguard.Guard
	ready    map[string]handlers.ReadyCheck
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks in-memory or Postgres persistence, and Redis for the scan
// guard when REDIS_ADDR is set.
func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom) (*stores, error) {
	st := &stores{ready: map[string]handlers.ReadyCheck{}}

	switch cfg.Storage {
	case config.StorageMemory:
		st.users = memory.NewUsersRepo()
		st.sessions = memory.NewSessionsRepo()
		st.profiles = memory.NewProfilesRepo()

	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		if err := db.Migrate(ctx, pool); err != nil {
			st.close()
			return nil, err
		}

		st.users = postgres.NewUsersRepo(pool, prom)
		st.sessions = postgres.NewSessionsRepo(pool, prom)
		st.profiles = postgres.NewProfilesRepo(pool, prom)
		st.ready["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }

	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	if cfg.RedisAddr == "" {
		st.guard = scanguard.NewMemory(cfg.ScanTTL)
		return st, nil
	}

	rc, err := redisclient.Open(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		st.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	st.closers = append(st.closers, func() { _ = rc.Close() })
	st.guard = scanguard.NewRedis(rc.Universal(), cfg.ScanTTL)
	st.ready["redis"] = rc.Ping

	return st, nil
}
