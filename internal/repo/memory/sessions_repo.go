package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/jumpin/internal/session"
)

type SessionsRepo struct {
	mu    sync.Mutex
	items map[string]session.Record
}

func NewSessionsRepo() *SessionsRepo {
	return &SessionsRepo{items: make(map[string]session.Record)}
}

func (r *SessionsRepo) Create(ctx context.Context, rec session.Record) error {
	r.mu.Lock()
	r.items[rec.ID] = rec
	r.mu.Unlock()
	return nil
}

func (r *SessionsRepo) Get(ctx context.Context, id string) (session.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (r *SessionsRepo) Rotate(ctx context.Context, oldID string, next session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.items[oldID]
	if !ok {
		return session.ErrNotFound
	}
	if old.RevokedAt != nil {
		return session.ErrRevoked
	}

	now := time.Now().UTC()
	replacedBy := next.ID
	old.RevokedAt = &now
	old.ReplacedBy = &replacedBy

	r.items[oldID] = old
	r.items[next.ID] = next

	return nil
}

func (r *SessionsRepo) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return session.ErrNotFound
	}
	// idempotent
	if rec.RevokedAt == nil {
		now := time.Now().UTC()
		rec.RevokedAt = &now
		r.items[id] = rec
	}
	return nil
}
