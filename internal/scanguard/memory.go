package scanguard

import (
	"context"
	"time"

	"github.com/geocoder89/jumpin/internal/cache"
	"github.com/google/uuid"
)

type Memory struct {
	ttl   time.Duration
	store *cache.Cache
	now   func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:   ttl,
		store: cache.New(ttl).WithClock(now),
		now:   now,
	}
}

func (m *Memory) Open(_ context.Context, userID string) (Scan, error) {
	s := Scan{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl).UTC(),
	}
	m.store.SetTTL(ownerKey(s.ID), userID, m.ttl)
	return s, nil
}

func (m *Memory) Claim(_ context.Context, scanID, userID string) error {
	owner, ok := m.store.Get(ownerKey(scanID))
	if !ok || owner != userID {
		return ErrScanNotFound
	}

	exp, ok := m.store.Expiry(ownerKey(scanID))
	if !ok {
		return ErrScanNotFound
	}

	if !m.store.SetNX(claimedKey(scanID), true, exp.Sub(m.now())) {
		return ErrDuplicateDecode
	}
	return nil
}

func (m *Memory) Close(_ context.Context, scanID, userID string) error {
	owner, ok := m.store.Get(ownerKey(scanID))
	if !ok || owner != userID {
		return nil
	}
	m.store.Delete(ownerKey(scanID), claimedKey(scanID))
	return nil
}
