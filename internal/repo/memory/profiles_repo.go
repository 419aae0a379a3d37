package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
)

type ProfilesRepo struct {
	mu      sync.RWMutex
	items   map[string]profile.Profile
	byEmail map[string]string
}

func NewProfilesRepo() *ProfilesRepo {
	return &ProfilesRepo{
		items:   make(map[string]profile.Profile),
		byEmail: make(map[string]string),
	}
}

func (r *ProfilesRepo) Insert(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	key := strings.ToLower(p.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[p.ID]; exists {
		return profile.Profile{}, profile.ErrAlreadyExists
	}
	if _, exists := r.byEmail[key]; exists {
		return profile.Profile{}, profile.ErrAlreadyExists
	}

	r.items[p.ID] = p
	r.byEmail[key] = p.ID

	return p, nil
}

func (r *ProfilesRepo) UpdateLastCheckin(ctx context.Context, id string, at time.Time) (profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}

	p = p.WithCheckin(at)
	r.items[id] = p

	return p, nil
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}
