// Package session owns the lifecycle of an authenticated session: issued at
// sign-up or login, rotated on refresh, revoked at logout. It is also the auth
// gate in front of every spreadsheet mirror write.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("session not found")
	ErrRevoked      = errors.New("session revoked")
)

// Session is the explicit replacement for a cached client-side profile.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"-"`
}

func (s Session) Active(now time.Time) bool {
	return s.ID != "" && s.UserID != "" && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Require is the gate check: no active session, no mirror write.
func Require(s *Session, now time.Time) error {
	if s == nil || !s.Active(now) {
		return ErrUnauthorized
	}
	return nil
}

// Tokens are handed to the caller when a session is issued or rotated.
type Tokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Record is the stored form of a session.
type Record struct {
	ID         string
	UserID     string
	Email      string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

func (r Record) Session() Session {
	return Session{
		ID:        r.ID,
		UserID:    r.UserID,
		Email:     r.Email,
		IssuedAt:  r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		RevokedAt: r.RevokedAt,
	}
}

type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// Rotate revokes oldID and stores next atomically. It fails with ErrRevoked
	// when oldID was revoked concurrently.
	Rotate(ctx context.Context, oldID string, next Record) error
	Revoke(ctx context.Context, id string) error
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
