package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/jumpin/internal/auth"
	"github.com/geocoder89/jumpin/internal/clock"
)

type Manager struct {
	jwt   *auth.Manager
	store Store
	clock clock.Clock
}

func NewManager(jwt *auth.Manager, store Store, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.System{}
	}
	return &Manager{jwt: jwt, store: store, clock: clk}
}

// Issue starts a new session for an authenticated user.
func (m *Manager) Issue(ctx context.Context, userID, email string) (Session, Tokens, error) {
	raw, sid, expiresAt, err := m.jwt.GenerateRefreshToken(userID, email)
	if err != nil {
		return Session{}, Tokens{}, fmt.Errorf("generate refresh token: %w", err)
	}

	rec := Record{
		ID:        sid,
		UserID:    userID,
		Email:     email,
		TokenHash: m.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: m.clock.Now(),
	}

	if err := m.store.Create(ctx, rec); err != nil {
		return Session{}, Tokens{}, fmt.Errorf("store session: %w", err)
	}

	return m.tokensFor(rec, raw)
}

// Current resolves an access token to its live session.
func (m *Manager) Current(ctx context.Context, accessToken string) (Session, error) {
	claims, err := m.jwt.VerifyAccessToken(accessToken)
	if err != nil {
		return Session{}, ErrUnauthorized
	}

	rec, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}

	if rec.UserID != claims.UserID {
		return Session{}, ErrUnauthorized
	}

	s := rec.Session()
	if !s.Active(m.clock.Now()) {
		return Session{}, ErrUnauthorized
	}

	return s, nil
}

// Refresh rotates the session behind a refresh token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Session, Tokens, error) {
	claims, err := m.jwt.VerifyRefreshToken(refreshToken)
	if err != nil {
		return Session{}, Tokens{}, ErrUnauthorized
	}

	rec, err := m.store.Get(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, Tokens{}, ErrUnauthorized
		}
		return Session{}, Tokens{}, err
	}

	// hash check prevents token substitution
	if rec.RevokedAt != nil || !m.clock.Now().Before(rec.ExpiresAt) || rec.TokenHash != m.jwt.HashRefreshToken(refreshToken) {
		return Session{}, Tokens{}, ErrUnauthorized
	}

	raw, sid, expiresAt, err := m.jwt.GenerateRefreshToken(rec.UserID, rec.Email)
	if err != nil {
		return Session{}, Tokens{}, fmt.Errorf("generate refresh token: %w", err)
	}

	next := Record{
		ID:        sid,
		UserID:    rec.UserID,
		Email:     rec.Email,
		TokenHash: m.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: m.clock.Now(),
	}

	if err := m.store.Rotate(ctx, rec.ID, next); err != nil {
		if errors.Is(err, ErrRevoked) || errors.Is(err, ErrNotFound) {
			return Session{}, Tokens{}, ErrUnauthorized
		}
		return Session{}, Tokens{}, fmt.Errorf("rotate session: %w", err)
	}

	return m.tokensFor(next, raw)
}

// Revoke ends the session behind a refresh token. Unknown or invalid tokens are a no-op.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := m.jwt.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	err = m.store.Revoke(ctx, claims.JTI)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (m *Manager) tokensFor(rec Record, rawRefresh string) (Session, Tokens, error) {
	access, accessExp, err := m.jwt.GenerateAccessToken(rec.UserID, rec.Email, rec.ID)
	if err != nil {
		return Session{}, Tokens{}, fmt.Errorf("generate access token: %w", err)
	}

	return rec.Session(), Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}
