package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/db"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/domain/user"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func seedUser(t *testing.T, users *UsersRepo) user.User {
	t.Helper()
	u, err := users.Create(context.Background(), user.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return u
}

func TestUsersRepo_DuplicateEmail(t *testing.T) {
	pool := testPool(t)
	users := NewUsersRepo(pool, nil)
	ctx := context.Background()

	u := seedUser(t, users)

	_, err := users.Create(ctx, user.User{ID: uuid.NewString(), Email: u.Email, PasswordHash: "y", CreatedAt: time.Now()})
	require.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestProfilesRepo_InsertAndCheckin(t *testing.T) {
	pool := testPool(t)
	users := NewUsersRepo(pool, nil)
	profiles := NewProfilesRepo(pool, nil)
	ctx := context.Background()

	u := seedUser(t, users)
	now := time.Now().UTC().Truncate(time.Microsecond)

	p, err := profiles.Insert(ctx, profile.New(profile.NewProfileParams{
		ID: u.ID, FirstName: "Anna", LastName: "Bianchi", Email: u.Email,
		School: "Liceo Scientifico A. Einstein", DOB: "2007-03-14",
	}, now))
	require.NoError(t, err)
	require.Nil(t, p.LastCheckin)
	require.Equal(t, "2007-03-14", p.DOB)

	_, err = profiles.Insert(ctx, p)
	require.ErrorIs(t, err, profile.ErrAlreadyExists)

	at := now.Add(time.Minute)
	updated, err := profiles.UpdateLastCheckin(ctx, u.ID, at)
	require.NoError(t, err)
	require.NotNil(t, updated.LastCheckin)
	require.True(t, updated.LastCheckin.Equal(at))

	_, err = profiles.UpdateLastCheckin(ctx, uuid.NewString(), at)
	require.ErrorIs(t, err, profile.ErrNotFound)
}

func TestSessionsRepo_RotateAndRevoke(t *testing.T) {
	pool := testPool(t)
	users := NewUsersRepo(pool, nil)
	sessions := NewSessionsRepo(pool, nil)
	ctx := context.Background()

	u := seedUser(t, users)
	now := time.Now().UTC()

	first := session.Record{ID: uuid.NewString(), UserID: u.ID, Email: u.Email, TokenHash: "h1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, sessions.Create(ctx, first))

	next := session.Record{ID: uuid.NewString(), UserID: u.ID, Email: u.Email, TokenHash: "h2", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, sessions.Rotate(ctx, first.ID, next))

	old, err := sessions.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.ReplacedBy)
	require.Equal(t, next.ID, *old.ReplacedBy)

	require.ErrorIs(t, sessions.Rotate(ctx, first.ID, session.Record{ID: uuid.NewString(), UserID: u.ID, Email: u.Email, TokenHash: "h3", ExpiresAt: now.Add(time.Hour), CreatedAt: now}), session.ErrRevoked)

	require.NoError(t, sessions.Revoke(ctx, next.ID))
	require.NoError(t, sessions.Revoke(ctx, next.ID))
	require.ErrorIs(t, sessions.Revoke(ctx, uuid.NewString()), session.ErrNotFound)
}
