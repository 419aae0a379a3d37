package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/session"
	"github.com/stretchr/testify/require"
)

func TestSessionsRepo_RotateRevokesOld(t *testing.T) {
	ctx := context.Background()
	r := NewSessionsRepo()

	old := session.Record{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.Create(ctx, old))

	next := session.Record{ID: "s2", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.Rotate(ctx, "s1", next))

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	require.Equal(t, "s2", *got.ReplacedBy)

	require.ErrorIs(t, r.Rotate(ctx, "s1", session.Record{ID: "s3"}), session.ErrRevoked)
	require.ErrorIs(t, r.Rotate(ctx, "missing", session.Record{ID: "s4"}), session.ErrNotFound)
}

func TestProfilesRepo_UniqueIDAndEmail(t *testing.T) {
	ctx := context.Background()
	r := NewProfilesRepo()

	_, err := r.Insert(ctx, profileFixture("u1", "anna@x.it"))
	require.NoError(t, err)

	_, err = r.Insert(ctx, profileFixture("u1", "other@x.it"))
	require.Error(t, err)

	_, err = r.Insert(ctx, profileFixture("u2", "ANNA@x.it"))
	require.Error(t, err)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p, err := r.UpdateLastCheckin(ctx, "u1", at)
	require.NoError(t, err)
	require.True(t, p.LastCheckin.Equal(at))

	_, err = r.UpdateLastCheckin(ctx, "nobody", at)
	require.Error(t, err)
}
