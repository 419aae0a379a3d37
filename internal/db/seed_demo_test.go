package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/auth"
	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/db"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/identity"
	"github.com/geocoder89/jumpin/internal/repo/memory"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/stretchr/testify/require"
)

func demoAccount() db.DemoAccount {
	return db.DemoAccount{
		Email:     "demo@example.com",
		Password:  "password123",
		FirstName: "Demo",
		LastName:  "User",
		School:    profile.DefaultSchools[0].Value,
		DOB:       "2006-01-01",
	}
}

func newIdentity() *identity.Service {
	jwt := auth.NewManager("test-secret", time.Minute, time.Hour)
	sessions := session.NewManager(jwt, memory.NewSessionsRepo(), clock.System{})
	return identity.NewService(memory.NewUsersRepo(), sessions, clock.System{})
}

func TestEnsureDemoAccount_CreatesOnceAndCanSignIn(t *testing.T) {
	ctx := context.Background()
	ids := newIdentity()
	profiles := memory.NewProfilesRepo()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.EnsureDemoAccount(ctx, ids, profiles, demoAccount(), now))
	require.NoError(t, db.EnsureDemoAccount(ctx, ids, profiles, demoAccount(), now))

	sess, _, err := ids.SignInWithPassword(ctx, "demo@example.com", "password123")
	require.NoError(t, err)

	p, err := profiles.GetByID(ctx, sess.UserID)
	require.NoError(t, err)
	require.Equal(t, "Demo", p.FirstName)
	require.Nil(t, p.LastCheckin)
}

func TestEnsureDemoAccount_SkippedWithoutCredentials(t *testing.T) {
	acct := demoAccount()
	acct.Password = ""

	ids := newIdentity()
	require.NoError(t, db.EnsureDemoAccount(context.Background(), ids, memory.NewProfilesRepo(), acct, time.Now()))

	_, _, err := ids.SignInWithPassword(context.Background(), "demo@example.com", "password123")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

type failingProfiles struct{}

func (failingProfiles) Insert(context.Context, profile.Profile) (profile.Profile, error) {
	return profile.Profile{}, errors.New("disk full")
}

func TestEnsureDemoAccount_ProfileFailureIsReported(t *testing.T) {
	err := db.EnsureDemoAccount(context.Background(), newIdentity(), failingProfiles{}, demoAccount(), time.Now())
	require.ErrorContains(t, err, "seed demo profile")
}
