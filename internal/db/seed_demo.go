package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/domain/user"
)

type DemoAccount struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	School    string
	DOB       string
}

// Registrar is the slice of identity the seeder needs.
type Registrar interface {
	SignUp(ctx context.Context, email, password string) (user.User, error)
}

type ProfileInserter interface {
	Insert(ctx context.Context, p profile.Profile) (profile.Profile, error)
}

// EnsureDemoAccount creates the demo login and its profile once. An existing
// account is left untouched.
func EnsureDemoAccount(ctx context.Context, ids Registrar, profiles ProfileInserter, acct DemoAccount, now time.Time) error {
	if acct.Email == "" || acct.Password == "" {
		return nil
	}

	u, err := ids.SignUp(ctx, acct.Email, acct.Password)
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed demo credential: %w", err)
	}

	p := profile.New(profile.NewProfileParams{
		ID:        u.ID,
		FirstName: acct.FirstName,
		LastName:  acct.LastName,
		Email:     u.Email,
		School:    acct.School,
		DOB:       acct.DOB,
	}, now)

	if _, err := profiles.Insert(ctx, p); err != nil && !errors.Is(err, profile.ErrAlreadyExists) {
		return fmt.Errorf("seed demo profile: %w", err)
	}

	slog.InfoContext(ctx, "seed.demo_account_created", "uid", u.ID, "email", u.Email)
	return nil
}
