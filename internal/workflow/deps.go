// Package workflow holds the two user-facing flows: registration and QR
// check-in. The profile store is authoritative; the spreadsheet mirror is
// dispatched afterwards as a side effect and cannot fail the flow.
package workflow

import (
	"context"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/domain/user"
	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/session"
)

type Identity interface {
	SignUp(ctx context.Context, email, password string) (user.User, error)
	StartSession(ctx context.Context, u user.User) (session.Session, session.Tokens, error)
}

type ProfileStore interface {
	Insert(ctx context.Context, p profile.Profile) (profile.Profile, error)
	UpdateLastCheckin(ctx context.Context, id string, at time.Time) (profile.Profile, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, t mirror.Task)
}

// FormatTimestamp is the wire and spreadsheet form of a check-in time.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
