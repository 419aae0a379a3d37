// Package identity is the credential service: sign-up, password sign-in and
// session lookup. Workflows depend on it only through small interfaces, so a
// hosted provider could stand in for it.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/domain/user"
	"github.com/geocoder89/jumpin/internal/security"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = user.ErrEmailTaken
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", security.MinPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", security.MaxPasswordBytes)
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Sessions interface {
	Issue(ctx context.Context, userID, email string) (session.Session, session.Tokens, error)
	Current(ctx context.Context, accessToken string) (session.Session, error)
}

type Service struct {
	users    UserStore
	sessions Sessions
	clock    clock.Clock
}

func NewService(users UserStore, sessions Sessions, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{users: users, sessions: sessions, clock: clk}
}

func NormalizeEmail(email string) string {
	return user.NormalizeEmail(email)
}

// SignUp creates a credential and assigns the user id. It does not start a session.
func (s *Service) SignUp(ctx context.Context, email, password string) (user.User, error) {
	email = NormalizeEmail(email)
	if !user.ValidEmail(email) {
		return user.User{}, ErrInvalidEmail
	}
	if !security.StrongEnough(password) {
		return user.User{}, ErrWeakPassword
	}
	if security.TooLong(password) {
		return user.User{}, ErrPasswordTooLong
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// SignInWithPassword checks the credential and issues a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (session.Session, session.Tokens, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return session.Session{}, session.Tokens{}, ErrInvalidCredentials
		}
		return session.Session{}, session.Tokens{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return session.Session{}, session.Tokens{}, ErrInvalidCredentials
	}

	return s.StartSession(ctx, u)
}

// StartSession issues a session for a user that was just authenticated some other way,
// such as a fresh sign-up.
func (s *Service) StartSession(ctx context.Context, u user.User) (session.Session, session.Tokens, error) {
	return s.sessions.Issue(ctx, u.ID, u.Email)
}

// GetSession resolves an access token. Anything but a live session is ErrUnauthorized.
func (s *Service) GetSession(ctx context.Context, accessToken string) (session.Session, error) {
	return s.sessions.Current(ctx, accessToken)
}
