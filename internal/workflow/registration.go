package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/domain/user"
	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
)

type RegisterInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DOB          string `json:"dob"`
	School       string `json:"school"`
	CustomSchool string `json:"customSchool"`
}

type RegisterResult struct {
	Profile profile.Profile
	Session session.Session
	Tokens  session.Tokens
}

type Registration struct {
	ids      Identity
	profiles ProfileStore
	schools  *profile.Catalogue
	mirror   sheets.Mirror
	dispatch Dispatcher
	clock    clock.Clock
	log      *slog.Logger
}

type RegistrationDeps struct {
	Identity Identity
	Profiles ProfileStore
	Schools  *profile.Catalogue
	Mirror   sheets.Mirror
	Dispatch Dispatcher
	Clock    clock.Clock
	Logger   *slog.Logger
}

func NewRegistration(d RegistrationDeps) *Registration {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Schools == nil {
		d.Schools = profile.NewCatalogue(profile.DefaultSchools)
	}
	return &Registration{
		ids:      d.Identity,
		profiles: d.Profiles,
		schools:  d.Schools,
		mirror:   d.Mirror,
		dispatch: d.Dispatch,
		clock:    d.Clock,
		log:      d.Logger,
	}
}

// Register creates the credential, then the profile, then the session, then
// dispatches the spreadsheet append. A credential without a profile is logged
// and left in place.
func (r *Registration) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in, school, err := r.validate(in)
	if err != nil {
		return RegisterResult{}, err
	}

	u, err := r.ids.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	p, err := r.profiles.Insert(ctx, profile.New(profile.NewProfileParams{
		ID:        u.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     u.Email,
		School:    school,
		DOB:       in.DOB,
	}, r.clock.Now()))
	if err != nil {
		r.log.ErrorContext(ctx, "registration.credential_without_profile",
			"uid", u.ID,
			"email", u.Email,
			"err", err,
		)
		return RegisterResult{}, fmt.Errorf("%w: %w", ErrProfilePersist, err)
	}

	sess, tokens, err := r.ids.StartSession(ctx, u)
	if err != nil {
		// No session means the mirror gate stays shut; the row is not appended.
		r.log.ErrorContext(ctx, "registration.session_failed",
			"uid", p.ID,
			"err", err,
		)
		return RegisterResult{Profile: p}, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}

	row := sheets.Row{
		UID:       p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		School:    p.School,
		DOB:       p.DOB,
	}
	r.dispatch.Dispatch(ctx, mirror.Task{
		Op:      mirror.OpAppendRow,
		Session: &sess,
		Run: func(ctx context.Context) error {
			return r.mirror.AppendRow(ctx, row)
		},
	})

	r.log.InfoContext(ctx, "registration.completed", "uid", p.ID, "school", p.School)

	return RegisterResult{Profile: p, Session: sess, Tokens: tokens}, nil
}

func (r *Registration) validate(in RegisterInput) (RegisterInput, string, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.DOB = strings.TrimSpace(in.DOB)

	required := []struct{ field, value string }{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"email", in.Email},
		{"password", in.Password},
		{"dob", in.DOB},
		{"school", strings.TrimSpace(in.School)},
	}
	for _, f := range required {
		if f.value == "" {
			return in, "", invalid(f.field, "is required")
		}
	}

	if !user.ValidEmail(user.NormalizeEmail(in.Email)) {
		return in, "", invalid("email", "is not a valid email address")
	}

	if _, err := time.Parse(profile.DateLayout, in.DOB); err != nil {
		return in, "", invalid("dob", "must be a date in YYYY-MM-DD form")
	}

	school, err := r.schools.Resolve(in.School, in.CustomSchool)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrCustomSchoolRequired), errors.Is(err, profile.ErrCustomSchoolIsSentinel):
		return in, "", invalid("customSchool", err.Error())
	default:
		return in, "", invalid("school", err.Error())
	}

	return in, school, nil
}
