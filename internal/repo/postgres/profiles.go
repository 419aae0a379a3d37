package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfilesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProfilesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProfilesRepo {
	return &ProfilesRepo{pool: pool, prom: prom}
}

func (r *ProfilesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// dob is read back as text so it keeps the YYYY-MM-DD form.
const profileColumns = `id, first_name, last_name, email, school, dob::text, last_checkin, created_at, updated_at`

func scanProfile(row pgx.Row) (profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.School,
		&p.DOB,
		&p.LastCheckin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, fmt.Errorf("%w: %w", profile.ErrNotFound, err)
		}
		return profile.Profile{}, err
	}
	return p, nil
}

func (r *ProfilesRepo) Insert(ctx context.Context, p profile.Profile) (out profile.Profile, err error) {
	err = r.observe("profiles.insert", func() error {
		var e error
		out, e = scanProfile(r.pool.QueryRow(ctx, `
			INSERT INTO profiles (id, first_name, last_name, email, school, dob, last_checkin, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::date, NULL, $7, $8)
			RETURNING `+profileColumns,
			p.ID, p.FirstName, p.LastName, p.Email, p.School, p.DOB, p.CreatedAt, p.UpdatedAt,
		))
		return e
	})
	if err != nil && IsUniqueViolation(err) {
		switch constraintName(err) {
		case profilesPkey, profilesEmailUniq:
			err = profile.ErrAlreadyExists
		}
	}
	return
}

// UpdateLastCheckin overwrites the single most-recent check-in. Last write wins.
func (r *ProfilesRepo) UpdateLastCheckin(ctx context.Context, id string, at time.Time) (out profile.Profile, err error) {
	err = r.observe("profiles.update_last_checkin", func() error {
		var e error
		out, e = scanProfile(r.pool.QueryRow(ctx, `
			UPDATE profiles
			SET last_checkin = $2, updated_at = $2
			WHERE id = $1
			RETURNING `+profileColumns,
			id, at.UTC(),
		))
		return e
	})
	return
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (out profile.Profile, err error) {
	err = r.observe("profiles.get_by_id", func() error {
		var e error
		out, e = scanProfile(r.pool.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
		return e
	})
	return
}
