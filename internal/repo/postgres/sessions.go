package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/jumpin/internal/observability"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSessionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SessionsRepo {
	return &SessionsRepo{pool: pool, prom: prom}
}

func (r *SessionsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const sessionColumns = `id, user_id, email, token_hash, expires_at, revoked_at, replaced_by, created_at`

func scanSession(row pgx.Row) (session.Record, error) {
	var rec session.Record
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Email,
		&rec.TokenHash,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.ReplacedBy,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Record{}, fmt.Errorf("%w: %w", session.ErrNotFound, err)
		}
		return session.Record{}, err
	}
	return rec, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, q execer, rec session.Record) error {
	_, err := q.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.UserID, rec.Email, rec.TokenHash, rec.ExpiresAt, rec.RevokedAt, rec.ReplacedBy, rec.CreatedAt,
	)
	return err
}

func (r *SessionsRepo) Create(ctx context.Context, rec session.Record) error {
	return r.observe("sessions.create", func() error {
		return insertSession(ctx, r.pool, rec)
	})
}

func (r *SessionsRepo) Get(ctx context.Context, id string) (rec session.Record, err error) {
	err = r.observe("sessions.get", func() error {
		var e error
		rec, e = scanSession(r.pool.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
		return e
	})
	return
}

// Rotate locks the old row to prevent concurrent refresh races.
func (r *SessionsRepo) Rotate(ctx context.Context, oldID string, next session.Record) error {
	return r.observe("sessions.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		old, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, oldID))
		if err != nil {
			return err
		}
		if old.RevokedAt != nil {
			return session.ErrRevoked
		}

		if _, err := tx.Exec(ctx,
			`UPDATE sessions SET revoked_at = NOW(), replaced_by = $2 WHERE id = $1`,
			oldID, next.ID,
		); err != nil {
			return err
		}

		if err := insertSession(ctx, tx, next); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *SessionsRepo) Revoke(ctx context.Context, id string) error {
	return r.observe("sessions.revoke", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE sessions SET revoked_at = COALESCE(revoked_at, NOW()) WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return session.ErrNotFound
		}
		return nil
	})
}
