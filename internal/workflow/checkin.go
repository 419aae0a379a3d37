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
	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/scanguard"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
)

type CheckinInput struct {
	ScanID  string
	Payload string
}

type CheckinResult struct {
	Profile     profile.Profile `json:"profile"`
	CheckedInAt time.Time       `json:"checkedInAt"`
}

type CheckinRecorder interface {
	ObserveCheckin(result string)
}

type Checkin struct {
	guard    scanguard.Guard
	profiles ProfileStore
	mirror   sheets.Mirror
	dispatch Dispatcher
	clock    clock.Clock
	log      *slog.Logger
	recorder CheckinRecorder
}

type CheckinDeps struct {
	Guard    scanguard.Guard
	Profiles ProfileStore
	Mirror   sheets.Mirror
	Dispatch Dispatcher
	Clock    clock.Clock
	Logger   *slog.Logger
	Recorder CheckinRecorder
}

func NewCheckin(d CheckinDeps) *Checkin {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Checkin{
		guard:    d.Guard,
		profiles: d.Profiles,
		mirror:   d.Mirror,
		dispatch: d.Dispatch,
		clock:    d.Clock,
		log:      d.Logger,
		recorder: d.Recorder,
	}
}

// OpenScanner starts a scan session for the signed-in user.
func (c *Checkin) OpenScanner(ctx context.Context, sess session.Session) (scanguard.Scan, error) {
	if err := session.Require(&sess, c.clock.Now()); err != nil {
		return scanguard.Scan{}, err
	}
	return c.guard.Open(ctx, sess.UserID)
}

// CloseScanner cancels a pending scan. Nothing is written.
func (c *Checkin) CloseScanner(ctx context.Context, sess session.Session, scanID string) error {
	if err := session.Require(&sess, c.clock.Now()); err != nil {
		return err
	}
	return c.guard.Close(ctx, scanID, sess.UserID)
}

// CheckIn records one check-in for a decoded scan. Only the first decode of a
// scan session gets here; later decodes fail with ErrDuplicateDecode.
func (c *Checkin) CheckIn(ctx context.Context, sess session.Session, in CheckinInput) (CheckinResult, error) {
	if err := session.Require(&sess, c.clock.Now()); err != nil {
		return CheckinResult{}, err
	}
	if strings.TrimSpace(in.ScanID) == "" {
		return CheckinResult{}, invalid("scanId", "is required")
	}
	if in.Payload == "" {
		return CheckinResult{}, invalid("payload", "is required")
	}

	if err := c.guard.Claim(ctx, in.ScanID, sess.UserID); err != nil {
		switch {
		case errors.Is(err, scanguard.ErrDuplicateDecode):
			c.observe("duplicate")
		case errors.Is(err, scanguard.ErrScanNotFound):
			c.observe("not_found")
		default:
			c.observe("failed")
		}
		return CheckinResult{}, err
	}

	// microsecond precision so the stored and mirrored values agree
	at := c.clock.Now().UTC().Truncate(time.Microsecond)

	p, err := c.profiles.UpdateLastCheckin(ctx, sess.UserID, at)
	if err != nil {
		c.observe("failed")
		c.log.ErrorContext(ctx, "checkin.profile_update_failed", "uid", sess.UserID, "err", err)
		return CheckinResult{}, fmt.Errorf("%w: %w", ErrProfilePersist, err)
	}

	ts := FormatTimestamp(at)
	uid := sess.UserID
	c.dispatch.Dispatch(ctx, mirror.Task{
		Op:      mirror.OpUpdateCheckin,
		Session: &sess,
		Run: func(ctx context.Context) error {
			return c.mirror.UpdateCheckinCell(ctx, uid, ts)
		},
	})

	c.observe("ok")
	c.log.InfoContext(ctx, "checkin.completed",
		"uid", uid,
		"scan_id", in.ScanID,
		"checked_in_at", ts,
		"payload_len", len(in.Payload),
	)

	return CheckinResult{Profile: p, CheckedInAt: at}, nil
}

func (c *Checkin) observe(result string) {
	if c.recorder != nil {
		c.recorder.ObserveCheckin(result)
	}
}
