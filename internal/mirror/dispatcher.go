// Package mirror runs spreadsheet writes as best-effort side effects.
//
// Every write passes the session gate first. Outcomes go to the diagnostic
// channel (structured log, metrics, optional report hook) and never back into
// the caller's primary result.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
)

const (
	OpAppendRow     = "append_row"
	OpUpdateCheckin = "update_checkin"
)

const (
	ResultOK           = "ok"
	ResultRowNotFound  = "row_not_found"
	ResultCircuitOpen  = "circuit_open"
	ResultUnauthorized = "unauthorized"
	ResultUnavailable  = "unavailable"
	ResultError        = "error"
)

// Task is one mirror write on behalf of a session.
type Task struct {
	Op      string
	Session *session.Session
	Run     func(ctx context.Context) error
}

type Outcome struct {
	Op       string
	UserID   string
	Result   string
	Err      error
	Duration time.Duration
}

type Recorder interface {
	ObserveMirror(op, result string, d time.Duration)
}

type Config struct {
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
	Clock    clock.Clock
	// Report, when set, receives every outcome. Tests use it to observe
	// background tasks.
	Report func(Outcome)
}

type Dispatcher struct {
	cfg Config
	wg  sync.WaitGroup
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	return &Dispatcher{cfg: cfg}
}

// Dispatch starts t in the background and returns immediately. The task
// outlives the request context but not the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, t Task) {
	if err := session.Require(t.Session, d.cfg.Clock.Now()); err != nil {
		d.record(ctx, t, err, 0)
		return
	}

	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.run(bg, t)
	}()
}

// Do runs t synchronously behind the same gate and returns its error.
func (d *Dispatcher) Do(ctx context.Context, t Task) error {
	if err := session.Require(t.Session, d.cfg.Clock.Now()); err != nil {
		d.record(ctx, t, err, 0)
		return err
	}
	return d.run(ctx, t)
}

// Wait blocks until every dispatched task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx, for graceful shutdown.
func (d *Dispatcher) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, t Task) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := t.Run(ctx)
	d.record(ctx, t, err, time.Since(start))
	return err
}

func (d *Dispatcher) record(ctx context.Context, t Task, err error, dur time.Duration) {
	out := Outcome{
		Op:       t.Op,
		Result:   Classify(err),
		Err:      err,
		Duration: dur,
	}
	if t.Session != nil {
		out.UserID = t.Session.UserID
	}

	if d.cfg.Recorder != nil {
		d.cfg.Recorder.ObserveMirror(out.Op, out.Result, dur)
	}

	if err != nil {
		d.cfg.Logger.WarnContext(ctx, "mirror.failed",
			"op", out.Op,
			"uid", out.UserID,
			"result", out.Result,
			"err", err,
		)
	} else {
		d.cfg.Logger.DebugContext(ctx, "mirror.ok", "op", out.Op, "uid", out.UserID, "duration", dur)
	}

	if d.cfg.Report != nil {
		d.cfg.Report(out)
	}
}

func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, session.ErrUnauthorized):
		return ResultUnauthorized
	case errors.Is(err, sheets.ErrRowNotFound):
		return ResultRowNotFound
	case errors.Is(err, sheets.ErrCircuitOpen):
		return ResultCircuitOpen
	case errors.Is(err, sheets.ErrMirrorUnavailable):
		return ResultUnavailable
	default:
		return ResultError
	}
}
