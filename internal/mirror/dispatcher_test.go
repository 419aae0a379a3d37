package mirror

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu  sync.Mutex
	got []Outcome
}

func (o *outcomes) add(out Outcome) {
	o.mu.Lock()
	o.got = append(o.got, out)
	o.mu.Unlock()
}

func (o *outcomes) all() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.got...)
}

type recorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *recorder) ObserveMirror(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[op+"/"+result]++
}

func activeSession() *session.Session {
	return &session.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
}

func newTestDispatcher(o *outcomes, rec *recorder) *Dispatcher {
	return NewDispatcher(Config{
		Timeout:  time.Second,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Recorder: rec,
		Report:   o.add,
	})
}

func TestDispatch_RunsInBackgroundAfterRequestCancel(t *testing.T) {
	o := &outcomes{}
	rec := &recorder{}
	d := newTestDispatcher(o, rec)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})

	d.Dispatch(ctx, Task{
		Op:      OpAppendRow,
		Session: activeSession(),
		Run: func(ctx context.Context) error {
			<-release
			return ctx.Err()
		},
	})

	cancel()
	close(release)
	d.Wait()

	got := o.all()
	require.Len(t, got, 1)
	require.Equal(t, ResultOK, got[0].Result)
	require.Equal(t, "u1", got[0].UserID)
	require.Equal(t, 1, rec.results[OpAppendRow+"/"+ResultOK])
}

func TestDispatch_NoSessionNeverRuns(t *testing.T) {
	o := &outcomes{}
	d := newTestDispatcher(o, &recorder{})

	ran := false
	expired := &session.Session{ID: "s", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)}

	for _, s := range []*session.Session{nil, expired} {
		d.Dispatch(context.Background(), Task{
			Op:      OpUpdateCheckin,
			Session: s,
			Run:     func(context.Context) error { ran = true; return nil },
		})
	}
	d.Wait()

	require.False(t, ran)
	for _, out := range o.all() {
		require.Equal(t, ResultUnauthorized, out.Result)
	}
}

func TestDo_ReturnsErrorAndClassifies(t *testing.T) {
	o := &outcomes{}
	d := newTestDispatcher(o, &recorder{})

	err := d.Do(context.Background(), Task{
		Op:      OpUpdateCheckin,
		Session: activeSession(),
		Run: func(context.Context) error {
			return errors.Join(errors.New("lookup"), sheets.ErrRowNotFound)
		},
	})
	require.ErrorIs(t, err, sheets.ErrRowNotFound)
	require.Equal(t, ResultRowNotFound, o.all()[0].Result)

	err = d.Do(context.Background(), Task{Op: OpAppendRow, Run: func(context.Context) error { return nil }})
	require.ErrorIs(t, err, session.ErrUnauthorized)
}

func TestWaitContext_TimesOut(t *testing.T) {
	d := newTestDispatcher(&outcomes{}, &recorder{})
	block := make(chan struct{})
	defer close(block)

	d.Dispatch(context.Background(), Task{
		Op:      OpAppendRow,
		Session: activeSession(),
		Run:     func(context.Context) error { <-block; return nil },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.WaitContext(ctx), context.DeadlineExceeded)
}

func TestClassify(t *testing.T) {
	cases := map[string]error{
		ResultOK:           nil,
		ResultUnauthorized: session.ErrUnauthorized,
		ResultRowNotFound:  sheets.ErrRowNotFound,
		ResultCircuitOpen:  sheets.ErrCircuitOpen,
		ResultUnavailable:  sheets.ErrMirrorUnavailable,
		ResultError:        errors.New("transport"),
	}
	for want, err := range cases {
		require.Equal(t, want, Classify(err))
	}
}
