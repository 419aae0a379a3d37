package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	appendFn func(ctx context.Context, row Row) error
	updateFn func(ctx context.Context, uid, ts string) error
	calls    int
}

func (f *fakeMirror) AppendRow(ctx context.Context, row Row) error {
	f.calls++
	if f.appendFn != nil {
		return f.appendFn(ctx, row)
	}
	return nil
}

func (f *fakeMirror) UpdateCheckinCell(ctx context.Context, uid, ts string) error {
	f.calls++
	if f.updateFn != nil {
		return f.updateFn(ctx, uid, ts)
	}
	return nil
}

func TestProtectedMirror_OpensAfterThresholdAndRecovers(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeMirror{appendFn: func(context.Context, Row) error { return boom }}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewProtectedMirror(inner, ProtectedConfig{FailureThreshold: 2, Cooldown: time.Minute})
	p.now = func() time.Time { return now }

	ctx := context.Background()
	require.ErrorIs(t, p.AppendRow(ctx, Row{}), boom)
	require.ErrorIs(t, p.AppendRow(ctx, Row{}), boom)
	require.Equal(t, stateOpen, p.State())

	require.ErrorIs(t, p.AppendRow(ctx, Row{}), ErrCircuitOpen)
	require.Equal(t, 2, inner.calls)

	now = now.Add(time.Minute)
	inner.appendFn = nil

	require.NoError(t, p.AppendRow(ctx, Row{}))
	require.Equal(t, stateClosed, p.State())
}

func TestProtectedMirror_HalfOpenFailureReopens(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeMirror{appendFn: func(context.Context, Row) error { return boom }}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewProtectedMirror(inner, ProtectedConfig{FailureThreshold: 1, Cooldown: time.Second})
	p.now = func() time.Time { return now }

	ctx := context.Background()
	require.ErrorIs(t, p.AppendRow(ctx, Row{}), boom)
	require.Equal(t, stateOpen, p.State())

	now = now.Add(time.Second)
	require.ErrorIs(t, p.AppendRow(ctx, Row{}), boom)
	require.Equal(t, stateOpen, p.State())
	require.ErrorIs(t, p.AppendRow(ctx, Row{}), ErrCircuitOpen)
}

func TestProtectedMirror_RowNotFoundIsNotAFailure(t *testing.T) {
	inner := &fakeMirror{updateFn: func(context.Context, string, string) error { return ErrRowNotFound }}
	p := NewProtectedMirror(inner, ProtectedConfig{FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, p.UpdateCheckinCell(context.Background(), "u", "ts"), ErrRowNotFound)
	}
	require.Equal(t, stateClosed, p.State())
	require.Equal(t, 3, inner.calls)
}

func TestProtectedMirror_AppliesTimeout(t *testing.T) {
	inner := &fakeMirror{appendFn: func(ctx context.Context, _ Row) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	p := NewProtectedMirror(inner, ProtectedConfig{Timeout: 20 * time.Millisecond})

	err := p.AppendRow(context.Background(), Row{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
