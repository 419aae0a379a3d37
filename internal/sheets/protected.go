package sheets

import (
	"context"
	"errors"
	"sync"
	"time"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half_open"
)

// ProtectedMirror bounds every call with a timeout and fails fast while the
// Sheets API keeps failing. It never retries.
type ProtectedMirror struct {
	inner Mirror
	cfg   ProtectedConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               string
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedMirror(inner Mirror, cfg ProtectedConfig) *ProtectedMirror {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedMirror{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (p *ProtectedMirror) AppendRow(ctx context.Context, row Row) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.AppendRow(ctx, row)
	})
}

func (p *ProtectedMirror) UpdateCheckinCell(ctx context.Context, uid, timestamp string) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.UpdateCheckinCell(ctx, uid, timestamp)
	})
}

// State is exposed for tests and diagnostics.
func (p *ProtectedMirror) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ProtectedMirror) call(ctx context.Context, fn func(context.Context) error) error {
	if !p.allowRequest() {
		return ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := fn(callCtx)
	p.afterRequest(err)
	return err
}

func (p *ProtectedMirror) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return false
		}
		p.state = stateHalfOpen
		p.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

// afterRequest updates the breaker. A missing row is an answer from a healthy
// API, so it does not count as a failure.
func (p *ProtectedMirror) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil || errors.Is(err, ErrRowNotFound) {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	if p.state == stateHalfOpen || p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
