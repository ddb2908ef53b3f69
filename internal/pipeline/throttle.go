// Package pipeline runs the ingest, classify and dispatch stages of one cycle.
package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so throttling can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Throttle spaces consecutive calls at least minDelay apart. It is a
// blocking pause between sequential calls, not a concurrency limiter.
type Throttle struct {
	minDelay time.Duration
	limiter  *rate.Limiter
	clock    Clock
	last     time.Time
}

// NewThrottle creates a Throttle. A zero or negative delay disables waiting.
func NewThrottle(minDelay time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = RealClock{}
	}
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Throttle{
		minDelay: minDelay,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
	}
}

// MinDelay returns the configured spacing.
func (t *Throttle) MinDelay() time.Duration {
	return t.minDelay
}

// Wait blocks until the next call is permitted. The first call never waits.
func (t *Throttle) Wait(ctx context.Context) error {
	now := t.clock.Now()
	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("throttle: reservation exceeds burst")
	}
	delay := r.DelayFrom(now)

	// Limiter arithmetic is float64; pad to the exact spacing.
	if !t.last.IsZero() {
		if floor := t.last.Add(t.minDelay).Sub(now); floor > delay {
			delay = floor
		}
	}

	if delay > 0 {
		if err := t.clock.Sleep(ctx, delay); err != nil {
			r.CancelAt(t.clock.Now())
			return err
		}
	}
	t.last = t.clock.Now()
	return nil
}
