package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghai1803/threadscout/internal/models"
)

type countingRunner struct {
	name  string
	runs  atomic.Int32
	block chan struct{}
}

func (r *countingRunner) RunCycle(ctx context.Context) models.CycleReport {
	r.runs.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return models.CycleReport{Pipeline: r.name}
}

func newTestScheduler(runners ...Runner) *Scheduler {
	return New(runners, time.Hour, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunOnce_RunsEveryPipelineInOrder(t *testing.T) {
	a := &countingRunner{name: "a"}
	b := &countingRunner{name: "b"}
	s := newTestScheduler(a, b)

	reports, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].Pipeline)
	assert.Equal(t, "b", reports[1].Pipeline)
	assert.False(t, s.Busy())
}

func TestTrigger_RejectsWhileBusy(t *testing.T) {
	r := &countingRunner{name: "a", block: make(chan struct{})}
	s := newTestScheduler(r)
	defer s.Close()

	require.NoError(t, s.Trigger())
	assert.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Busy())

	assert.ErrorIs(t, s.Trigger(), ErrCycleInProgress)
	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(r.block)
	assert.Eventually(t, func() bool { return !s.Busy() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), r.runs.Load())
}

func TestRun_SkipsTickWhileBusy(t *testing.T) {
	r := &countingRunner{name: "a"}
	s := newTestScheduler(r)

	ticks := make(chan time.Time)
	s.newTicker = func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} }

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Run(ctx))
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	assert.Eventually(t, func() bool { return r.runs.Load() == 2 }, time.Second, time.Millisecond)

	// Hold the guard as a manual cycle would. The second send only
	// completes once the first skipped tick has been handled.
	require.True(t, s.sem.TryAcquire(1))
	ticks <- time.Now()
	ticks <- time.Now()

	cancel()
	wg.Wait()
	s.sem.Release(1)
	assert.Equal(t, int32(2), r.runs.Load())
}

func TestRun_RunOnStart(t *testing.T) {
	r := &countingRunner{name: "a"}
	s := New([]Runner{r}, time.Hour, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.newTicker = func(time.Duration) (<-chan time.Time, func()) { return nil, func() {} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	assert.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestRunOnce_StopsBetweenPipelinesOnCancel(t *testing.T) {
	a := &countingRunner{name: "a"}
	b := &countingRunner{name: "b"}
	s := newTestScheduler(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Equal(t, int32(0), a.runs.Load())
}

func TestClose_CancelsBackgroundCycle(t *testing.T) {
	r := &countingRunner{name: "a", block: make(chan struct{})}
	s := newTestScheduler(r)

	require.NoError(t, s.Trigger())
	assert.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, time.Millisecond)

	s.Close()
	assert.False(t, s.Busy())
}
