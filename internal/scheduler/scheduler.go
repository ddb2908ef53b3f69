// Package scheduler triggers pipeline cycles on an interval and on demand,
// never letting two cycles overlap.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// ErrCycleInProgress is returned by manual triggers while a cycle runs.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Runner runs one cycle of a pipeline.
type Runner interface {
	RunCycle(ctx context.Context) models.CycleReport
}

// Scheduler runs every Runner in order, once per trigger.
type Scheduler struct {
	runners    []Runner
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// ctx outlives manual triggers so a request ending does not cancel
	// the cycle it started. Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	newTicker func(time.Duration) (<-chan time.Time, func())
}

// New creates a Scheduler. interval must be positive for Run.
func New(runners []Runner, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runners:    runners,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
		sem:        semaphore.NewWeighted(1),
		ctx:        ctx,
		cancel:     cancel,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run blocks, triggering cycles every interval until ctx is done. A tick
// that arrives while a cycle is in flight is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStart {
		s.tick(ctx, "start")
	}

	ticks, stop := s.newTicker(s.interval)
	defer stop()

	s.logger.Info("scheduler started", "interval", s.interval, "pipelines", len(s.runners))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticks:
			s.tick(ctx, "interval")
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, trigger string) {
	if !s.sem.TryAcquire(1) {
		s.logger.Warn("cycle skipped", "trigger", trigger, "reason", ErrCycleInProgress)
		return
	}
	defer s.sem.Release(1)
	s.runAll(ctx)
}

// RunOnce runs one cycle of every pipeline and returns their reports. It
// returns ErrCycleInProgress without running anything when busy.
func (s *Scheduler) RunOnce(ctx context.Context) ([]models.CycleReport, error) {
	if !s.sem.TryAcquire(1) {
		return nil, ErrCycleInProgress
	}
	defer s.sem.Release(1)
	return s.runAll(ctx), nil
}

// Trigger starts one cycle of every pipeline in the background. It
// returns ErrCycleInProgress when busy.
func (s *Scheduler) Trigger() error {
	if !s.sem.TryAcquire(1) {
		return ErrCycleInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		s.runAll(s.ctx)
	}()
	return nil
}

// Busy reports whether a cycle is in flight.
func (s *Scheduler) Busy() bool {
	if s.sem.TryAcquire(1) {
		s.sem.Release(1)
		return false
	}
	return true
}

// Close cancels background cycles and waits for them to return.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runAll(ctx context.Context) []models.CycleReport {
	reports := make([]models.CycleReport, 0, len(s.runners))
	for _, r := range s.runners {
		if ctx.Err() != nil {
			s.logger.Info("cycle interrupted", "error", ctx.Err())
			break
		}
		reports = append(reports, r.RunCycle(ctx))
	}
	return reports
}
