// Package scheduler runs deferred job executions. Timers provide
// at-least-once triggering; executors are expected to be idempotent and
// to drop duplicate runs themselves.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fieldline/internal/logging"
)

// Executor runs one job when its timer fires.
type Executor interface {
	Execute(ctx context.Context, jobID string) error
}

// Scheduler defers job executions.
type Scheduler interface {
	Schedule(jobID string, delay time.Duration)
	Cancel(jobID string) bool
	Close()
}

// TimerScheduler is an in-process Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	executor Executor
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// New constructs a timer scheduler that hands fired jobs to executor.
func New(executor Executor, logger *slog.Logger) *TimerScheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TimerScheduler{
		executor: executor,
		logger:   logger.With(logging.String(logging.FieldComponent, "scheduler")),
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule arms a timer for jobID. Scheduling an already-scheduled job
// replaces its timer. Delays at or below zero fire immediately.
func (s *TimerScheduler) Schedule(jobID string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if existing, ok := s.timers[jobID]; ok {
		if existing.Stop() {
			s.wg.Done()
		}
	}

	s.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		// A replacement may already be armed for this job if Schedule ran
		// while this callback was firing; only remove our own timer.
		if s.timers[jobID] == timer {
			delete(s.timers, jobID)
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		if err := s.executor.Execute(context.Background(), jobID); err != nil {
			s.logger.Error("scheduled execution failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	})
	s.timers[jobID] = timer
}

// Cancel disarms a pending timer. It reports whether a timer was armed;
// a job whose timer already fired returns false; cancelling the job
// itself is the dispatcher's business.
func (s *TimerScheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[jobID]
	if !ok {
		return false
	}
	delete(s.timers, jobID)
	if timer.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// Close disarms every pending timer and waits for in-flight executions.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for jobID, timer := range s.timers {
		delete(s.timers, jobID)
		if timer.Stop() {
			s.wg.Done()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}
