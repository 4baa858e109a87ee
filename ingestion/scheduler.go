package ingestion

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tessara/groundline/core"
)

const (
	// DefaultBaseDelay is the backoff delay ceiling for a first retry.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the backoff delay ceiling.
	DefaultMaxDelay = 2 * time.Minute
)

// Scheduler owns retry timing for the pipeline. When a job attempt
// fails with retry budget remaining, the scheduler re-submits it after
// a full-jitter exponential backoff: a uniformly random delay in
// [0, min(maxDelay, baseDelay*2^(attempt-1))). The controller and
// pipeline never sleep; all waiting happens here.
type Scheduler struct {
	pipeline  *Pipeline
	baseDelay time.Duration
	maxDelay  time.Duration
	jitter    func(max time.Duration) time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[core.ID]*time.Timer
	closed bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// WithBaseDelay sets the backoff base delay. Default is one second.
func WithBaseDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if d > 0 {
			s.baseDelay = d
		}
		return nil
	}
}

// WithMaxDelay caps the backoff delay. Default is two minutes.
func WithMaxDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if d > 0 {
			s.maxDelay = d
		}
		return nil
	}
}

// WithJitter replaces the delay draw, mainly for tests. The function
// receives the backoff ceiling and returns the actual delay.
func WithJitter(jitter func(max time.Duration) time.Duration) SchedulerOption {
	return func(s *Scheduler) error {
		if jitter != nil {
			s.jitter = jitter
		}
		return nil
	}
}

// WithSchedulerLogger sets a custom logger.
// Default is slog.Default().
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a retry scheduler around the given pipeline.
func NewScheduler(pipeline *Pipeline, opts ...SchedulerOption) (*Scheduler, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}

	s := &Scheduler{
		pipeline:  pipeline,
		baseDelay: DefaultBaseDelay,
		maxDelay:  DefaultMaxDelay,
		jitter:    fullJitter,
		logger:    slog.Default(),
		timers:    make(map[core.ID]*time.Timer),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "ingestion.scheduler")

	return s, nil
}

// Enqueue submits a job attempt to the pipeline's worker pool. Failed
// attempts with retry budget remaining are rescheduled automatically;
// terminal outcomes end the cycle.
func (s *Scheduler) Enqueue(jobID core.ID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.mu.Unlock()

	return s.pipeline.Submit(jobID, func(outcome *RunOutcome, err error) {
		if err != nil || outcome == nil {
			return
		}
		if outcome.Completed || !outcome.CanRetry {
			return
		}
		s.reschedule(jobID, outcome.AttemptCount)
	})
}

// reschedule arms a timer that re-enqueues the job after the backoff
// delay for the attempt that just failed.
func (s *Scheduler) reschedule(jobID core.ID, attempt int) {
	delay := s.backoff(attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if existing, ok := s.timers[jobID]; ok {
		existing.Stop()
	}

	s.logger.Info("job retry scheduled", "job", jobID, "attempt", attempt, "delay", delay)
	s.timers[jobID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, jobID)
		s.mu.Unlock()

		if err := s.Enqueue(jobID); err != nil {
			s.logger.Error("error re-enqueueing job", "job", jobID, "err", err)
		}
	})
}

// backoff returns the jittered delay before the next attempt, given the
// attempt number that just failed (1-based).
func (s *Scheduler) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	ceiling := s.baseDelay
	for i := 1; i < attempt && ceiling < s.maxDelay; i++ {
		ceiling *= 2
	}
	if ceiling > s.maxDelay {
		ceiling = s.maxDelay
	}

	return s.jitter(ceiling)
}

// fullJitter draws a uniformly random delay in [0, max).
func fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// Release stops all pending retry timers. Jobs already running on the
// pipeline's pool finish their current attempt but are not rescheduled.
func (s *Scheduler) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
