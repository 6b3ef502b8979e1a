// Package discovery drives the periodic discovery broadcast.
//
// The scheduler fires once after a short initial delay and then every
// interval until stopped. The broadcast itself is supplied by the caller
// and normally runs on the resolver's reactor.
package discovery

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Defaults applied when the config leaves a delay at zero.
const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 300 * time.Second
)

// FireFunc performs one discovery round. Returning an error wrapping
// context.Canceled stops the scheduler; any other error is logged and the
// next round is still scheduled.
type FireFunc func(ctx context.Context) error

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds scheduler settings.
type Config struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Fire         FireFunc
}

// Scheduler is a single recurring discovery timer.
type Scheduler struct {
	initialDelay time.Duration
	interval     time.Duration
	fire         FireFunc
	logger       Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a scheduler. Call Start to begin firing.
func New(cfg Config) *Scheduler {
	initial := cfg.InitialDelay
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		initialDelay: initial,
		interval:     interval,
		fire:         cfg.Fire,
		logger:       noopLogger{},
		done:         make(chan struct{}),
	}
}

// SetLogger sets the logger for the scheduler. Call before Start.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Start runs the timer until ctx is cancelled, Stop is called, or a round
// reports cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the timer and waits for an in-flight round to return.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-timer.C:
			if err := s.fire(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					s.logger.Debug("discovery cancelled")
					return
				}
				s.logger.Warn("discovery round failed", "error", err)
			}
			timer.Reset(s.interval)
		}
	}
}
