package scheduler

import (
	"context"
	"sync"
	"time"

	"PositiveNews/internal/ports"
)

// IntervalScheduler drives a job on a fixed period using time.Ticker.
// The period can be changed while running without restarting the
// process.
type IntervalScheduler struct {
	mu         sync.Mutex
	interval   time.Duration
	reschedule chan time.Duration
	stop       chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a stopped scheduler with the given
// initial period.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &IntervalScheduler{interval: interval}
}

// Start launches the ticking goroutine. Unlike a startup catch-up run,
// the first tick fires one full interval after Start.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	s.reschedule = make(chan time.Duration, 1)

	go func(stop chan struct{}, reschedule chan time.Duration, interval time.Duration) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case d := <-reschedule:
				ticker.Reset(d)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}(s.stop, s.reschedule, s.interval)

	return nil
}

// Reschedule changes the tick period of a running scheduler; on a
// stopped one it only records the period for the next Start.
func (s *IntervalScheduler) Reschedule(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	if s.reschedule == nil {
		return
	}

	// Drop a pending value so the newest period wins.
	select {
	case <-s.reschedule:
	default:
	}
	s.reschedule <- interval
}

// Stop halts the ticking goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	s.reschedule = nil
	return nil
}
