package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketflow/internal/ports"
)

// Interval runs the cycle job forever: the pause is measured from the end of
// the previous run, never wall-clock aligned, so cycles can never overlap.
// A failed cycle is retried with capped exponential backoff instead of the
// regular interval; a failed cycle must never terminate the process.
type Interval struct {
	interval   time.Duration
	backoffMin time.Duration
	backoffMax time.Duration
	logger     *slog.Logger
	stop       chan struct{}
}

var _ ports.Scheduler = (*Interval)(nil)

// NewInterval builds the cycle driver.
func NewInterval(interval, backoffMin, backoffMax time.Duration, logger *slog.Logger) *Interval {
	if backoffMin <= 0 {
		backoffMin = 5 * time.Second
	}
	if backoffMax < backoffMin {
		backoffMax = backoffMin
	}
	return &Interval{
		interval:   interval,
		backoffMin: backoffMin,
		backoffMax: backoffMax,
		logger:     logger,
	}
}

// Start launches the loop; the first run happens immediately.
func (s *Interval) Start(ctx context.Context, job func(context.Context) error) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go s.run(ctx, job)
	return nil
}

func (s *Interval) run(ctx context.Context, job func(context.Context) error) {
	backoff := s.backoffMin
	for {
		delay := s.interval
		if err := runSafely(ctx, job); err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Error("cycle failed", "error", err, "retry_in", backoff)
			}
			delay = backoff
			backoff *= 2
			if backoff > s.backoffMax {
				backoff = s.backoffMax
			}
		} else {
			backoff = s.backoffMin
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

// runSafely converts a panicking cycle into an error at the cycle boundary.
func runSafely(ctx context.Context, job func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return job(ctx)
}

// Stop halts the loop goroutine.
func (s *Interval) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
