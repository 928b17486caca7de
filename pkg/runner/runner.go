// Package runner implements the periodic-task scheduling primitive that
// drives every subsystem of the simulator: a value type that owns a
// callback and runs it at a fixed nominal period. Subsystems embed a
// *Runner rather than inheriting one.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/l3itisys/ATC-system/pkg/telemetry"
)

// Priority is a scheduling hint. On platforms without real-time
// priorities (effectively all of them under the Go scheduler) it is
// recorded but otherwise ignored; it exists so callers can express a
// consistent ordering across subsystems (Radar > Violation Detector >
// Aircraft update > Display > History).
type Priority int

const (
	PriorityLogging Priority = iota
	PriorityDisplay
	PriorityAircraftUpdate
	PriorityViolationCheck
	PriorityRadar
	PriorityOperator
)

// Execute is the callback a Runner drives at its configured period. A
// non-nil error is caught by the Runner, logged, and never propagated:
// a single failing tick must never abort the schedule.
type Execute func(ctx context.Context) error

// Runner drives an Execute callback at a nominal period, measuring best,
// worst, and last execution time and logging overruns at most once per
// second. It is safe to read Best/Worst/Last from any goroutine while
// running.
type Runner struct {
	name     string
	priority Priority
	execute  Execute
	logger   zerolog.Logger
	metrics  *telemetry.Metrics

	period   atomic.Int64 // nanoseconds
	bestUs   atomic.Int64
	worstUs  atomic.Int64
	lastUs   atomic.Int64
	lastOver atomic.Int64 // unix nanos of last-logged overrun

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New constructs a Runner. It does not start the schedule; call Start.
func New(name string, period time.Duration, priority Priority, execute Execute, logger zerolog.Logger, metrics *telemetry.Metrics) *Runner {
	r := &Runner{
		name:     name,
		priority: priority,
		execute:  execute,
		logger:   logger.With().Str("task", name).Logger(),
		metrics:  metrics,
	}
	r.period.Store(int64(period))
	return r
}

// Start begins the runner's tick loop on a dedicated goroutine. Start is
// idempotent: calling it on an already-running Runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(ctx)
}

// Stop signals termination and blocks until the current execute()
// returns and the loop goroutine exits. On return, no further execute()
// invocation occurs.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	stopCh := r.stopCh
	done := r.done
	r.running = false
	r.mu.Unlock()

	close(stopCh)
	<-done
}

// SetPeriod changes the tick period; it takes effect no later than the
// next sleep boundary.
func (r *Runner) SetPeriod(d time.Duration) {
	r.period.Store(int64(d))
}

// Period returns the current tick period.
func (r *Runner) Period() time.Duration {
	return time.Duration(r.period.Load())
}

// BestUs, WorstUs, and LastUs report execute() duration statistics in
// microseconds, monotonically refined since construction.
func (r *Runner) BestUs() int64  { return r.bestUs.Load() }
func (r *Runner) WorstUs() int64 { return r.worstUs.Load() }
func (r *Runner) LastUs() int64  { return r.lastUs.Load() }

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	var tick int64
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		t0 := time.Now()
		tickCtx, span := telemetry.StartSpan(ctx, "tick."+r.name)
		err := r.safeExecute(tickCtx)
		span.End()
		dur := time.Since(t0)
		tick++

		r.updateStats(dur)
		if r.metrics != nil {
			r.metrics.TickDuration.WithLabelValues(r.name).Observe(dur.Seconds())
		}

		if err != nil {
			r.logger.Error().Err(err).Int64("tick", tick).Msg("execute failed, continuing")
			if r.metrics != nil {
				r.metrics.RunnerFailures.WithLabelValues(r.name).Inc()
			}
		}

		period := time.Duration(r.period.Load())
		deadline := t0.Add(period)
		now := time.Now()
		if now.Sub(t0) >= period {
			r.logOverrunThrottled(now.Sub(t0), period)
			continue
		}

		select {
		case <-time.After(deadline.Sub(now)):
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// safeExecute recovers a panicking execute() the same way the runner
// already swallows a returned error: a single subsystem failure must
// never take down the scheduling thread.
func (r *Runner) safeExecute(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("execute panicked: %v", p)
		}
	}()
	return r.execute(ctx)
}

func (r *Runner) updateStats(d time.Duration) {
	us := d.Microseconds()
	r.lastUs.Store(us)
	for {
		best := r.bestUs.Load()
		if best != 0 && best <= us {
			break
		}
		if r.bestUs.CompareAndSwap(best, us) {
			break
		}
	}
	for {
		worst := r.worstUs.Load()
		if worst >= us {
			break
		}
		if r.worstUs.CompareAndSwap(worst, us) {
			break
		}
	}
}

func (r *Runner) logOverrunThrottled(actual, period time.Duration) {
	now := time.Now().UnixNano()
	last := r.lastOver.Load()
	if now-last < int64(time.Second) {
		return
	}
	if !r.lastOver.CompareAndSwap(last, now) {
		return
	}
	r.logger.Warn().Dur("actual", actual).Dur("period", period).Msg("tick overrun")
	if r.metrics != nil {
		r.metrics.RunnerOverruns.WithLabelValues(r.name).Inc()
	}
}
