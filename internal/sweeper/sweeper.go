// Package sweeper runs the periodic visibility-timeout reconciliation as a
// background task: each tick it asks the engine to reclaim expired leases.
package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"hq/internal/engine"
	"hq/internal/logging"
	"hq/internal/observability"
)

// DefaultTick is the sweep cadence used when none is configured. Correctness
// does not depend on the tick, only timeliness of redelivery does.
const DefaultTick = time.Second

// Sweeper owns the tick cadence and the engine handle.
type Sweeper struct {
	engine  *engine.Engine
	tick    time.Duration
	logger  logging.Logger
	metrics *observability.MetricsCollector
}

// New constructs a sweeper. A non-positive tick falls back to DefaultTick.
func New(e *engine.Engine, tick time.Duration, logger logging.Logger, metrics *observability.MetricsCollector) *Sweeper {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Sweeper{
		engine:  e,
		tick:    tick,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// Run sweeps once per tick until ctx is canceled. Transient store errors are
// logged and the loop continues on the next tick; fatal errors (a closed
// pool) are returned so a supervisor can decide to restart.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		started := time.Now()
		result, err := s.engine.SweepExpiredLeases(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isFatal(err) {
				return err
			}
			s.logger.Warn("sweep failed, retrying next tick: %v", err)
			continue
		}
		s.metrics.RecordSweep(ctx, result.Unlocked, result.Retired, time.Since(started))
	}
}

// isFatal reports whether the sweep error cannot heal on its own. Busy and
// locked conditions clear up; a torn-down pool does not.
func isFatal(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// Supervise runs the sweeper and restarts it with linear backoff whenever it
// exits with a fatal error. Returns once ctx is canceled.
func Supervise(ctx context.Context, s *Sweeper) {
	const (
		initialBackoff = time.Second
		maxBackoff     = 30 * time.Second
	)

	backoff := initialBackoff
	for {
		err := s.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			return
		}

		s.logger.Error("sweeper exited: %v (restarting in %s)", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff += initialBackoff
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
