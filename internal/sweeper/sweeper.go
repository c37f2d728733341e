// Package sweeper runs the reconciliation timer: a fixed-interval tick
// that restricts members who aged past the time threshold without
// sending further messages.
package sweeper

import (
	"context"
	"time"

	"tg-profileguard/internal/crash"
	"tg-profileguard/internal/logger"
)

// Engine is the per-tick reconciliation pass.
type Engine interface {
	SweepTick(ctx context.Context, now time.Time)
}

// Sweeper schedules reconciliation ticks until its context is
// cancelled.
type Sweeper struct {
	engine   Engine
	interval time.Duration
}

// New creates a sweeper with the given tick interval.
func New(engine Engine, interval time.Duration) *Sweeper {
	return &Sweeper{engine: engine, interval: interval}
}

// Run blocks, ticking until ctx is cancelled. Cancellation stops
// scheduling new ticks; an in-flight tick finishes its already-fetched
// batch before Run returns, so shutdown delay is bounded by one batch.
func (s *Sweeper) Run(ctx context.Context) {
	defer crash.RecoverWithStack("sweeper")

	logger.Infof("Reconciliation sweep started with interval %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Reconciliation sweep stopped")
			return
		case now := <-ticker.C:
			// Detached from ctx so a shutdown arriving mid-tick does
			// not abort transport calls for the records already fetched.
			s.engine.SweepTick(context.WithoutCancel(ctx), now)
		}
	}
}

// Start launches Run on its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	crash.SafeGoroutine("sweeper", func() {
		s.Run(ctx)
	})
}
