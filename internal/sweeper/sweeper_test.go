package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingEngine struct {
	ticks atomic.Int32
}

func (c *countingEngine) SweepTick(ctx context.Context, now time.Time) {
	c.ticks.Add(1)
}

// TestRun_TicksUntilCancelled verifies ticks fire on the interval and
// stop after cancellation.
func TestRun_TicksUntilCancelled(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}

	ticked := engine.ticks.Load()
	assert.GreaterOrEqual(t, ticked, int32(2))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticked, engine.ticks.Load(), "no ticks after cancellation")
}

// TestRun_NoImmediateTick verifies the first tick waits a full
// interval.
func TestRun_NoImmediateTick(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Equal(t, int32(0), engine.ticks.Load())
}
