package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct{ calls atomic.Int64 }

func (c *countingSweeper) SweepExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestStartExpirySweepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &countingSweeper{}
	done := StartExpirySweep(ctx, s, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.calls.Load() < 2 {
		t.Fatalf("sweeps = %d, want >= 2", s.calls.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
