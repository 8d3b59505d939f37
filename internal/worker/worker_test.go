package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoopContinuesAfterSoftFailureAndPanic(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := func(context.Context) Result {
		n := calls.Add(1)
		switch n {
		case 1:
			return Soft(errors.New("roster not ready"))
		case 2:
			panic("boom")
		case 3:
			cancel()
		}
		return OK
	}

	loop := New("test", time.Millisecond, tick, zap.NewNop())
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("expected nil error on cancellation, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 ticks, got %d", got)
	}
}

func TestLoopStopsOnFatal(t *testing.T) {
	boom := errors.New("adapter gone")
	tick := func(context.Context) Result { return Fatal(boom) }

	loop := New("fatal", time.Millisecond, tick, zap.NewNop())
	err := loop.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fatal error, got %v", err)
	}
}

func TestLoopDoesNotTickAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	loop := New("cancelled", time.Millisecond, func(context.Context) Result {
		calls.Add(1)
		return OK
	}, zap.NewNop())

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no ticks, got %d", calls.Load())
	}
}

func TestOnceRecoversPanic(t *testing.T) {
	loop := New("panic", time.Second, func(context.Context) Result {
		var m map[string]int
		m["x"] = 1
		return OK
	}, zap.NewNop())

	res := loop.Once(context.Background())
	if res.IsFatal() || res.Err() == nil {
		t.Fatalf("expected soft result with error, got %s (%v)", res, res.Err())
	}
}
