// Package worker runs the director's long-lived tick loops. Each tick returns
// a Result; soft failures and panics are logged and the loop continues on the
// next tick, a fatal result stops the loop.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSoft
	outcomeFatal
)

// Result is the outcome of a single tick.
type Result struct {
	outcome outcome
	err     error
}

// OK is the result of a clean tick.
var OK = Result{}

// Soft reports a per-tick failure. The loop logs it and carries on.
func Soft(err error) Result {
	return Result{outcome: outcomeSoft, err: err}
}

// Fatal reports a failure that must stop the loop and the process.
func Fatal(err error) Result {
	return Result{outcome: outcomeFatal, err: err}
}

// Err returns the error carried by a Soft or Fatal result.
func (r Result) Err() error { return r.err }

// IsFatal reports whether the loop must stop.
func (r Result) IsFatal() bool { return r.outcome == outcomeFatal }

func (r Result) String() string {
	switch r.outcome {
	case outcomeSoft:
		return "soft"
	case outcomeFatal:
		return "fatal"
	default:
		return "ok"
	}
}

// TickFunc is one iteration of a worker.
type TickFunc func(ctx context.Context) Result

// Loop calls a TickFunc on a fixed cadence until the context is cancelled.
type Loop struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   *zap.Logger
}

// New creates a loop named name that ticks every interval.
func New(name string, interval time.Duration, tick TickFunc, logger *zap.Logger) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.With(zap.String("worker", name)),
	}
}

// Run ticks once immediately and then on every interval. It returns nil when
// ctx is cancelled and the tick error when a tick is fatal. The stop signal
// is checked between ticks; a tick in progress always runs to completion.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("worker starting", zap.Duration("interval", l.interval))

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			l.logger.Info("worker stopping")
			return nil
		}

		if res := l.Once(ctx); res.IsFatal() {
			return fmt.Errorf("worker %s: %w", l.name, res.Err())
		}

		select {
		case <-ctx.Done():
			l.logger.Info("worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// Once runs a single tick with panic recovery and logs the outcome.
func (l *Loop) Once(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Soft(fmt.Errorf("panic: %v", r))
			l.logger.Error("tick panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	res = l.tick(ctx)
	switch res.outcome {
	case outcomeSoft:
		l.logger.Warn("tick failed", zap.Error(res.err))
	case outcomeFatal:
		l.logger.Error("tick failed fatally", zap.Error(res.err))
	}
	return res
}
