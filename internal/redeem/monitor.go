package redeem

import (
	"context"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/worker"
)

// Monitor logs the number of waiting redemptions whenever it changes.
type Monitor struct {
	queue  *Queue
	logger *zap.Logger
	last   int
}

func NewMonitor(queue *Queue, logger *zap.Logger) *Monitor {
	return &Monitor{queue: queue, logger: logger, last: -1}
}

// Tick implements worker.TickFunc.
func (m *Monitor) Tick(_ context.Context) worker.Result {
	if n := m.queue.Len(); n != m.last {
		m.logger.Info("waiting redemptions", zap.Int("count", n))
		m.last = n
	}
	return worker.OK
}
