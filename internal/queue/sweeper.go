package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultSweepInterval = time.Hour
	DefaultDeadLetterTTL = 24 * time.Hour
	sweepTimeout         = 2 * time.Minute
)

// DeadLetterSweeper drops dead-lettered timeline jobs once they outlive retention.
type DeadLetterSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewDeadLetterSweeper builds a sweeper. Non-positive durations fall back to the defaults.
// A nil purger turns every sweep into a no-op.
func NewDeadLetterSweeper(purger DLQPurger, interval, retention time.Duration, log *zap.Logger, m *metrics.Metrics) *DeadLetterSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultDeadLetterTTL
	}
	return &DeadLetterSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger.Component(log, "dead_letter_sweeper"),
		metrics:   m,
	}
}

// Run sweeps every interval until ctx is done. Failed sweeps are logged and retried on the next tick.
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("dead_letter_sweep_failed", zap.Error(err))
			}
		}
	}
}

// Sweep purges once and reports how many jobs were dropped.
func (s *DeadLetterSweeper) Sweep(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	s.metrics.ObservePurged(n)
	if err != nil {
		return n, fmt.Errorf("sweep dead letters: %w", err)
	}
	if n > 0 {
		s.logger.Info("dead_letters_purged", zap.Int("count", n), zap.Duration("retention", s.retention))
	}
	return n, nil
}
