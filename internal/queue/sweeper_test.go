package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type mockPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

func (m *mockPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestNewDeadLetterSweeper_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		interval      time.Duration
		retention     time.Duration
		wantInterval  time.Duration
		wantRetention time.Duration
	}{
		{name: "zero values", wantInterval: DefaultSweepInterval, wantRetention: DefaultDeadLetterTTL},
		{name: "negative values", interval: -time.Second, retention: -time.Second, wantInterval: DefaultSweepInterval, wantRetention: DefaultDeadLetterTTL},
		{name: "explicit values", interval: 5 * time.Minute, retention: 6 * time.Hour, wantInterval: 5 * time.Minute, wantRetention: 6 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewDeadLetterSweeper(nil, tt.interval, tt.retention, zap.NewNop(), nil)
			if s.interval != tt.wantInterval {
				t.Errorf("interval = %v, want %v", s.interval, tt.wantInterval)
			}
			if s.retention != tt.wantRetention {
				t.Errorf("retention = %v, want %v", s.retention, tt.wantRetention)
			}
		})
	}
}

func TestDeadLetterSweeper_Sweep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     DLQPurger
		wantCount  int
		wantErr    bool
		wantPurged float64
	}{
		{name: "nil purger is a no-op"},
		{
			name: "purged jobs are counted",
			purger: &mockPurger{purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
				if retention != 12*time.Hour {
					return 0, errors.New("unexpected retention")
				}
				if _, ok := ctx.Deadline(); !ok {
					return 0, errors.New("sweep has no deadline")
				}
				return 3, nil
			}},
			wantCount:  3,
			wantPurged: 3,
		},
		{
			name:    "purger error",
			purger:  &mockPurger{purgeFunc: func(context.Context, time.Duration) (int, error) { return 0, errors.New("channel closed") }},
			wantErr: true,
		},
		{
			name: "partial purge before error is still counted",
			purger: &mockPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
				return 2, errors.New("connection reset")
			}},
			wantCount:  2,
			wantErr:    true,
			wantPurged: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := metrics.New()
			s := NewDeadLetterSweeper(tt.purger, time.Minute, 12*time.Hour, zap.NewNop(), m)

			n, err := s.Sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sweep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantCount {
				t.Errorf("Sweep() = %d, want %d", n, tt.wantCount)
			}
			if got := testutil.ToFloat64(m.DeadLettersPurged); got != tt.wantPurged {
				t.Errorf("purged counter = %v, want %v", got, tt.wantPurged)
			}
		})
	}
}

func TestDeadLetterSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := NewDeadLetterSweeper(&mockPurger{}, 24*time.Hour, time.Hour, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
