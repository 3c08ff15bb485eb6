package passcode

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/simple-mfa/pkg/clock"
)

// Sweeper periodically deletes expired passcodes. Verification never depends
// on it; it only keeps storage small.
type Sweeper struct {
	repo     Repository
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper running every interval (one minute when <= 0).
func NewSweeper(repo Repository, c clock.Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:     repo,
		clock:    c,
		interval: interval,
		logger:   logger,
	}
}

// SweepOnce deletes passcodes that are expired now.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to delete expired passcodes", "err", err)
		return removed, err
	}
	if removed > 0 {
		s.logger.Info("Deleted expired passcodes", "count", removed)
	}
	return removed, nil
}

// Run sweeps until ctx is cancelled. Sweep errors are logged and retried on
// the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Passcode sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Passcode sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}
