package reservation

import (
	"context"
	"time"

	"github.com/lawlink/booking-platform/pkg/logging"
)

// Sweeper periodically reclaims expired holds. A missed or failed sweep does
// not corrupt anything, it only delays reclaiming abandoned holds, so errors
// are logged and retried on the next tick.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *logging.Logger
}

// NewSweeper creates a sweeper with the given tick interval.
func NewSweeper(manager *Manager, interval time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &Sweeper{manager: manager, interval: interval, logger: logger}
}

// Start runs the sweep loop. Blocks until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting reservation sweeper", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on startup.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper shutting down")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.manager.CleanupExpired(ctx); err != nil {
		s.logger.Error("reservation sweep failed", "error", err)
	}
}
