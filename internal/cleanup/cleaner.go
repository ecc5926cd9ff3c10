package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/solution-builder/internal/metrics"
	"github.com/terra-clan/solution-builder/internal/session"
)

// Cleaner handles periodic removal of abandoned wizard sessions
type Cleaner struct {
	manager  session.Manager
	interval time.Duration
	metrics  *metrics.Metrics
}

// NewCleaner creates a new cleanup worker
func NewCleaner(manager session.Manager, interval time.Duration, m *metrics.Metrics) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		manager:  manager,
		interval: interval,
		metrics:  m,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup finds and ends idle sessions and returns how many were removed
func (c *Cleaner) Cleanup(ctx context.Context) int {
	slog.Debug("running cleanup cycle")

	expired, err := c.manager.GetExpired(ctx)
	if err != nil {
		slog.Error("failed to get expired sessions", "error", err)
		return 0
	}

	if len(expired) == 0 {
		slog.Debug("no expired sessions found")
		return 0
	}

	slog.Info("found expired sessions", "count", len(expired))

	removed := 0
	for _, s := range expired {
		if err := c.manager.End(ctx, s.ID); err != nil {
			slog.Error("failed to end expired session",
				"error", err,
				"id", s.ID,
			)
			continue
		}

		slog.Info("expired session ended",
			"id", s.ID,
			"client_id", s.ClientID,
			"last_active", s.LastActive(),
		)
		c.metrics.SessionExpired()
		removed++
	}

	return removed
}
