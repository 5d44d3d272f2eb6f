package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage"
)

// Pruner deletes execution records past the retention period.
type Pruner struct {
	retention time.Duration
	interval  time.Duration
	repo      storage.ExecutionRepository
	log       *slog.Logger
}

// NewPruner creates a pruner. A zero interval derives one from the
// retention period.
func NewPruner(retention, interval time.Duration, repo storage.ExecutionRepository, log *slog.Logger) *Pruner {
	return &Pruner{
		retention: retention,
		interval:  interval,
		repo:      repo,
		log:       log.With("component", "pruner"),
	}
}

// Start runs the pruner loop until ctx is canceled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	interval := p.interval
	if interval <= 0 {
		// Check at 10% of the retention period, clamped to [1m, 1h].
		interval = min(p.retention/10, time.Hour)
		interval = max(interval, time.Minute)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	removed, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune executions", "error", err)
		return
	}
	if removed > 0 {
		p.log.Info("pruned executions", "removed", removed, "cutoff", cutoff)
	}
}
