// Package storage persists execution records: one row per processed request
// with its final stage and outcome.
package storage

import (
	"context"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// ExecutionRepository handles execution record storage operations.
type ExecutionRepository interface {
	// Save persists one execution record.
	Save(ctx context.Context, ex *domain.Execution) error

	// ListRecent returns the newest records, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Execution, error)

	// Summary aggregates per-brick totals for records created after since.
	Summary(ctx context.Context, since time.Time) ([]domain.ExecutionSummary, error)

	// DeleteOlderThan removes records created before cutoff and reports how
	// many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
