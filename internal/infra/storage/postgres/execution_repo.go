package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// ExecutionRepo implements storage.ExecutionRepository using PostgreSQL.
type ExecutionRepo struct {
	db *DB
}

// NewExecutionRepo creates a new PostgreSQL execution repository.
func NewExecutionRepo(db *DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

type executionRow struct {
	RequestID  string    `db:"request_id"`
	Brick      string    `db:"brick"`
	Stage      string    `db:"stage"`
	OK         bool      `db:"ok"`
	Code       string    `db:"code"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Save persists one execution record.
func (r *ExecutionRepo) Save(ctx context.Context, ex *domain.Execution) error {
	query := `
		INSERT INTO executions (request_id, brick, stage, ok, code, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		ex.RequestID,
		ex.Brick,
		string(ex.Stage),
		ex.OK,
		ex.Code,
		ex.DurationMS,
		ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

// ListRecent returns the newest records, newest first.
func (r *ExecutionRepo) ListRecent(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT request_id, brick, stage, ok, code, duration_ms, created_at
		FROM executions
		ORDER BY created_at DESC
		LIMIT $1
	`

	var rows []executionRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	execs := make([]domain.Execution, 0, len(rows))
	for _, row := range rows {
		execs = append(execs, domain.Execution{
			RequestID:  row.RequestID,
			Brick:      row.Brick,
			Stage:      domain.Stage(row.Stage),
			OK:         row.OK,
			Code:       row.Code,
			DurationMS: row.DurationMS,
			CreatedAt:  row.CreatedAt,
		})
	}
	return execs, nil
}

// Summary aggregates per-brick totals for records created after since.
func (r *ExecutionRepo) Summary(ctx context.Context, since time.Time) ([]domain.ExecutionSummary, error) {
	query := `
		SELECT brick,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE NOT ok) AS failed,
		       MAX(created_at) AS last_seen
		FROM executions
		WHERE created_at >= $1
		GROUP BY brick
		ORDER BY brick
	`

	var rows []struct {
		Brick    string    `db:"brick"`
		Total    int64     `db:"total"`
		Failed   int64     `db:"failed"`
		LastSeen time.Time `db:"last_seen"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to summarize executions: %w", err)
	}

	summaries := make([]domain.ExecutionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domain.ExecutionSummary{
			Brick:    row.Brick,
			Total:    row.Total,
			Failed:   row.Failed,
			LastSeen: row.LastSeen,
		})
	}
	return summaries, nil
}

// DeleteOlderThan removes records created before cutoff.
func (r *ExecutionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM executions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned executions: %w", err)
	}
	return n, nil
}
