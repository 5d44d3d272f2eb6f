package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// ExecutionRepo implements storage.ExecutionRepository in process memory.
// Used when no database is configured; the pruner still bounds growth.
type ExecutionRepo struct {
	mu    sync.RWMutex
	execs []domain.Execution
}

func NewExecutionRepo() *ExecutionRepo {
	return &ExecutionRepo{}
}

func (r *ExecutionRepo) Save(ctx context.Context, ex *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, *ex)
	return nil
}

func (r *ExecutionRepo) ListRecent(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Execution, len(r.execs))
	copy(out, r.execs)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ExecutionRepo) Summary(ctx context.Context, since time.Time) ([]domain.ExecutionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byBrick := make(map[string]*domain.ExecutionSummary)
	for _, ex := range r.execs {
		if ex.CreatedAt.Before(since) {
			continue
		}
		s, ok := byBrick[ex.Brick]
		if !ok {
			s = &domain.ExecutionSummary{Brick: ex.Brick}
			byBrick[ex.Brick] = s
		}
		s.Total++
		if !ex.OK {
			s.Failed++
		}
		if ex.CreatedAt.After(s.LastSeen) {
			s.LastSeen = ex.CreatedAt
		}
	}

	summaries := make([]domain.ExecutionSummary, 0, len(byBrick))
	for _, s := range byBrick {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Brick < summaries[j].Brick })
	return summaries, nil
}

func (r *ExecutionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.execs[:0]
	var removed int64
	for _, ex := range r.execs {
		if ex.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ex)
	}
	r.execs = kept
	return removed, nil
}
