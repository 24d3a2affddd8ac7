package service

import (
	"context"
	"sync"

	"github.com/krushna-ai/gdvg-ingest/internal/repository"
)

// progressTracker serializes progress updates for one job run. Every item
// outcome produces exactly one counter update, taken under the lock, so a
// concurrent progress reader never observes a lost or doubled count.
type progressTracker struct {
	mu    sync.Mutex
	jobs  *repository.JobRepository
	jobID string
}

func newProgressTracker(jobs *repository.JobRepository, jobID string) *progressTracker {
	return &progressTracker{jobs: jobs, jobID: jobID}
}

// Success counts one upserted item.
func (t *progressTracker) Success(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs.IncrementProgress(ctx, t.jobID, 0, 0)
}

// Skip counts one duplicate-skipped item.
func (t *progressTracker) Skip(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs.IncrementProgress(ctx, t.jobID, 0, 1)
}

// Failure counts one permanently failed item and appends its error log
// entry in the same critical section.
func (t *progressTracker) Failure(ctx context.Context, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.jobs.IncrementProgress(ctx, t.jobID, 1, 0); err != nil {
		return err
	}
	return t.jobs.AppendError(ctx, t.jobID, msg)
}
