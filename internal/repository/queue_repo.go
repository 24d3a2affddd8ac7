package repository

import (
	"context"
	"time"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueueRepository handles persisted queue items. Persisting the queue is
// what makes resume re-drain exactly the remaining pending rows.
type QueueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// EnqueueBatch inserts queue items, silently skipping ids already queued
// for the same job. Returns the number of rows actually inserted.
func (r *QueueRepository) EnqueueBatch(ctx context.Context, items []domain.QueueItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "source_id"}, {Name: "content_type"}},
		DoNothing: true,
	}).Create(&items)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// NextBatch returns pending items in drain order: priority descending,
// then fewest attempts, then enqueue position. Retried items therefore
// fall behind currently-pending items of the same priority.
func (r *QueueRepository) NextBatch(ctx context.Context, jobID string, limit int) ([]domain.QueueItem, error) {
	var items []domain.QueueItem
	if err := r.db.WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, domain.QueueStatusPending).
		Order("priority DESC").
		Order("attempts ASC").
		Order("position ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *QueueRepository) setStatus(ctx context.Context, id string, status domain.QueueStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.QueueItem{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkProcessing claims an item for a worker.
func (r *QueueRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.QueueStatusProcessing)
}

// MarkCompleted records a successful (or duplicate-skipped) item.
func (r *QueueRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.QueueStatusCompleted)
}

// MarkFailed records a permanent per-item failure.
func (r *QueueRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&domain.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.QueueStatusFailed,
			"last_error": errMsg,
		}).Error
}

// Requeue returns an item to pending with a raised attempt count and a
// not-before timestamp for the retry backoff.
func (r *QueueRepository) Requeue(ctx context.Context, id string, errMsg string, nextAttempt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          domain.QueueStatusPending,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      errMsg,
			"next_attempt_at": &nextAttempt,
		}).Error
}

// PendingCount counts pending items for a job.
func (r *QueueRepository) PendingCount(ctx context.Context, jobID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.QueueItem{}).
		Where("job_id = ? AND status = ?", jobID, domain.QueueStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalCount counts all items enqueued for a job.
func (r *QueueRepository) TotalCount(ctx context.Context, jobID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.QueueItem{}).
		Where("job_id = ?", jobID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteRemaining discards a cancelled job's unprocessed items.
func (r *QueueRepository) DeleteRemaining(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).
		Where("job_id = ? AND status IN ?", jobID,
			[]domain.QueueStatus{domain.QueueStatusPending, domain.QueueStatusProcessing}).
		Delete(&domain.QueueItem{}).Error
}

// ResetProcessing returns claimed-but-unfinished items to pending.
// Called on resume so items interrupted by a pause are re-attempted.
func (r *QueueRepository) ResetProcessing(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.QueueItem{}).
		Where("job_id = ? AND status = ?", jobID, domain.QueueStatusProcessing).
		Update("status", domain.QueueStatusPending).Error
}

// CountByStatus returns queue item counts per status across all jobs.
func (r *QueueRepository) CountByStatus(ctx context.Context) (map[domain.QueueStatus]int64, error) {
	type row struct {
		Status domain.QueueStatus
		N      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.QueueItem{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.QueueStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
