package repository

import (
	"context"
	"errors"
	"time"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles import job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	var job domain.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// List retrieves jobs ordered by priority then creation time. An empty
// status matches all jobs.
func (r *JobRepository) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ImportJob, error) {
	var jobs []domain.ImportJob
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Transition applies one state machine event to a job. The target status
// comes from the transition table, so an edge the table does not carry is
// rejected before any write. The guard on the current status makes
// concurrent control requests race-safe: the loser observes zero affected
// rows and gets ErrInvalidTransition.
func (r *JobRepository) Transition(ctx context.Context, id string, from domain.JobStatus, ev domain.JobEvent) error {
	to, err := from.Apply(ev)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": to}
	now := time.Now()
	if ev == domain.JobEventStart {
		updates["started_at"] = &now
	}
	if to.Terminal() {
		updates["completed_at"] = &now
	}

	res := r.db.WithContext(ctx).
		Model(&domain.ImportJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// SetTotal records the target-set size computed at run start.
func (r *JobRepository) SetTotal(ctx context.Context, id string, total int) error {
	return r.db.WithContext(ctx).
		Model(&domain.ImportJob{}).
		Where("id = ?", id).
		Update("total", total).Error
}

// IncrementProgress adds one processed item and the given outcome deltas
// in a single transactional update, so concurrent workers never lose
// counts. Callers serialize through the job's progress tracker.
func (r *JobRepository) IncrementProgress(ctx context.Context, id string, failedDelta, skippedDelta int) error {
	return r.db.WithContext(ctx).
		Model(&domain.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed": gorm.Expr("processed + 1"),
			"failed":    gorm.Expr("failed + ?", failedDelta),
			"skipped":   gorm.Expr("skipped + ?", skippedDelta),
		}).Error
}

// AppendError appends one entry to the job's error log. The log is
// append-only; entries are never rewritten.
func (r *JobRepository) AppendError(ctx context.Context, id string, msg string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.ImportJob
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		job.ErrorLog = append(job.ErrorLog, msg)
		return tx.Model(&domain.ImportJob{}).
			Where("id = ?", id).
			Update("error_log", job.ErrorLog).Error
	})
}
