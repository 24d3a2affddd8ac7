package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"gorm.io/gorm"
)

// GapRepository handles gap registry persistence. The unique index on
// (source_id, content_type) is the safety net against double registration
// from parallel detectors.
type GapRepository struct {
	db *gorm.DB
}

// NewGapRepository creates a new GapRepository.
func NewGapRepository(db *gorm.DB) *GapRepository {
	return &GapRepository{db: db}
}

// Register inserts a new gap entry. Returns domain.ErrConflict when
// (source_id, content_type) is already registered; the existing entry
// stays authoritative.
func (r *GapRepository) Register(ctx context.Context, gap *domain.GapEntry) error {
	err := r.db.WithContext(ctx).Create(gap).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") {
		return domain.ErrConflict
	}
	return err
}

// GetByID retrieves a gap entry by its ID.
func (r *GapRepository) GetByID(ctx context.Context, id string) (*domain.GapEntry, error) {
	var gap domain.GapEntry
	if err := r.db.WithContext(ctx).First(&gap, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &gap, nil
}

// GapFilter narrows List results. Nil/zero fields match everything.
type GapFilter struct {
	Resolved    *bool
	GapType     domain.GapType
	ContentType domain.ContentType
}

// List retrieves gap entries ordered by priority score descending.
func (r *GapRepository) List(ctx context.Context, filter GapFilter, limit, offset int) ([]domain.GapEntry, error) {
	var gaps []domain.GapEntry
	query := r.db.WithContext(ctx)
	if filter.Resolved != nil {
		query = query.Where("is_resolved = ?", *filter.Resolved)
	}
	if filter.GapType != "" {
		query = query.Where("gap_type = ?", filter.GapType)
	}
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", filter.ContentType)
	}
	if err := query.
		Order("priority_score DESC").
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&gaps).Error; err != nil {
		return nil, err
	}
	return gaps, nil
}

// ListUnresolved retrieves unresolved entries for the fill loop, ordered
// by priority score descending with ties broken by fewest fill attempts
// then insertion order. A non-empty ids slice restricts the selection;
// limit <= 0 means no cap.
func (r *GapRepository) ListUnresolved(ctx context.Context, ids []string, limit int) ([]domain.GapEntry, error) {
	var gaps []domain.GapEntry
	query := r.db.WithContext(ctx).Where("is_resolved = ?", false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	query = query.
		Order("priority_score DESC").
		Order("fill_attempts ASC").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&gaps).Error; err != nil {
		return nil, err
	}
	return gaps, nil
}

// MarkResolved sets is_resolved and the resolution timestamp. Re-marking
// an already resolved entry is a no-op.
func (r *GapRepository) MarkResolved(ctx context.Context, id string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&domain.GapEntry{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either already resolved (idempotent no-op) or missing.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// RecordAttempt increments the fill attempt counter and stores the error
// message. It never auto-resolves.
func (r *GapRepository) RecordAttempt(ctx context.Context, id string, errMsg string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.GapEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fill_attempts":      gorm.Expr("fill_attempts + 1"),
			"last_attempt_error": errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Counts returns unresolved and resolved entry counts.
func (r *GapRepository) Counts(ctx context.Context) (unresolved, resolved int64, err error) {
	if err = r.db.WithContext(ctx).Model(&domain.GapEntry{}).
		Where("is_resolved = ?", false).Count(&unresolved).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(&domain.GapEntry{}).
		Where("is_resolved = ?", true).Count(&resolved).Error; err != nil {
		return 0, 0, err
	}
	return unresolved, resolved, nil
}
