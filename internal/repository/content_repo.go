package repository

import (
	"context"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository handles catalog record persistence in the destination
// store.
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Upsert creates or replaces a record keyed by (content_type, source_id).
// The same external id never produces two rows.
func (r *ContentRepository) Upsert(ctx context.Context, content *domain.Content) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "source_id"}},
		UpdateAll: true,
	}).Create(content).Error
}

// GetBySource retrieves a record by content type and external id.
func (r *ContentRepository) GetBySource(ctx context.Context, contentType domain.ContentType, sourceID int64) (*domain.Content, error) {
	var content domain.Content
	err := r.db.WithContext(ctx).
		First(&content, "content_type = ? AND source_id = ?", contentType, sourceID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &content, nil
}

// ExistsBySource checks whether a record exists for the external id.
func (r *ContentRepository) ExistsBySource(ctx context.Context, contentType domain.ContentType, sourceID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Content{}).
		Where("content_type = ? AND source_id = ?", contentType, sourceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts stored records; an empty content type counts everything.
func (r *ContentRepository) Count(ctx context.Context, contentType domain.ContentType) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Content{})
	if contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List retrieves records with pagination ordered by popularity descending.
func (r *ContentRepository) List(ctx context.Context, contentType domain.ContentType, limit, offset int) ([]domain.Content, error) {
	var records []domain.Content
	query := r.db.WithContext(ctx)
	if contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}
	if err := query.
		Order("popularity DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// AllSourceIDs returns every stored external id for a content type. Used
// by gap detection to deduplicate harvested ids against the store.
func (r *ContentRepository) AllSourceIDs(ctx context.Context, contentType domain.ContentType) (map[int64]struct{}, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&domain.Content{}).
		Where("content_type = ?", contentType).
		Pluck("source_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// MaxSourceID returns the highest stored external id for a content type,
// or 0 when the store is empty. Baseline for sequential gap detection.
func (r *ContentRepository) MaxSourceID(ctx context.Context, contentType domain.ContentType) (int64, error) {
	var max *int64
	if err := r.db.WithContext(ctx).Model(&domain.Content{}).
		Where("content_type = ?", contentType).
		Select("MAX(source_id)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ListIncomplete returns records missing completeness fields (overview or
// poster). Feeds metadata gap detection.
func (r *ContentRepository) ListIncomplete(ctx context.Context, limit int) ([]domain.Content, error) {
	var records []domain.Content
	if err := r.db.WithContext(ctx).
		Where("overview = '' OR poster_path = ''").
		Order("popularity DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
