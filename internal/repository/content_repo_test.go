package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
)

func newContent(sourceID int64, title string) *domain.Content {
	return &domain.Content{
		ID:              uuid.New().String(),
		SourceID:        sourceID,
		ContentType:     domain.ContentTypeMovie,
		Title:           title,
		Overview:        "an overview",
		PosterPath:      "/poster.jpg",
		Genres:          domain.StringArray{},
		OriginCountries: domain.StringArray{"KR"},
	}
}

func TestContentUpsertReplacesOnSourceKey(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, newContent(603, "The Matrix")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.Upsert(ctx, newContent(603, "The Matrix (1999)")); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := repo.Count(ctx, domain.ContentTypeMovie)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (same external id never doubles)", count)
	}

	got, err := repo.GetBySource(ctx, domain.ContentTypeMovie, 603)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "The Matrix (1999)" {
		t.Errorf("title = %q, want replaced value", got.Title)
	}

	if _, err := repo.GetBySource(ctx, domain.ContentTypeMovie, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContentSourceIDHelpers(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []int64{10, 99, 55} {
		if err := repo.Upsert(ctx, newContent(id, "x")); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	ids, err := repo.AllSourceIDs(ctx, domain.ContentTypeMovie)
	if err != nil {
		t.Fatalf("all source ids: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("len = %d, want 3", len(ids))
	}
	if _, ok := ids[99]; !ok {
		t.Error("id 99 missing from set")
	}

	max, err := repo.MaxSourceID(ctx, domain.ContentTypeMovie)
	if err != nil {
		t.Fatalf("max: %v", err)
	}
	if max != 99 {
		t.Errorf("max = %d, want 99", max)
	}

	// Empty content type has no baseline.
	max, err = repo.MaxSourceID(ctx, domain.ContentTypeTV)
	if err != nil {
		t.Fatalf("max tv: %v", err)
	}
	if max != 0 {
		t.Errorf("max for empty type = %d, want 0", max)
	}
}

func TestContentListIncomplete(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))
	ctx := context.Background()

	complete := newContent(1, "complete")
	noOverview := newContent(2, "no overview")
	noOverview.Overview = ""
	noPoster := newContent(3, "no poster")
	noPoster.PosterPath = ""
	for _, c := range []*domain.Content{complete, noOverview, noPoster} {
		if err := repo.Upsert(ctx, c); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	records, err := repo.ListIncomplete(ctx, 10)
	if err != nil {
		t.Fatalf("list incomplete: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.SourceID == 1 {
			t.Error("complete record must not be listed")
		}
	}
}
