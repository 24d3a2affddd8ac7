package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
)

func newGap(sourceID int64, score float64) *domain.GapEntry {
	return &domain.GapEntry{
		ID:            uuid.New().String(),
		SourceID:      sourceID,
		ContentType:   domain.ContentTypeMovie,
		GapType:       domain.GapTypePopularity,
		PriorityScore: score,
	}
}

func TestGapRegisterConflict(t *testing.T) {
	repo := NewGapRepository(setupTestDB(t))
	ctx := context.Background()

	first := newGap(603, 80)
	if err := repo.Register(ctx, first); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := repo.Register(ctx, newGap(603, 99))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate register: expected ErrConflict, got %v", err)
	}

	// The existing entry stays authoritative.
	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PriorityScore != 80 {
		t.Errorf("score = %v, want original 80", got.PriorityScore)
	}

	// Same id under the other content type is a distinct gap.
	other := newGap(603, 50)
	other.ContentType = domain.ContentTypeTV
	if err := repo.Register(ctx, other); err != nil {
		t.Fatalf("register other content type: %v", err)
	}
}

func TestGapMarkResolvedIdempotent(t *testing.T) {
	repo := NewGapRepository(setupTestDB(t))
	ctx := context.Background()

	gap := newGap(550, 10)
	if err := repo.Register(ctx, gap); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := repo.MarkResolved(ctx, gap.ID); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	got, _ := repo.GetByID(ctx, gap.ID)
	if !got.IsResolved || got.ResolvedAt == nil {
		t.Fatal("entry should be resolved with a timestamp")
	}
	firstResolvedAt := *got.ResolvedAt

	// Re-resolving is a no-op, not an error.
	if err := repo.MarkResolved(ctx, gap.ID); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	got, _ = repo.GetByID(ctx, gap.ID)
	if !got.ResolvedAt.Equal(firstResolvedAt) {
		t.Error("resolution timestamp must not change on repeat resolve")
	}

	if err := repo.MarkResolved(ctx, uuid.New().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("resolving missing entry: expected ErrNotFound, got %v", err)
	}
}

func TestGapRecordAttempt(t *testing.T) {
	repo := NewGapRepository(setupTestDB(t))
	ctx := context.Background()

	gap := newGap(777, 5)
	if err := repo.Register(ctx, gap); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := repo.RecordAttempt(ctx, gap.ID, "fetch movie 777: not found"); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := repo.RecordAttempt(ctx, gap.ID, "fetch movie 777: rate limited"); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	got, _ := repo.GetByID(ctx, gap.ID)
	if got.FillAttempts != 2 {
		t.Errorf("fill attempts = %d, want 2", got.FillAttempts)
	}
	if got.LastAttemptError != "fetch movie 777: rate limited" {
		t.Errorf("last error = %q", got.LastAttemptError)
	}
	if got.IsResolved {
		t.Error("recording an attempt must never resolve the entry")
	}

	if err := repo.RecordAttempt(ctx, uuid.New().String(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGapListUnresolvedOrdering(t *testing.T) {
	repo := NewGapRepository(setupTestDB(t))
	ctx := context.Background()

	low := newGap(1, 10)
	high := newGap(2, 90)
	tried := newGap(3, 90)
	for _, g := range []*domain.GapEntry{low, high, tried} {
		if err := repo.Register(ctx, g); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := repo.RecordAttempt(ctx, tried.ID, "transient"); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	resolved := newGap(4, 100)
	if err := repo.Register(ctx, resolved); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := repo.MarkResolved(ctx, resolved.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	gaps, err := repo.ListUnresolved(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(gaps) != 3 {
		t.Fatalf("len = %d, want 3 (resolved excluded)", len(gaps))
	}
	// Score descending, then fewest fill attempts.
	wantOrder := []int64{2, 3, 1}
	for i, want := range wantOrder {
		if gaps[i].SourceID != want {
			t.Errorf("position %d: source id = %d, want %d", i, gaps[i].SourceID, want)
		}
	}

	limited, err := repo.ListUnresolved(ctx, nil, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}

	subset, err := repo.ListUnresolved(ctx, []string{low.ID}, 0)
	if err != nil {
		t.Fatalf("list subset: %v", err)
	}
	if len(subset) != 1 || subset[0].ID != low.ID {
		t.Errorf("id-restricted list returned wrong entries: %v", subset)
	}
}

func TestGapCounts(t *testing.T) {
	repo := NewGapRepository(setupTestDB(t))
	ctx := context.Background()

	a := newGap(1, 1)
	b := newGap(2, 2)
	for _, g := range []*domain.GapEntry{a, b} {
		if err := repo.Register(ctx, g); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := repo.MarkResolved(ctx, a.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	unresolved, resolved, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if unresolved != 1 || resolved != 1 {
		t.Errorf("counts = %d/%d, want 1/1", unresolved, resolved)
	}
}
