package service

import (
	"context"

	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
)

// Stats is an operational snapshot across the store, queue, and registry.
type Stats struct {
	Content struct {
		Movies int64 `json:"movies"`
		TV     int64 `json:"tv"`
	} `json:"content"`
	Queue map[domain.QueueStatus]int64 `json:"queue"`
	Gaps  struct {
		Unresolved int64 `json:"unresolved"`
		Resolved   int64 `json:"resolved"`
	} `json:"gaps"`
}

// StatsService aggregates counters for the stats endpoint.
type StatsService struct {
	content *repository.ContentRepository
	queue   *repository.QueueRepository
	gaps    *repository.GapRepository
}

// NewStatsService creates a StatsService.
func NewStatsService(content *repository.ContentRepository, queue *repository.QueueRepository, gaps *repository.GapRepository) *StatsService {
	return &StatsService{content: content, queue: queue, gaps: gaps}
}

// Snapshot collects current counts.
func (s *StatsService) Snapshot(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var err error
	if stats.Content.Movies, err = s.content.Count(ctx, domain.ContentTypeMovie); err != nil {
		return nil, err
	}
	if stats.Content.TV, err = s.content.Count(ctx, domain.ContentTypeTV); err != nil {
		return nil, err
	}
	if stats.Queue, err = s.queue.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.Gaps.Unresolved, stats.Gaps.Resolved, err = s.gaps.Counts(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}
