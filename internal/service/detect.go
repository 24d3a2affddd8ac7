package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

// Gap detection strategies.
const (
	StrategyDiscover   = "discover"
	StrategySequential = "sequential"
	StrategyChanges    = "changes"
	StrategyMetadata   = "metadata"
)

// Baseline scores for gaps detected without popularity data.
const (
	temporalScore   = 40.0
	sequentialScore = 10.0
)

// DetectorConfig tunes gap detection sweeps.
type DetectorConfig struct {
	MaxPages         int      // discover/changes pages per sweep
	Countries        []string // discover sweep countries
	SortOrders       []string // discover sweep sort orders
	SequentialWindow int      // id-space scan width above the stored maximum
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.MaxPages <= 0 {
		c.MaxPages = 20
	}
	if len(c.Countries) == 0 {
		c.Countries = []string{"KR", "CN", "TW", "HK", "TH", "TR", "JP", "IN"}
	}
	if len(c.SortOrders) == 0 {
		c.SortOrders = []string{"popularity.desc", "vote_count.desc"}
	}
	if c.SequentialWindow <= 0 {
		c.SequentialWindow = 1000
	}
	return c
}

// DetectOptions selects what one detection run covers.
type DetectOptions struct {
	Strategies   []string
	ContentTypes []domain.ContentType
	DaysBack     int // changes feed lookback
}

// DetectStats summarizes one detection run.
type DetectStats struct {
	Scanned    int `json:"scanned"`
	Registered int `json:"registered"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// Detector finds catalog records the store is missing or holds
// incompletely and registers them as gap entries for prioritized
// backfill. Detection only ever writes to the registry; filling is a
// separate job.
type Detector struct {
	src     source.Client
	content *repository.ContentRepository
	gaps    *repository.GapRepository
	log     *logger.Logger
	cfg     DetectorConfig
}

// NewDetector creates a Detector.
func NewDetector(src source.Client, content *repository.ContentRepository, gaps *repository.GapRepository, log *logger.Logger, cfg DetectorConfig) *Detector {
	return &Detector{
		src:     src,
		content: content,
		gaps:    gaps,
		log:     log.WithField(logger.FieldComponent, "detector"),
		cfg:     cfg.withDefaults(),
	}
}

// Run executes the selected strategies. Individual page failures are
// counted and skipped so one bad page never aborts a whole sweep.
func (d *Detector) Run(ctx context.Context, opts DetectOptions) (*DetectStats, error) {
	if len(opts.Strategies) == 0 {
		opts.Strategies = []string{StrategyDiscover, StrategyChanges}
	}
	if len(opts.ContentTypes) == 0 {
		opts.ContentTypes = []domain.ContentType{domain.ContentTypeMovie, domain.ContentTypeTV}
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 1
	}
	for _, s := range opts.Strategies {
		switch s {
		case StrategyDiscover, StrategySequential, StrategyChanges, StrategyMetadata:
		default:
			return nil, &domain.ValidationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", s)}
		}
	}
	for _, ct := range opts.ContentTypes {
		if !ct.Valid() {
			return nil, &domain.ValidationError{Field: "content_type", Reason: "must be movie or tv"}
		}
	}

	stats := &DetectStats{}
	started := time.Now()
	for _, strategy := range opts.Strategies {
		// Metadata gaps come from the store, not the provider, and cover
		// both content types in one pass.
		if strategy == StrategyMetadata {
			if err := d.sweepMetadata(ctx, stats); err != nil {
				return stats, err
			}
			continue
		}
		for _, ct := range opts.ContentTypes {
			var err error
			switch strategy {
			case StrategyDiscover:
				err = d.sweepDiscover(ctx, ct, stats)
			case StrategySequential:
				err = d.sweepSequential(ctx, ct, stats)
			case StrategyChanges:
				err = d.sweepChanges(ctx, ct, opts.DaysBack, stats)
			}
			if err != nil {
				return stats, err
			}
		}
	}
	d.log.WithFields(logger.Fields{
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
		"scanned":              stats.Scanned,
		"registered":           stats.Registered,
		"duplicates":           stats.Duplicates,
		"errors":               stats.Errors,
	}).Info("gap detection finished")
	return stats, nil
}

// sweepDiscover pages the provider's discover API per country and sort
// order, registering every id the store does not have.
func (d *Detector) sweepDiscover(ctx context.Context, ct domain.ContentType, stats *DetectStats) error {
	known, err := d.content.AllSourceIDs(ctx, ct)
	if err != nil {
		return fmt.Errorf("load known ids: %w", err)
	}
	log := d.log.WithField(logger.FieldContentType, ct)

	seen := make(map[int64]struct{})
	for _, country := range d.cfg.Countries {
		for _, sortBy := range d.cfg.SortOrders {
			filter := source.DiscoverFilter{OriginCountry: country, SortBy: sortBy}
			for page := 1; page <= d.cfg.MaxPages; page++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				pg, err := d.src.DiscoverPage(ctx, ct, filter, page)
				if err != nil {
					log.WithError(err).WithFields(logger.Fields{
						"country": country, "page": page,
					}).Warn("discover sweep page failed")
					stats.Errors++
					break
				}
				for _, rec := range pg.Results {
					stats.Scanned++
					if _, ok := known[rec.SourceID]; ok {
						continue
					}
					if _, ok := seen[rec.SourceID]; ok {
						continue
					}
					seen[rec.SourceID] = struct{}{}
					countries := rec.OriginCountries
					if len(countries) == 0 {
						countries = []string{country}
					}
					d.register(ctx, stats, &domain.GapEntry{
						ID:            uuid.New().String(),
						SourceID:      rec.SourceID,
						ContentType:   ct,
						GapType:       domain.GapTypePopularity,
						PriorityScore: PriorityScore(countries, rec.Popularity),
						Reason:        fmt.Sprintf("discover %s %s", country, sortBy),
					})
				}
				if page >= pg.TotalPages {
					break
				}
			}
		}
	}
	return nil
}

// sweepChanges walks the provider's changes feed over the lookback window
// and registers changed ids the store does not have.
func (d *Detector) sweepChanges(ctx context.Context, ct domain.ContentType, daysBack int, stats *DetectStats) error {
	known, err := d.content.AllSourceIDs(ctx, ct)
	if err != nil {
		return fmt.Errorf("load known ids: %w", err)
	}
	end := time.Now()
	start := end.AddDate(0, 0, -daysBack)
	startStr, endStr := start.Format("2006-01-02"), end.Format("2006-01-02")
	log := d.log.WithField(logger.FieldContentType, ct)

	for page := 1; page <= d.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pg, err := d.src.Changes(ctx, ct, startStr, endStr, page)
		if err != nil {
			log.WithError(err).WithField("page", page).Warn("changes sweep page failed")
			stats.Errors++
			break
		}
		for _, id := range pg.IDs {
			stats.Scanned++
			if _, ok := known[id]; ok {
				continue
			}
			d.register(ctx, stats, &domain.GapEntry{
				ID:            uuid.New().String(),
				SourceID:      id,
				ContentType:   ct,
				GapType:       domain.GapTypeTemporal,
				PriorityScore: temporalScore,
				Reason:        fmt.Sprintf("changed between %s and %s", startStr, endStr),
			})
		}
		if page >= pg.TotalPages {
			break
		}
	}
	return nil
}

// sweepSequential registers the id window between the highest stored id
// and the provider's latest id. Low score: most of these ids are obscure
// or unassigned, and the fill job confirms existence item by item.
func (d *Detector) sweepSequential(ctx context.Context, ct domain.ContentType, stats *DetectStats) error {
	maxKnown, err := d.content.MaxSourceID(ctx, ct)
	if err != nil {
		return fmt.Errorf("max source id: %w", err)
	}
	latest, err := d.src.LatestID(ctx, ct)
	if err != nil {
		return fmt.Errorf("latest id: %w", err)
	}
	upper := maxKnown + int64(d.cfg.SequentialWindow)
	if upper > latest {
		upper = latest
	}
	for id := maxKnown + 1; id <= upper; id++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Scanned++
		d.register(ctx, stats, &domain.GapEntry{
			ID:            uuid.New().String(),
			SourceID:      id,
			ContentType:   ct,
			GapType:       domain.GapTypeSequential,
			PriorityScore: sequentialScore,
			Reason:        fmt.Sprintf("id space scan %d..%d", maxKnown+1, upper),
		})
	}
	return nil
}

// sweepMetadata registers stored records whose completeness fields are
// missing, so a gap-fill run re-fetches their details.
func (d *Detector) sweepMetadata(ctx context.Context, stats *DetectStats) error {
	records, err := d.content.ListIncomplete(ctx, d.cfg.MaxPages*20)
	if err != nil {
		return fmt.Errorf("list incomplete: %w", err)
	}
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Scanned++
		missing := make([]string, 0, 2)
		if rec.Overview == "" {
			missing = append(missing, "overview")
		}
		if rec.PosterPath == "" {
			missing = append(missing, "poster")
		}
		d.register(ctx, stats, &domain.GapEntry{
			ID:            uuid.New().String(),
			SourceID:      rec.SourceID,
			ContentType:   rec.ContentType,
			GapType:       domain.GapTypeMetadata,
			PriorityScore: PriorityScore(rec.OriginCountries, rec.Popularity) / 2,
			Reason:        "missing " + strings.Join(missing, ", "),
		})
	}
	return nil
}

// register inserts one gap entry. A conflict with an existing
// registration is expected and counted, never treated as a failure.
func (d *Detector) register(ctx context.Context, stats *DetectStats, gap *domain.GapEntry) {
	err := d.gaps.Register(ctx, gap)
	switch {
	case err == nil:
		stats.Registered++
	case errors.Is(err, domain.ErrConflict):
		stats.Duplicates++
	default:
		d.log.WithError(err).WithFields(logger.Fields{
			logger.FieldSourceID:    gap.SourceID,
			logger.FieldContentType: gap.ContentType,
		}).Warn("gap registration failed")
		stats.Errors++
	}
}
