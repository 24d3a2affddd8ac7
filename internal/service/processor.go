package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

// maxRetryBackoff caps the exponential retry delay for a queue item.
const maxRetryBackoff = 30 * time.Second

// ProcessorConfig tunes the queue processor.
type ProcessorConfig struct {
	Workers        int           // concurrent item workers
	MaxAttempts    int           // total tries per item, first attempt included
	RetryBaseDelay time.Duration // first retry backoff; doubles per failure
	ItemDelay      time.Duration // pacing between item dispatches
	BatchSize      int           // queue rows claimed per drain iteration
	MaxPages       int           // discover pages per sweep; 0 means provider-bounded
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// Processor drains a job's persisted queue: each item is fetched from the
// external source and upserted into the content store. Per-item failures
// are retried with backoff then recorded against the job; only failures
// of the queue or job store themselves abort the run.
type Processor struct {
	src     source.Client
	jobs    *repository.JobRepository
	queue   *repository.QueueRepository
	content *repository.ContentRepository
	gaps    *repository.GapRepository
	mirror  *ImageMirror // nil disables artwork mirroring
	log     *logger.Logger
	cfg     ProcessorConfig
}

// NewProcessor creates a Processor. mirror may be nil.
func NewProcessor(
	src source.Client,
	jobs *repository.JobRepository,
	queue *repository.QueueRepository,
	content *repository.ContentRepository,
	gaps *repository.GapRepository,
	mirror *ImageMirror,
	log *logger.Logger,
	cfg ProcessorConfig,
) *Processor {
	return &Processor{
		src:     src,
		jobs:    jobs,
		queue:   queue,
		content: content,
		gaps:    gaps,
		mirror:  mirror,
		log:     log.WithField(logger.FieldComponent, "processor"),
		cfg:     cfg.withDefaults(),
	}
}

// Run executes one job until its queue drains or a control request stops
// it. The target set is computed and enqueued on the first run only; a
// resumed run picks up the persisted remainder, so every pending item is
// attempted exactly where the pause left off.
func (p *Processor) Run(ctx context.Context, job *domain.ImportJob, ctrl *Control) (Outcome, error) {
	log := p.log.WithField(logger.FieldJobID, job.ID)

	total, err := p.queue.TotalCount(ctx, job.ID)
	if err != nil {
		return OutcomePaused, &domain.FatalError{Err: fmt.Errorf("queue count: %w", err)}
	}
	if total == 0 {
		n, outcome, err := p.buildTargetSet(ctx, job, ctrl)
		if err != nil {
			return OutcomePaused, err
		}
		if err := p.jobs.SetTotal(ctx, job.ID, n); err != nil {
			if ctx.Err() != nil {
				return OutcomePaused, nil
			}
			return OutcomePaused, &domain.FatalError{Err: fmt.Errorf("set total: %w", err)}
		}
		if outcome != OutcomeCompleted {
			// Interrupted mid-build; whatever was enqueued stays for resume.
			return outcome, nil
		}
		if n == 0 {
			log.Info("empty target set, nothing to import")
			return OutcomeCompleted, nil
		}
		log.WithField(logger.FieldCount, n).Info("target set enqueued")
	} else {
		// Resume: items claimed when the previous run stopped go back to
		// pending so they are re-attempted.
		if err := p.queue.ResetProcessing(ctx, job.ID); err != nil {
			return OutcomePaused, &domain.FatalError{Err: fmt.Errorf("reset claimed items: %w", err)}
		}
		log.Info("resuming from persisted queue")
	}

	return p.drain(ctx, job, ctrl)
}

// buildTargetSet enqueues the job's work items. Gap-fill jobs draw from
// the gap registry; regular jobs sweep the provider's discover API.
func (p *Processor) buildTargetSet(ctx context.Context, job *domain.ImportJob, ctrl *Control) (int, Outcome, error) {
	if job.Config.GapFill {
		n, err := p.enqueueGaps(ctx, job)
		return n, OutcomeCompleted, err
	}
	return p.enqueueDiscovered(ctx, job, ctrl)
}

func (p *Processor) enqueueGaps(ctx context.Context, job *domain.ImportJob) (int, error) {
	gaps, err := p.gaps.ListUnresolved(ctx, job.Config.GapIDs, job.Config.GapLimit)
	if err != nil {
		return 0, &domain.FatalError{Err: fmt.Errorf("list gaps: %w", err)}
	}
	// An explicit id set is a manual selection; a registry draw is gap-fill.
	origin := domain.QueueOriginGapFill
	if len(job.Config.GapIDs) > 0 {
		origin = domain.QueueOriginManual
	}
	items := make([]domain.QueueItem, 0, len(gaps))
	for i, g := range gaps {
		items = append(items, domain.QueueItem{
			ID:          uuid.New().String(),
			JobID:       job.ID,
			SourceID:    g.SourceID,
			ContentType: g.ContentType,
			Priority:    int(g.PriorityScore),
			Origin:      origin,
			Status:      domain.QueueStatusPending,
			Position:    i,
			GapID:       g.ID,
		})
	}
	n, err := p.queue.EnqueueBatch(ctx, items)
	if err != nil {
		return 0, &domain.FatalError{Err: fmt.Errorf("enqueue gaps: %w", err)}
	}
	return n, nil
}

func (p *Processor) enqueueDiscovered(ctx context.Context, job *domain.ImportJob, ctrl *Control) (int, Outcome, error) {
	cfg := job.Config
	filter := source.DiscoverFilter{
		OriginCountry:  strings.Join(cfg.OriginCountries, "|"),
		ReleasedAfter:  cfg.ReleasedAfter,
		ReleasedBefore: cfg.ReleasedBefore,
		Genres:         cfg.Genres,
	}

	enqueued := 0
	pos := 0
	for _, ct := range cfg.ContentType.Expand() {
		page := 1
		for {
			switch {
			case ctrl.CancelRequested():
				return enqueued, OutcomeCancelled, nil
			case ctrl.PauseRequested() || ctx.Err() != nil:
				return enqueued, OutcomePaused, nil
			}

			pg, err := p.discoverPage(ctx, ct, filter, page)
			if err != nil {
				// A cancelled run context is a shutdown, not a source
				// failure; what was enqueued so far stays for resume.
				if ctx.Err() != nil {
					return enqueued, OutcomePaused, nil
				}
				return enqueued, OutcomePaused, &domain.FatalError{
					Err: fmt.Errorf("discover %s page %d: %w", ct, page, err),
				}
			}

			items := make([]domain.QueueItem, 0, len(pg.Results))
			for _, rec := range pg.Results {
				if cfg.MinPopularity > 0 && rec.Popularity < cfg.MinPopularity {
					continue
				}
				items = append(items, domain.QueueItem{
					ID:          uuid.New().String(),
					JobID:       job.ID,
					SourceID:    rec.SourceID,
					ContentType: ct,
					Priority:    int(rec.Popularity),
					Origin:      domain.QueueOriginJob,
					Status:      domain.QueueStatusPending,
					Position:    pos,
				})
				pos++
				if cfg.MaxItems > 0 && enqueued+len(items) >= cfg.MaxItems {
					break
				}
			}
			n, err := p.queue.EnqueueBatch(ctx, items)
			if err != nil {
				return enqueued, OutcomePaused, &domain.FatalError{Err: fmt.Errorf("enqueue page: %w", err)}
			}
			enqueued += n

			if cfg.MaxItems > 0 && enqueued >= cfg.MaxItems {
				break
			}
			if page >= pg.TotalPages || (p.cfg.MaxPages > 0 && page >= p.cfg.MaxPages) {
				break
			}
			page++
		}
		if cfg.MaxItems > 0 && enqueued >= cfg.MaxItems {
			break
		}
	}
	return enqueued, OutcomeCompleted, nil
}

// discoverPage retries transient sweep failures before giving up. A sweep
// failure after retries is fatal for the run: without the target set the
// job cannot make progress.
func (p *Processor) discoverPage(ctx context.Context, ct domain.ContentType, filter source.DiscoverFilter, page int) (*source.Page, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(p.cfg.RetryBaseDelay, attempt-1)); err != nil {
				return nil, err
			}
		}
		pg, err := p.src.DiscoverPage(ctx, ct, filter, page)
		if err == nil {
			return pg, nil
		}
		lastErr = err
		if !source.IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

// drain claims and processes queue batches until the queue is empty or a
// control request stops the run. Batches are processed synchronously, so
// retries requeued by one batch surface in a later NextBatch and an empty
// batch means the job is genuinely done.
func (p *Processor) drain(ctx context.Context, job *domain.ImportJob, ctrl *Control) (Outcome, error) {
	tracker := newProgressTracker(p.jobs, job.ID)

	for {
		switch {
		case ctrl.CancelRequested():
			return OutcomeCancelled, nil
		case ctrl.PauseRequested() || ctx.Err() != nil:
			return OutcomePaused, nil
		}

		batch, err := p.queue.NextBatch(ctx, job.ID, p.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomePaused, nil
			}
			return OutcomePaused, &domain.FatalError{Err: fmt.Errorf("next batch: %w", err)}
		}
		if len(batch) == 0 {
			return OutcomeCompleted, nil
		}

		if err := p.processBatch(ctx, job, ctrl, tracker, batch); err != nil {
			return OutcomePaused, err
		}
	}
}

// processBatch dispatches one claimed batch across the worker pool and
// waits for every dispatched item to finish. Control requests stop
// further dispatch but never abandon an in-flight item.
func (p *Processor) processBatch(ctx context.Context, job *domain.ImportJob, ctrl *Control, tracker *progressTracker, batch []domain.QueueItem) error {
	sem := make(chan struct{}, p.cfg.Workers)
	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
	}
	hasFatal := func() bool {
		fatalMu.Lock()
		defer fatalMu.Unlock()
		return fatalErr != nil
	}

	for _, item := range batch {
		if ctrl.CancelRequested() || ctrl.PauseRequested() || ctx.Err() != nil || hasFatal() {
			break
		}

		// Honor the retry backoff of a requeued item.
		if item.NextAttemptAt != nil {
			if wait := time.Until(*item.NextAttemptAt); wait > 0 {
				if err := sleepCtx(ctx, wait); err != nil {
					break
				}
			}
		}

		if err := p.queue.MarkProcessing(ctx, item.ID); err != nil {
			setFatal(&domain.FatalError{Err: fmt.Errorf("claim item: %w", err)})
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(item domain.QueueItem) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.processItem(ctx, job, item, ctrl, tracker); err != nil {
				setFatal(err)
			}
		}(item)

		if p.cfg.ItemDelay > 0 {
			_ = sleepCtx(ctx, p.cfg.ItemDelay)
		}
	}
	wg.Wait()

	fatalMu.Lock()
	defer fatalMu.Unlock()
	return fatalErr
}

// processItem runs the fetch-and-upsert pipeline for one queue item.
// Returned errors are fatal for the whole run; per-item failures are
// absorbed into the job's counters and error log.
func (p *Processor) processItem(ctx context.Context, job *domain.ImportJob, item domain.QueueItem, ctrl *Control, tracker *progressTracker) error {
	log := p.log.WithFields(logger.Fields{
		logger.FieldJobID:       job.ID,
		logger.FieldSourceID:    item.SourceID,
		logger.FieldContentType: item.ContentType,
	})

	var existing *domain.Content
	if job.Config.CheckDuplicates {
		found, err := p.content.GetBySource(ctx, item.ContentType, item.SourceID)
		switch {
		case err == nil:
			existing = found
		case !errors.Is(err, domain.ErrNotFound):
			return &domain.FatalError{Err: fmt.Errorf("duplicate check: %w", err)}
		}
		if existing != nil && !job.Config.UpdateExisting {
			log.Debug("duplicate, skipping")
			if err := tracker.Skip(ctx); err != nil {
				return &domain.FatalError{Err: fmt.Errorf("record skip: %w", err)}
			}
			if err := p.queue.MarkCompleted(ctx, item.ID); err != nil {
				return &domain.FatalError{Err: fmt.Errorf("complete item: %w", err)}
			}
			p.resolveGap(ctx, item)
			return nil
		}
	}

	rec, err := p.src.Detail(ctx, item.ContentType, item.SourceID)
	if err != nil {
		return p.handleItemFailure(ctx, item, tracker,
			fmt.Errorf("fetch %s %d: %w", item.ContentType, item.SourceID, err))
	}

	// A cancel that arrived mid-fetch lets the fetch finish but drops its
	// result; the item's queue row is discarded with the remainder.
	if ctrl.CancelRequested() {
		log.Debug("cancelled mid-fetch, result dropped")
		return nil
	}

	content := recordToContent(rec)
	if existing != nil {
		content.ID = existing.ID
		content.CreatedAt = existing.CreatedAt
	}
	if p.mirror != nil && job.Config.MirrorImages {
		content.PosterKey, content.BackdropKey = p.mirror.Mirror(ctx, rec)
	}
	if err := p.content.Upsert(ctx, content); err != nil {
		return p.handleItemFailure(ctx, item, tracker,
			fmt.Errorf("upsert %s %d: %w", item.ContentType, item.SourceID, err))
	}

	if err := tracker.Success(ctx); err != nil {
		return &domain.FatalError{Err: fmt.Errorf("record success: %w", err)}
	}
	if err := p.queue.MarkCompleted(ctx, item.ID); err != nil {
		return &domain.FatalError{Err: fmt.Errorf("complete item: %w", err)}
	}
	p.resolveGap(ctx, item)
	log.Debug("item imported")
	return nil
}

// handleItemFailure classifies a per-item failure. Retryable failures
// under the attempt cap requeue with exponential backoff; everything else
// is final for the item and lands in the job's counters and error log.
func (p *Processor) handleItemFailure(ctx context.Context, item domain.QueueItem, tracker *progressTracker, itemErr error) error {
	log := p.log.WithFields(logger.Fields{
		logger.FieldJobID:       item.JobID,
		logger.FieldSourceID:    item.SourceID,
		logger.FieldContentType: item.ContentType,
	})

	attempts := item.Attempts + 1
	if !source.IsPermanent(itemErr) && source.IsRetryable(itemErr) && attempts < p.cfg.MaxAttempts {
		delay := backoffDelay(p.cfg.RetryBaseDelay, item.Attempts)
		log.WithError(itemErr).WithField("attempt", attempts).Warn("transient failure, requeueing")
		if err := p.queue.Requeue(ctx, item.ID, itemErr.Error(), time.Now().Add(delay)); err != nil {
			return &domain.FatalError{Err: fmt.Errorf("requeue item: %w", err)}
		}
		return nil
	}

	msg := itemErr.Error()
	if source.IsRetryable(itemErr) {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, attempts)
	}
	log.WithError(itemErr).Warn("item failed permanently")
	if err := tracker.Failure(ctx, msg); err != nil {
		return &domain.FatalError{Err: fmt.Errorf("record failure: %w", err)}
	}
	if err := p.queue.MarkFailed(ctx, item.ID, msg); err != nil {
		return &domain.FatalError{Err: fmt.Errorf("fail item: %w", err)}
	}
	if item.GapID != "" {
		if err := p.gaps.RecordAttempt(ctx, item.GapID, msg); err != nil {
			log.WithError(err).WithField(logger.FieldGapID, item.GapID).Warn("failed to record gap attempt")
		}
	}
	return nil
}

// resolveGap marks the backing registry entry resolved once its record is
// confirmed present in the store.
func (p *Processor) resolveGap(ctx context.Context, item domain.QueueItem) {
	if item.GapID == "" {
		return
	}
	if err := p.gaps.MarkResolved(ctx, item.GapID); err != nil {
		p.log.WithError(err).WithField(logger.FieldGapID, item.GapID).Warn("failed to resolve gap")
	}
}

func recordToContent(rec *source.Record) *domain.Content {
	return &domain.Content{
		ID:              uuid.New().String(),
		SourceID:        rec.SourceID,
		ContentType:     rec.ContentType,
		Title:           rec.Title,
		OriginalTitle:   rec.OriginalTitle,
		Overview:        rec.Overview,
		ReleaseDate:     rec.ReleaseDate,
		Popularity:      rec.Popularity,
		VoteAverage:     rec.VoteAverage,
		VoteCount:       rec.VoteCount,
		PosterPath:      rec.PosterPath,
		BackdropPath:    rec.BackdropPath,
		Genres:          domain.StringArray(rec.Genres),
		OriginCountries: domain.StringArray(rec.OriginCountries),
		Runtime:         rec.Runtime,
		SeasonCount:     rec.SeasonCount,
		EpisodeCount:    rec.EpisodeCount,
		Status:          rec.Status,
		Adult:           rec.Adult,
	}
}

// backoffDelay returns base doubled per prior failure, capped.
func backoffDelay(base time.Duration, failures int) time.Duration {
	if failures > 6 {
		return maxRetryBackoff
	}
	delay := base << uint(failures)
	if delay > maxRetryBackoff {
		return maxRetryBackoff
	}
	return delay
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
