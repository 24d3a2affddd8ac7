package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
)

// Orchestrator owns the job state machine. Every status change goes
// through a guarded transition, so racing control requests resolve to
// exactly one winner. Control requests against a live run are delivered
// through its Control and take durable effect at the run's next
// checkpoint; the API returns the current status immediately.
type Orchestrator struct {
	jobs      *repository.JobRepository
	queue     *repository.QueueRepository
	processor *Processor
	log       *logger.Logger

	mu   sync.Mutex
	runs map[string]*jobRun
}

type jobRun struct {
	ctrl   *Control
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(jobs *repository.JobRepository, queue *repository.QueueRepository, processor *Processor, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		queue:     queue,
		processor: processor,
		log:       log.WithField(logger.FieldComponent, "orchestrator"),
		runs:      make(map[string]*jobRun),
	}
}

// Create validates the configuration and persists a pending job. Nothing
// runs until Start.
func (o *Orchestrator) Create(ctx context.Context, name string, cfg domain.JobConfig, priority int) (*domain.ImportJob, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("import-%s", time.Now().Format("20060102-150405"))
	}
	job := &domain.ImportJob{
		ID:       uuid.New().String(),
		Name:     name,
		Config:   cfg,
		Status:   domain.JobStatusPending,
		Priority: priority,
		ErrorLog: domain.StringArray{},
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	o.log.WithFields(logger.Fields{logger.FieldJobID: job.ID, "name": name}).Info("job created")
	return job, nil
}

// Start moves a pending job to running and launches its run.
func (o *Orchestrator) Start(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.jobs.Transition(ctx, id, job.Status, domain.JobEventStart); err != nil {
		return nil, err
	}
	o.launch(job)
	return o.jobs.GetByID(ctx, id)
}

// Pause requests a pause on a running job. The durable flip to paused
// happens when the run reaches its next checkpoint, so the returned job
// may still read running.
func (o *Orchestrator) Pause(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := job.Status.Apply(domain.JobEventPause); err != nil {
		return nil, err
	}

	o.mu.Lock()
	run, live := o.runs[id]
	o.mu.Unlock()
	if live {
		run.ctrl.RequestPause()
	} else {
		// Running status without a live run, e.g. after a crash. Flip
		// directly; the persisted queue makes the job resumable.
		if err := o.jobs.Transition(ctx, id, job.Status, domain.JobEventPause); err != nil {
			return nil, err
		}
	}
	return o.jobs.GetByID(ctx, id)
}

// Resume relaunches a paused job against its persisted queue remainder.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.jobs.Transition(ctx, id, job.Status, domain.JobEventResume); err != nil {
		return nil, err
	}
	o.launch(job)
	return o.jobs.GetByID(ctx, id)
}

// Cancel terminates a pending, paused, or running job and discards its
// unprocessed queue items. Progress counters and the error log are kept.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*domain.ImportJob, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := job.Status.Apply(domain.JobEventCancel); err != nil {
		return nil, err
	}

	o.mu.Lock()
	run, live := o.runs[id]
	o.mu.Unlock()
	if job.Status == domain.JobStatusRunning && live {
		run.ctrl.RequestCancel()
	} else {
		if err := o.jobs.Transition(ctx, id, job.Status, domain.JobEventCancel); err != nil {
			return nil, err
		}
		o.discardRemaining(ctx, id)
	}
	return o.jobs.GetByID(ctx, id)
}

// Get retrieves one job.
func (o *Orchestrator) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	return o.jobs.GetByID(ctx, id)
}

// List retrieves jobs, optionally filtered by status.
func (o *Orchestrator) List(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ImportJob, error) {
	return o.jobs.List(ctx, status, limit, offset)
}

// Progress is a derived snapshot of one job's counters.
type Progress struct {
	JobID        string           `json:"job_id"`
	Status       domain.JobStatus `json:"status"`
	Total        int              `json:"total"`
	Processed    int              `json:"processed"`
	Skipped      int              `json:"skipped"`
	Failed       int              `json:"failed"`
	Percentage   float64          `json:"percentage"`
	QueuePending int64            `json:"queue_pending"`
}

// Progress reports the job's current counters and derived percentage.
func (o *Orchestrator) Progress(ctx context.Context, id string) (*Progress, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := o.queue.PendingCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Progress{
		JobID:        job.ID,
		Status:       job.Status,
		Total:        job.Total,
		Processed:    job.Processed,
		Skipped:      job.Skipped,
		Failed:       job.Failed,
		Percentage:   job.Percentage(),
		QueuePending: pending,
	}, nil
}

func (o *Orchestrator) launch(job *domain.ImportJob) {
	runCtx, cancel := context.WithCancel(context.Background())
	run := &jobRun{ctrl: &Control{}, cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.runs[job.ID] = run
	o.mu.Unlock()
	go o.execute(runCtx, job, run)
}

func (o *Orchestrator) execute(ctx context.Context, job *domain.ImportJob, run *jobRun) {
	log := o.log.WithField(logger.FieldJobID, job.ID)
	defer func() {
		o.mu.Lock()
		delete(o.runs, job.ID)
		o.mu.Unlock()
		run.cancel()
		close(run.done)
	}()

	started := time.Now()
	outcome, err := o.processor.Run(ctx, job, run.ctrl)

	// Finalization must not be cut short by the run context.
	bg := context.Background()
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		// The run context was torn down, e.g. by a shutdown. The persisted
		// queue keeps the job resumable; failing it here would be wrong.
		log.Info("job run interrupted, paused")
		o.finish(bg, job.ID, domain.JobEventPause)
	case err != nil:
		log.WithError(err).Error("job run failed")
		if aerr := o.jobs.AppendError(bg, job.ID, err.Error()); aerr != nil {
			log.WithError(aerr).Error("failed to append job error")
		}
		o.finish(bg, job.ID, domain.JobEventFail)
	case outcome == OutcomeCompleted:
		log.WithField(logger.FieldDurationMs, time.Since(started).Milliseconds()).Info("job completed")
		o.finish(bg, job.ID, domain.JobEventComplete)
	case outcome == OutcomeCancelled:
		o.discardRemaining(bg, job.ID)
		log.Info("job cancelled")
		o.finish(bg, job.ID, domain.JobEventCancel)
	default:
		log.Info("job paused")
		o.finish(bg, job.ID, domain.JobEventPause)
	}
}

func (o *Orchestrator) finish(ctx context.Context, id string, ev domain.JobEvent) {
	if err := o.jobs.Transition(ctx, id, domain.JobStatusRunning, ev); err != nil {
		o.log.WithError(err).WithFields(logger.Fields{
			logger.FieldJobID: id,
			"event":           ev,
		}).Error("failed to finalize job status")
	}
}

func (o *Orchestrator) discardRemaining(ctx context.Context, id string) {
	if err := o.queue.DeleteRemaining(ctx, id); err != nil {
		o.log.WithError(err).WithField(logger.FieldJobID, id).Warn("failed to discard queue remainder")
	}
}

// Wait blocks until the job's live run finishes. No-op for idle jobs.
func (o *Orchestrator) Wait(id string) {
	o.mu.Lock()
	run, ok := o.runs[id]
	o.mu.Unlock()
	if ok {
		<-run.done
	}
}

// Stop pauses all live runs for graceful shutdown. Persisted queues make
// the interrupted jobs resumable after restart.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mu.Lock()
	runs := make([]*jobRun, 0, len(o.runs))
	for _, r := range o.runs {
		runs = append(runs, r)
	}
	o.mu.Unlock()

	for _, r := range runs {
		r.ctrl.RequestPause()
		r.cancel()
	}
	for _, r := range runs {
		select {
		case <-r.done:
		case <-ctx.Done():
			return
		}
	}
}
