package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/config"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

// fakeSource is an in-memory source.Client with scriptable failures.
type fakeSource struct {
	mu       sync.Mutex
	pages    map[domain.ContentType][]source.Page
	details  map[int64]*source.Record
	errs     map[int64][]error // consumed per Detail call before success
	calls    map[int64]int
	order    []int64
	changes  []source.IDPage
	latest   int64
	onDetail func(id int64)

	discoverErrs []error // consumed per DiscoverPage call before success
	onDiscover   func(page int)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:   make(map[domain.ContentType][]source.Page),
		details: make(map[int64]*source.Record),
		errs:    make(map[int64][]error),
		calls:   make(map[int64]int),
	}
}

func (f *fakeSource) addRecord(rec *source.Record) {
	f.details[rec.SourceID] = rec
	pages := f.pages[rec.ContentType]
	if len(pages) == 0 {
		pages = []source.Page{{Page: 1}}
	}
	pages[len(pages)-1].Results = append(pages[len(pages)-1].Results, *rec)
	for i := range pages {
		pages[i].TotalPages = len(pages)
	}
	f.pages[rec.ContentType] = pages
}

func (f *fakeSource) setOnDetail(hook func(id int64)) {
	f.mu.Lock()
	f.onDetail = hook
	f.mu.Unlock()
}

func (f *fakeSource) setOnDiscover(hook func(page int)) {
	f.mu.Lock()
	f.onDiscover = hook
	f.mu.Unlock()
}

func (f *fakeSource) DiscoverPage(ctx context.Context, ct domain.ContentType, filter source.DiscoverFilter, page int) (*source.Page, error) {
	f.mu.Lock()
	hook := f.onDiscover
	var scripted error
	if len(f.discoverErrs) > 0 {
		scripted = f.discoverErrs[0]
		f.discoverErrs = f.discoverErrs[1:]
	}
	pages := f.pages[ct]
	var pg source.Page
	if page <= len(pages) {
		pg = pages[page-1]
		pg.Page = page
	} else {
		pg = source.Page{Page: page, TotalPages: len(pages)}
	}
	f.mu.Unlock()

	if hook != nil {
		hook(page)
	}
	if scripted != nil {
		return nil, scripted
	}
	return &pg, nil
}

func (f *fakeSource) Detail(ctx context.Context, ct domain.ContentType, id int64) (*source.Record, error) {
	f.mu.Lock()
	f.calls[id]++
	f.order = append(f.order, id)
	hook := f.onDetail
	var scripted error
	if errs := f.errs[id]; len(errs) > 0 {
		scripted = errs[0]
		f.errs[id] = errs[1:]
	}
	rec, ok := f.details[id]
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if scripted != nil {
		return nil, scripted
	}
	if !ok {
		return nil, source.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSource) Changes(ctx context.Context, ct domain.ContentType, startDate, endDate string, page int) (*source.IDPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page <= len(f.changes) {
		pg := f.changes[page-1]
		pg.Page = page
		pg.TotalPages = len(f.changes)
		return &pg, nil
	}
	return &source.IDPage{Page: page, TotalPages: len(f.changes)}, nil
}

func (f *fakeSource) LatestID(ctx context.Context, ct domain.ContentType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeSource) callCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func movieRecord(id int64, title string, popularity float64) *source.Record {
	return &source.Record{
		SourceID:        id,
		ContentType:     domain.ContentTypeMovie,
		Title:           title,
		Overview:        "an overview",
		Popularity:      popularity,
		PosterPath:      "/poster.jpg",
		OriginCountries: []string{"KR"},
	}
}

type testEnv struct {
	src     *fakeSource
	jobs    *repository.JobRepository
	queue   *repository.QueueRepository
	content *repository.ContentRepository
	gaps    *repository.GapRepository
	proc    *Processor
	orch    *Orchestrator
	log     *logger.Logger
}

func newTestEnv(t *testing.T, src *fakeSource, cfg ProcessorConfig) *testEnv {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	})
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}

	log := logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
	env := &testEnv{
		src:     src,
		jobs:    repository.NewJobRepository(db),
		queue:   repository.NewQueueRepository(db),
		content: repository.NewContentRepository(db),
		gaps:    repository.NewGapRepository(db),
		log:     log,
	}
	env.proc = NewProcessor(src, env.jobs, env.queue, env.content, env.gaps, nil, log, cfg)
	env.orch = NewOrchestrator(env.jobs, env.queue, env.proc, log)
	return env
}

// deterministic single-worker defaults for processor tests
func testProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Workers:        1,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		BatchSize:      10,
	}
}

func (e *testEnv) createJob(t *testing.T, cfg domain.JobConfig) *domain.ImportJob {
	t.Helper()
	job, err := e.orch.Create(context.Background(), fmt.Sprintf("test-%s", uuid.New().String()[:8]), cfg, 0)
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func (e *testEnv) runJob(t *testing.T, job *domain.ImportJob, ctrl *Control) Outcome {
	t.Helper()
	outcome, err := e.proc.Run(context.Background(), job, ctrl)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return outcome
}

func (e *testEnv) getJob(t *testing.T, id string) *domain.ImportJob {
	t.Helper()
	job, err := e.jobs.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	return job
}

func movieImportConfig() domain.JobConfig {
	return domain.JobConfig{
		ContentType:     domain.ContentTypeMovie,
		OriginCountries: []string{"KR"},
		CheckDuplicates: true,
	}
}
