package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krushna-ai/gdvg-ingest/internal/api/middleware"
	"github.com/krushna-ai/gdvg-ingest/internal/config"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

// stubSource is an empty provider: no discoverable records, every detail
// lookup misses.
type stubSource struct{}

func (stubSource) DiscoverPage(ctx context.Context, ct domain.ContentType, filter source.DiscoverFilter, page int) (*source.Page, error) {
	return &source.Page{Page: page, TotalPages: 1}, nil
}

func (stubSource) Detail(ctx context.Context, ct domain.ContentType, id int64) (*source.Record, error) {
	return nil, source.ErrNotFound
}

func (stubSource) Changes(ctx context.Context, ct domain.ContentType, startDate, endDate string, page int) (*source.IDPage, error) {
	return &source.IDPage{Page: page, TotalPages: 1}, nil
}

func (stubSource) LatestID(ctx context.Context, ct domain.ContentType) (int64, error) {
	return 0, nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
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
	jobs := repository.NewJobRepository(db)
	queue := repository.NewQueueRepository(db)
	content := repository.NewContentRepository(db)
	gaps := repository.NewGapRepository(db)

	src := stubSource{}
	proc := service.NewProcessor(src, jobs, queue, content, gaps, nil, log, service.ProcessorConfig{Workers: 1})
	orch := service.NewOrchestrator(jobs, queue, proc, log)
	det := service.NewDetector(src, content, gaps, log, service.DetectorConfig{MaxPages: 1})
	stats := service.NewStatsService(content, queue, gaps)

	return SetupRouter(RouterDeps{
		Orchestrator: orch,
		Detector:     det,
		Stats:        stats,
		Gaps:         gaps,
		Content:      content,
		Log:          log,
	}, "test", middleware.CORSConfig{AllowAllOrigins: true})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("every response should carry a request id")
	}
}

func TestJobEndpoints(t *testing.T) {
	r := setupTestRouter(t)

	// Config validation failures surface as 400.
	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs", gin.H{
		"name":   "bad",
		"config": gin.H{"content_type": "podcast"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid config: status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", gin.H{
		"name": "korean-movies",
		"config": gin.H{
			"content_type":     "movie",
			"origin_countries": []string{"KR"},
			"check_duplicates": true,
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var job domain.ImportJob
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: status = %d, want 200", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/no-such-job", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", w.Code)
	}

	// Pausing a job that never started is a state machine violation.
	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/pause", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("pause pending: status = %d, want 409", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID+"/progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("progress: status = %d, want 200", w.Code)
	}
	var progress service.Progress
	if err := json.Unmarshal(w.Body.Bytes(), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.JobID != job.ID || progress.Total != 0 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestGapEndpoints(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/gaps", gin.H{
		"source_id":    603,
		"content_type": "movie",
		"reason":       "manual",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var gap domain.GapEntry
	if err := json.Unmarshal(w.Body.Bytes(), &gap); err != nil {
		t.Fatalf("decode gap: %v", err)
	}
	if gap.GapType != domain.GapTypePopularity {
		t.Errorf("gap type = %s, want popularity default", gap.GapType)
	}

	// Same (source_id, content_type) again conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/v1/gaps", gin.H{
		"source_id":    603,
		"content_type": "movie",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/gaps", gin.H{
		"source_id":    -1,
		"content_type": "movie",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative source id: status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/v1/gaps/"+gap.ID+"/attempt", gin.H{
		"error": "fetch movie 603: rate limited",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("attempt: status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var tried domain.GapEntry
	if err := json.Unmarshal(w.Body.Bytes(), &tried); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}
	if tried.FillAttempts != 1 || tried.IsResolved {
		t.Errorf("entry = attempts %d resolved %v, want 1/false", tried.FillAttempts, tried.IsResolved)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/v1/gaps/"+gap.ID+"/resolve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: status = %d, want 200", w.Code)
	}
	var resolved domain.GapEntry
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolved: %v", err)
	}
	if !resolved.IsResolved {
		t.Error("entry should be resolved")
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/gaps?resolved=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d, want 200", w.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("resolved count = %d, want 1", list.Count)
	}
}

func TestDetectEndpoint(t *testing.T) {
	r := setupTestRouter(t)

	// Empty provider: a sweep scans nothing but succeeds.
	w := doJSON(t, r, http.MethodPost, "/api/v1/gaps/detect", gin.H{
		"strategies": []string{"discover"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("detect: status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var stats service.DetectStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Scanned != 0 || stats.Registered != 0 {
		t.Errorf("stats = %+v, want empty sweep", stats)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/gaps/detect", gin.H{
		"strategies": []string{"psychic"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown strategy: status = %d, want 400", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status = %d, want 200", w.Code)
	}
	var stats service.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Content.Movies != 0 || stats.Gaps.Unresolved != 0 {
		t.Errorf("stats = %+v, want zeroed counters", stats)
	}
}
