package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
)

// JobHandler handles import job endpoints.
type JobHandler struct {
	orchestrator *service.Orchestrator
}

// NewJobHandler creates a new job handler.
func NewJobHandler(orchestrator *service.Orchestrator) *JobHandler {
	return &JobHandler{orchestrator: orchestrator}
}

// CreateJobRequest is the body for POST /api/v1/jobs.
type CreateJobRequest struct {
	Name     string           `json:"name"`
	Priority int              `json:"priority"`
	Config   domain.JobConfig `json:"config"`
}

// Create handles POST /api/v1/jobs. The job is persisted as pending;
// nothing runs until the start endpoint is called.
func (h *JobHandler) Create(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	job, err := h.orchestrator.Create(c.Request.Context(), req.Name, req.Config, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// List handles GET /api/v1/jobs.
func (h *JobHandler) List(c *gin.Context) {
	status := domain.JobStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.orchestrator.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Progress handles GET /api/v1/jobs/:id/progress.
func (h *JobHandler) Progress(c *gin.Context) {
	progress, err := h.orchestrator.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Start handles POST /api/v1/jobs/:id/start.
func (h *JobHandler) Start(c *gin.Context) {
	job, err := h.orchestrator.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Pause handles POST /api/v1/jobs/:id/pause. The pause takes durable
// effect at the run's next checkpoint; the response reflects the status
// at response time.
func (h *JobHandler) Pause(c *gin.Context) {
	job, err := h.orchestrator.Pause(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Resume handles POST /api/v1/jobs/:id/resume.
func (h *JobHandler) Resume(c *gin.Context) {
	job, err := h.orchestrator.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Cancel handles POST /api/v1/jobs/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	job, err := h.orchestrator.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
