package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
)

// GapHandler handles gap registry endpoints.
type GapHandler struct {
	gaps         *repository.GapRepository
	detector     *service.Detector
	orchestrator *service.Orchestrator
}

// NewGapHandler creates a new gap handler.
func NewGapHandler(gaps *repository.GapRepository, detector *service.Detector, orchestrator *service.Orchestrator) *GapHandler {
	return &GapHandler{gaps: gaps, detector: detector, orchestrator: orchestrator}
}

// List handles GET /api/v1/gaps.
func (h *GapHandler) List(c *gin.Context) {
	filter := repository.GapFilter{
		GapType:     domain.GapType(c.Query("type")),
		ContentType: domain.ContentType(c.Query("content_type")),
	}
	if v := c.Query("resolved"); v != "" {
		resolved := v == "true"
		filter.Resolved = &resolved
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	gaps, err := h.gaps.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gaps": gaps, "count": len(gaps)})
}

// Get handles GET /api/v1/gaps/:id.
func (h *GapHandler) Get(c *gin.Context) {
	gap, err := h.gaps.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

// RegisterGapRequest is the body for POST /api/v1/gaps.
type RegisterGapRequest struct {
	SourceID      int64              `json:"source_id"`
	ContentType   domain.ContentType `json:"content_type"`
	GapType       domain.GapType     `json:"gap_type"`
	PriorityScore float64            `json:"priority_score"`
	Reason        string             `json:"reason"`
}

// Register handles POST /api/v1/gaps, manual gap registration. A second
// registration of the same (source_id, content_type) returns 409 and
// leaves the existing entry untouched.
func (h *GapHandler) Register(c *gin.Context) {
	var req RegisterGapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.SourceID <= 0 {
		respondError(c, &domain.ValidationError{Field: "source_id", Reason: "must be positive"})
		return
	}
	if !req.ContentType.Valid() {
		respondError(c, &domain.ValidationError{Field: "content_type", Reason: "must be movie or tv"})
		return
	}
	if req.GapType == "" {
		req.GapType = domain.GapTypePopularity
	}
	if !req.GapType.Valid() {
		respondError(c, &domain.ValidationError{Field: "gap_type", Reason: "unknown gap type"})
		return
	}

	gap := &domain.GapEntry{
		ID:            uuid.New().String(),
		SourceID:      req.SourceID,
		ContentType:   req.ContentType,
		GapType:       req.GapType,
		PriorityScore: req.PriorityScore,
		Reason:        req.Reason,
	}
	if err := h.gaps.Register(c.Request.Context(), gap); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gap)
}

// Resolve handles PATCH /api/v1/gaps/:id/resolve, an administrative
// resolution without an import. Idempotent.
func (h *GapHandler) Resolve(c *gin.Context) {
	id := c.Param("id")
	if err := h.gaps.MarkResolved(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	gap, err := h.gaps.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

// AttemptRequest is the body for PATCH /api/v1/gaps/:id/attempt.
type AttemptRequest struct {
	Error string `json:"error"`
}

// Attempt handles PATCH /api/v1/gaps/:id/attempt: records a failed fill
// attempt against the entry. The entry stays unresolved.
func (h *GapHandler) Attempt(c *gin.Context) {
	var req AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Error == "" {
		respondError(c, &domain.ValidationError{Field: "error", Reason: "must not be empty"})
		return
	}

	id := c.Param("id")
	if err := h.gaps.RecordAttempt(c.Request.Context(), id, req.Error); err != nil {
		respondError(c, err)
		return
	}
	gap, err := h.gaps.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gap)
}

// DetectRequest is the body for POST /api/v1/gaps/detect.
type DetectRequest struct {
	Strategies   []string             `json:"strategies"`
	ContentTypes []domain.ContentType `json:"content_types"`
	DaysBack     int                  `json:"days_back"`
}

// Detect handles POST /api/v1/gaps/detect. The sweep runs synchronously
// and returns its stats.
func (h *GapHandler) Detect(c *gin.Context) {
	var req DetectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	stats, err := h.detector.Run(c.Request.Context(), service.DetectOptions{
		Strategies:   req.Strategies,
		ContentTypes: req.ContentTypes,
		DaysBack:     req.DaysBack,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// FillRequest is the body for POST /api/v1/gaps/fill.
type FillRequest struct {
	GapIDs       []string `json:"gap_ids"`
	Limit        int      `json:"limit"`
	Priority     int      `json:"priority"`
	MirrorImages bool     `json:"mirror_images"`
}

// Fill handles POST /api/v1/gaps/fill: creates and starts a gap-fill
// job whose target set is drawn from the registry, highest priority
// score first.
func (h *GapHandler) Fill(c *gin.Context) {
	var req FillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	cfg := domain.JobConfig{
		ContentType:     domain.ContentTypeBoth,
		CheckDuplicates: true,
		UpdateExisting:  true,
		MirrorImages:    req.MirrorImages,
		GapFill:         true,
		GapIDs:          req.GapIDs,
		GapLimit:        req.Limit,
	}
	job, err := h.orchestrator.Create(c.Request.Context(), "", cfg, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err = h.orchestrator.Start(c.Request.Context(), job.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}
