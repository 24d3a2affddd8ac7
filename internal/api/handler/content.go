package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
)

// ContentHandler handles imported catalog record endpoints.
type ContentHandler struct {
	content *repository.ContentRepository
}

// NewContentHandler creates a new content handler.
func NewContentHandler(content *repository.ContentRepository) *ContentHandler {
	return &ContentHandler{content: content}
}

// List handles GET /api/v1/content.
func (h *ContentHandler) List(c *gin.Context) {
	contentType := domain.ContentType(c.Query("type"))
	if contentType != "" && !contentType.Valid() {
		respondError(c, &domain.ValidationError{Field: "type", Reason: "must be movie or tv"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.content.List(c.Request.Context(), contentType, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": records, "count": len(records)})
}

// Get handles GET /api/v1/content/:type/:source_id.
func (h *ContentHandler) Get(c *gin.Context) {
	contentType := domain.ContentType(c.Param("type"))
	if !contentType.Valid() {
		respondError(c, &domain.ValidationError{Field: "type", Reason: "must be movie or tv"})
		return
	}
	sourceID, err := strconv.ParseInt(c.Param("source_id"), 10, 64)
	if err != nil || sourceID <= 0 {
		respondError(c, &domain.ValidationError{Field: "source_id", Reason: "must be a positive integer"})
		return
	}

	record, err := h.content.GetBySource(c.Request.Context(), contentType, sourceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
