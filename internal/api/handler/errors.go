package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
)

// respondError maps domain errors onto HTTP status codes. Validation
// failures are client errors; state machine violations and uniqueness
// conflicts are 409s so callers can distinguish them from bad input.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
