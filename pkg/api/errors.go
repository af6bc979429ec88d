package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge/pkg/fault"
)

// writeError maps service errors onto HTTP status codes: validation 400,
// not-found 404, everything else 500. Degraded workflow outcomes never
// reach this path; they ride inside a 200 response.
func writeError(c *gin.Context, err error) {
	var validation *fault.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, fault.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
