package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/domain/session"
	"github.com/GriffinCanCode/scriptgate/internal/domain/submission"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

// writeError maps the error taxonomy onto HTTP statuses.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var (
		verr   *validator.ValidationError
		xerr   *sandbox.ExecutionError
		serr   *sandbox.SetupError
		ierr   *submission.IntakeError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":    false,
			"error":      "Security violation: " + verr.Error(),
			"violations": verr.Violations,
			"warnings":   verr.Warnings,
			"categories": verr.Categories(),
		})
	case errors.As(err, &xerr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      xerr.Message,
			"sandbox_id": xerr.SessionID,
		})
	case errors.As(err, &serr):
		h.logger.Error("Sandbox setup failed", zap.String("stage", serr.Stage), zap.Error(serr.Err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   serr.Error(),
			"stage":   serr.Stage,
		})
	case errors.As(err, &ierr):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"success": false, "error": ierr.Error()})
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "request body too large"})
	case errors.Is(err, submission.ErrInvalidFile), errors.Is(err, submission.ErrInvalidSession):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, session.ErrLimitReached):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}
