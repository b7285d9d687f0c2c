package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/api/middleware"
	"github.com/GriffinCanCode/scriptgate/internal/domain/submission"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

// maxUploadBytes bounds a multipart code upload.
const maxUploadBytes = 1 << 20

type codeRequest struct {
	Code string `json:"code"`
}

type saveRequest struct {
	Code string `json:"code"`
	File string `json:"file"`
}

type executeRequest struct {
	Code *string `json:"code"`
}

// Validate screens code without storing or running it. A blocked
// submission is still a 200; the verdict is in the report.
func (h *Handlers) Validate(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var report validator.Report
	_ = h.tracer.Trace(c.Request.Context(), "validator.validate", func(context.Context) error {
		report = h.validator.Validate(req.Code)
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// GetCode returns the participant's stored code or the starter template.
func (h *Handlers) GetCode(c *gin.Context) {
	sid := middleware.SessionID(c)

	timer := monitoring.NewTimer(h.metrics, "submission", "load")
	code, err := h.store.LoadOrTemplate(sid.String())
	if err != nil {
		timer.Stop("error")
		h.writeError(c, err)
		return
	}
	timer.Stop("success")

	c.JSON(http.StatusOK, gin.H{"success": true, "code": code})
}

// SaveCode validates and stores code for the participant.
func (h *Handlers) SaveCode(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.save(c, req.File, req.Code)
}

// UploadCode accepts a multipart "file" field holding game.js.
func (h *Handlers) UploadCode(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, err)
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "upload too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		h.writeError(c, err)
		return
	}

	code, err := submission.Intake(data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.save(c, header.Filename, code)
}

func (h *Handlers) save(c *gin.Context, file, code string) {
	sid := middleware.SessionID(c)

	timer := monitoring.NewTimer(h.metrics, "submission", "save")
	saved, err := h.store.Save(sid.String(), file, code)
	if err != nil {
		timer.Stop("error")
		h.logger.Session(sid.String()).Info("Submission refused",
			zap.String("file", file),
			zap.Error(err))
		h.writeError(c, err)
		return
	}
	timer.Stop("success")
	h.logger.Session(sid.String()).Debug("Submission stored",
		zap.String("submission_id", saved.ID.String()))

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"submission_id": saved.ID,
		"warnings":      saved.Report.Warnings,
	})
}

// Execute runs the posted code, or the stored code when none is posted,
// and returns the refreshed host container.
func (h *Handlers) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}

	sid := middleware.SessionID(c)
	code := ""
	if req.Code != nil {
		code = *req.Code
	} else {
		stored, err := h.store.LoadOrTemplate(sid.String())
		if err != nil {
			h.writeError(c, err)
			return
		}
		code = stored
	}

	ws, err := h.workspaces.Open(sid)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var sess *sandbox.Session
	err = h.tracer.Trace(c.Request.Context(), "sandbox.execute", func(ctx context.Context) error {
		s, err := ws.Runner.Execute(ctx, code)
		sess = s
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	container, err := ws.Host.Container()
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Session(sid.String()).Debug("Submission executed",
		zap.String(logging.SandboxKey, sess.ID().String()),
		zap.Int("transplants", ws.Host.Transplants()))

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"sandbox_id":  sess.ID(),
		"container":   container,
		"transplants": ws.Host.Transplants(),
		"changes":     sess.Surface().Changes(),
		"teardown_at": sess.Teardown().Deadline(),
	})
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
}
