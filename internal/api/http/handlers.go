package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/scriptgate/internal/api/middleware"
	"github.com/GriffinCanCode/scriptgate/internal/domain/session"
	"github.com/GriffinCanCode/scriptgate/internal/domain/submission"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/tracing"
)

// Validator screens submitted code
type Validator interface {
	Validate(code string) validator.Report
}

// Deps holds what the handlers need
type Deps struct {
	Validator  Validator
	Workspaces *session.Manager
	Store      *submission.Store
	ErrorLog   *submission.ErrorLog
	Metrics    *monitoring.Metrics
	Tracer     *tracing.Tracer
	Logger     *logging.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	validator  Validator
	workspaces *session.Manager
	store      *submission.Store
	errorLog   *submission.ErrorLog
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	logger     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		validator:  deps.Validator,
		workspaces: deps.Workspaces,
		store:      deps.Store,
		errorLog:   deps.ErrorLog,
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
		logger:     logger.Component("http"),
	}
}

// Register mounts every route on r. Session resolution runs on the
// participant-facing routes only.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.POST("/validate", h.Validate)
	r.GET("/security/report", h.SecurityReport)

	participant := r.Group("/", middleware.Session())
	participant.GET("/", h.Root)
	participant.GET("/code", h.GetCode)
	participant.POST("/save-code", h.SaveCode)
	participant.POST("/upload-code", h.UploadCode)
	participant.POST("/execute", h.Execute)
	participant.POST("/log-error", h.LogError)
	participant.GET("/debug-console", h.DebugConsole)
	participant.DELETE("/debug-console", h.ClearDebugConsole)
}

// Root serves the participant's host page with the current container.
func (h *Handlers) Root(c *gin.Context) {
	ws, err := h.workspaces.Open(middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	page, err := ws.Host.HTML()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "scriptgate",
		"workspaces": h.workspaces.Stats(),
		"metrics":    h.metrics.Snapshot(),
	})
}
