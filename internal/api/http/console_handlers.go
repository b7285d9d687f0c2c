package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/api/middleware"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
)

type logErrorRequest struct {
	Error string `json:"error" binding:"required"`
}

// LogError records a client-side runtime error and returns its ERR- id.
func (h *Handlers) LogError(c *gin.Context) {
	var req logErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	sid := middleware.SessionID(c)
	rec := h.errorLog.Record(sid.String(), req.Error)

	if ws, ok := h.workspaces.Get(sid); ok {
		ws.Console.Log(zapcore.ErrorLevel, "["+rec.ID+"] "+req.Error)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "error_id": rec.ID})
}

// DebugConsole renders the participant's console as sanitized HTML, or as
// JSON when requested with ?format=json.
func (h *Handlers) DebugConsole(c *gin.Context) {
	ws, err := h.workspaces.Open(middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	entries := ws.Console.Entries()
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(logging.RenderHTML(entries)))
}

// ClearDebugConsole empties the participant's console.
func (h *Handlers) ClearDebugConsole(c *gin.Context) {
	if ws, ok := h.workspaces.Get(middleware.SessionID(c)); ok {
		ws.Console.Clear()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
