package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/domain/harness"
)

// SecurityReport runs the built-in corpora through the validator and
// returns the conformance report as HTML (default) or JSON.
func (h *Handlers) SecurityReport(c *gin.Context) {
	suite := harness.New(h.validator, nil, harness.WithLogger(h.logger))

	var report *harness.Report
	switch c.Query("suite") {
	case "malicious":
		report = suite.RunMalicious(c.Request.Context())
	case "benign":
		report = suite.RunBenign(c.Request.Context())
	default:
		report = suite.RunAll(c.Request.Context())
	}
	h.metrics.RecordHarness(report)

	h.logger.Info("Conformance run finished",
		zap.Int("total", report.Summary.Total),
		zap.Float64("detection_rate", report.Effectiveness.DetectionRate),
		zap.Float64("false_positive_rate", report.FalsePositive.FalsePositives),
		zap.Int("critical_gaps", len(report.CriticalGaps)))

	var buf bytes.Buffer
	switch c.DefaultQuery("format", "html") {
	case "json":
		if err := report.WriteJSON(&buf); err != nil {
			h.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
	case "text":
		if err := report.WriteSummary(&buf); err != nil {
			h.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	default:
		if err := report.WriteHTML(&buf); err != nil {
			h.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	}
}
