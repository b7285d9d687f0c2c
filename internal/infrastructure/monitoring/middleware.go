package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Validator is the screening interface shared by the runner and harness.
type Validator interface {
	Validate(code string) validator.Report
}

type instrumentedValidator struct {
	next    Validator
	metrics *Metrics
}

// InstrumentValidator records every report produced by v.
func InstrumentValidator(v Validator, metrics *Metrics) Validator {
	return &instrumentedValidator{next: v, metrics: metrics}
}

func (i *instrumentedValidator) Validate(code string) validator.Report {
	start := time.Now()
	report := i.next.Validate(code)
	i.metrics.RecordValidation(report, time.Since(start))
	return report
}

// Timer measures operation duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	component string
	operation string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, component, operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		component: component,
		operation: operation,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) {
	t.metrics.RecordOperation(t.component, t.operation, status, time.Since(t.start))
}
