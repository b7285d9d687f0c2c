package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scriptgate/internal/domain/harness"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

var _ sandbox.Metrics = (*Metrics)(nil)

func TestNewMetricsIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.SessionOpened()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsActive))
}

func TestInstrumentValidator(t *testing.T) {
	m := NewMetrics()
	v := InstrumentValidator(validator.Default(), m)

	report := v.Validate("eval('x'); localStorage.getItem('k');")
	require.False(t, report.Valid)
	v.Validate("var a = 1;")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("code-injection", "CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("storage-access", "MEDIUM")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Validations)
	assert.Equal(t, int64(1), snap.Blocked)
}

func TestSandboxMetrics(t *testing.T) {
	m := NewMetrics()

	m.SessionOpened()
	m.RecordExecution(sandbox.OutcomeSuccess, 10*time.Millisecond)
	m.SessionClosed()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Teardowns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues(sandbox.OutcomeSuccess)))
}

func TestRecordHarness(t *testing.T) {
	m := NewMetrics()
	report := harness.BuildReport([]harness.TestResult{
		{Case: harness.TestCase{Name: "a", ExpectBlocked: true}, WasBlocked: true, Passed: true},
		{Case: harness.TestCase{Name: "b", ExpectBlocked: true}, WasBlocked: false},
		{Case: harness.TestCase{Name: "c"}, WasBlocked: false, Passed: true},
	})

	m.RecordHarness(report)

	assert.Equal(t, 0.5, testutil.ToFloat64(m.DetectionRate))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FalsePositiveRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CriticalGaps))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "scriptgate_http_requests_total"))
	assert.True(t, strings.Contains(body, "scriptgate_uptime_seconds"))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	timer := NewTimer(m, "submission", "save")
	timer.Stop("success")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCalls.WithLabelValues("submission", "save", "success")))
}
