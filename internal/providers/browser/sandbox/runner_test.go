package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
)

// countingValidator records calls and delegates to the real engine.
type countingValidator struct {
	engine *validator.Engine
	calls  int
}

func (c *countingValidator) Validate(code string) validator.Report {
	c.calls++
	return c.engine.Validate(code)
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	opened   int
	closed   int
}

func (m *recordingMetrics) RecordExecution(outcome string, _ time.Duration) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, outcome)
	m.mu.Unlock()
}

func (m *recordingMetrics) SessionOpened() {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *recordingMetrics) SessionClosed() {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

func (m *recordingMetrics) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened, m.closed
}

type attachFunc func(*Session) error

func (f attachFunc) Attach(s *Session) error { return f(s) }

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *logging.RingLog) {
	t.Helper()
	ring := logging.NewRingLog(logging.DefaultRingCapacity)
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	runner := NewRunner(cfg, validator.Default(), append([]Option{WithSink(ring)}, opts...)...)
	t.Cleanup(runner.Close)
	return runner, ring
}

func TestExecuteRefusesBlockedCode(t *testing.T) {
	metrics := &recordingMetrics{}
	runner, ring := newTestRunner(t, WithMetrics(metrics))

	session, err := runner.Execute(context.Background(), "eval('x')")

	require.Error(t, err)
	assert.Nil(t, session)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, validator.CategoryCodeInjection, verr.Violations[0].Category)

	opened, _ := metrics.counts()
	assert.Zero(t, opened, "no realm may be created for refused code")
	assert.Nil(t, runner.Active())
	assert.Equal(t, []string{OutcomeBlocked}, metrics.outcomes)
	assert.Equal(t, 1, ring.Len())
}

func TestExecuteAdmitsPlainFunction(t *testing.T) {
	runner, ring := newTestRunner(t)

	session, err := runner.Execute(context.Background(), "function add(a,b){return a+b;}")

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Nil(t, session.Game())
	assert.Zero(t, ring.Len())
	assert.NotNil(t, session.Teardown())
	assert.Same(t, session, runner.Active())
}

func TestExecuteRuntimeErrorSchedulesTeardown(t *testing.T) {
	metrics := &recordingMetrics{}
	runner, ring := newTestRunner(t, WithMetrics(metrics))

	_, err := runner.Execute(context.Background(), "var a = 1;\nthrow new Error('boom');")

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Message, "boom")

	active := runner.Active()
	require.NotNil(t, active)
	require.NotNil(t, active.Teardown())
	assert.True(t, active.Teardown().Scheduled())

	select {
	case <-active.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("teardown did not fire after an execution error")
	}

	var logged bool
	for _, e := range ring.Entries() {
		if e.Level == zapcore.ErrorLevel && strings.Contains(e.Message, "boom") {
			logged = true
		}
	}
	assert.True(t, logged, "execution error must reach the sink")
	_, closed := metrics.counts()
	assert.Equal(t, 1, closed)
}

func TestExecuteSyntaxError(t *testing.T) {
	runner, _ := newTestRunner(t)

	_, err := runner.Execute(context.Background(), "var = ;")

	var execErr *ExecutionError
	assert.True(t, errors.As(err, &execErr))
}

func TestExecuteCannotEscapeWrapper(t *testing.T) {
	runner, _ := newTestRunner(t)

	_, err := runner.Execute(context.Background(), "}); (function(){")

	var execErr *ExecutionError
	assert.True(t, errors.As(err, &execErr))
}

func TestExecuteTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	runner := NewRunner(cfg, validator.Default())
	defer runner.Close()

	start := time.Now()
	_, err := runner.Execute(context.Background(), "while (true) {}")

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Message, "timeout")
	assert.Less(t, time.Since(start), 2*time.Second)
}

// Static screening admits these; the realm limits must stop them.
func TestResourceExhaustionIsBounded(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"infinite loop", "while(true) { console.log('DoS'); }"},
		{"recursion bomb", "function bomb() { bomb(); bomb(); } bomb();"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Timeout = 200 * time.Millisecond
			cfg.DisableConsole = true
			runner := NewRunner(cfg, validator.Default())
			defer runner.Close()

			start := time.Now()
			_, err := runner.Execute(context.Background(), tt.code)

			var execErr *ExecutionError
			require.True(t, errors.As(err, &execErr), "%v", err)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestExecuteContextCancel(t *testing.T) {
	runner, _ := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runner.Execute(ctx, "for (;;) {}")

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Message, "cancel")
}

func TestAtMostOneActiveSession(t *testing.T) {
	metrics := &recordingMetrics{}
	runner, _ := newTestRunner(t, WithMetrics(metrics))

	first, err := runner.Execute(context.Background(), "var game = { n: 1 };")
	require.NoError(t, err)
	first.Teardown().Cancel()

	second, err := runner.Execute(context.Background(), "var game = { n: 2 };")
	require.NoError(t, err)
	second.Teardown().Cancel()

	assert.True(t, first.Closed(), "previous session must be disposed")
	assert.False(t, second.Closed())
	assert.Same(t, second, runner.Active())

	opened, closed := metrics.counts()
	assert.Equal(t, 2, opened)
	assert.Equal(t, 1, closed)
}

func TestExecuteInvokesAttacher(t *testing.T) {
	var attached *Session
	runner, _ := newTestRunner(t, WithAttacher(attachFunc(func(s *Session) error {
		attached = s
		return nil
	})))

	session, err := runner.Execute(context.Background(), "var c = stage.createCanvas(10, 10);")

	require.NoError(t, err)
	assert.Same(t, session, attached)
}

func TestExecuteAttachFailureIsSetupError(t *testing.T) {
	runner, _ := newTestRunner(t, WithAttacher(attachFunc(func(*Session) error {
		return errors.New("no container")
	})))

	_, err := runner.Execute(context.Background(), "var x = 1;")

	var serr *SetupError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "attach", serr.Stage)
}

func TestWarningsAreLogged(t *testing.T) {
	runner, ring := newTestRunner(t)

	_, err := runner.Execute(context.Background(), "var k = 1;\nlocalStorage.getItem;")

	// localStorage is undefined inside the realm.
	require.Error(t, err)
	require.NotEmpty(t, ring.Entries())
	assert.True(t, strings.HasPrefix(ring.Entries()[0].Message, "line 2:"))
}

func TestValidatorCalledOncePerExecute(t *testing.T) {
	v := &countingValidator{engine: validator.Default()}
	runner := NewRunner(DefaultConfig(), v)
	defer runner.Close()

	_, _ = runner.Execute(context.Background(), "var a = 1;")
	_, _ = runner.Execute(context.Background(), "fetch('/x')")

	assert.Equal(t, 2, v.calls)
}

func TestDefaultSinkIsRing(t *testing.T) {
	runner := NewRunner(Config{}, validator.Default())
	defer runner.Close()

	_, ok := runner.Sink().(*logging.RingLog)
	assert.True(t, ok)
	assert.Equal(t, DefaultConfig(), runner.Config())
}

func TestZeroConfigKeepsConsole(t *testing.T) {
	runner := NewRunner(Config{}, validator.Default())
	defer runner.Close()

	_, err := runner.Execute(context.Background(), `console.log("ready");`)
	require.NoError(t, err)

	ring := runner.Sink().(*logging.RingLog)
	require.NotZero(t, ring.Len())
	assert.Equal(t, "ready", ring.Entries()[0].Message)
}
