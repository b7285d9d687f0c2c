package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

// Validator is the static screening stage
type Validator interface {
	Validate(code string) validator.Report
}

// Executor runs admitted code. *sandbox.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, code string) (*sandbox.Session, error)
}

// TestResult is the outcome of one case
type TestResult struct {
	Case           TestCase         `json:"case"`
	WasBlocked     bool             `json:"was_blocked"`
	Passed         bool             `json:"passed"`
	Executed       bool             `json:"executed"`
	ExecutionError string           `json:"execution_error,omitempty"`
	Error          string           `json:"error,omitempty"`
	Timing         time.Duration    `json:"-"`
	TimingMS       float64          `json:"timing_ms"`
	Validation     validator.Report `json:"validation"`
}

// Progress is called after each case with its 1-based position.
type Progress func(index, total int, result TestResult)

// Option configures a Harness
type Option func(*Harness)

// WithProgress registers a per-case callback.
func WithProgress(p Progress) Option {
	return func(h *Harness) {
		h.progress = p
	}
}

// WithCases replaces the built-in corpora. The list a case is passed in
// decides its expected verdict.
func WithCases(malicious, benign []TestCase) Option {
	return func(h *Harness) {
		h.malicious = labelled(malicious, true)
		h.benign = labelled(benign, false)
	}
}

func labelled(cases []TestCase, blocked bool) []TestCase {
	out := make([]TestCase, len(cases))
	for i, tc := range cases {
		tc.ExpectBlocked = blocked
		out[i] = tc
	}
	return out
}

// WithLogger sets the logger for per-case diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Harness runs corpora through the pipeline
type Harness struct {
	validator Validator
	executor  Executor
	progress  Progress
	logger    *logging.Logger

	mu        sync.Mutex
	malicious []TestCase
	benign    []TestCase
}

// New creates a harness over the built-in corpora. exec may be nil for a
// validation-only run.
func New(v Validator, exec Executor, opts ...Option) *Harness {
	h := &Harness{
		validator: v,
		executor:  exec,
		logger:    logging.NewNop(),
		malicious: MaliciousCorpus(),
		benign:    BenignCorpus(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddCase appends a custom case to the corpus matching its label.
func (h *Harness) AddCase(tc TestCase) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if tc.ExpectBlocked {
		h.malicious = append(h.malicious, tc)
	} else {
		h.benign = append(h.benign, tc)
	}
}

// Cases returns the malicious and benign corpora in run order.
func (h *Harness) Cases() ([]TestCase, []TestCase) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TestCase(nil), h.malicious...), append([]TestCase(nil), h.benign...)
}

// RunAll runs the malicious corpus, then the benign corpus.
func (h *Harness) RunAll(ctx context.Context) *Report {
	malicious, benign := h.Cases()
	return BuildReport(h.run(ctx, append(malicious, benign...)))
}

// RunMalicious runs only the malicious corpus.
func (h *Harness) RunMalicious(ctx context.Context) *Report {
	malicious, _ := h.Cases()
	return BuildReport(h.run(ctx, malicious))
}

// RunBenign runs only the benign corpus.
func (h *Harness) RunBenign(ctx context.Context) *Report {
	_, benign := h.Cases()
	return BuildReport(h.run(ctx, benign))
}

func (h *Harness) run(ctx context.Context, cases []TestCase) []TestResult {
	results := make([]TestResult, 0, len(cases))
	for i, tc := range cases {
		if ctx.Err() != nil {
			h.logger.Warn("Harness run cancelled",
				zap.Int("completed", i),
				zap.Int("total", len(cases)))
			break
		}

		result := h.RunCase(ctx, tc)
		results = append(results, result)

		h.logger.Debug("Harness case finished",
			zap.String("name", tc.Name),
			zap.Bool("blocked", result.WasBlocked),
			zap.Bool("passed", result.Passed))

		if h.progress != nil {
			h.progress(i+1, len(cases), result)
		}
	}

	if closer, ok := h.executor.(interface{ Close() }); ok {
		closer.Close()
	}
	return results
}

// RunCase runs one case. It never panics and never returns an error; any
// failure is recorded in the result. A panicking validator counts as a
// block; an executor failure never changes the verdict.
func (h *Harness) RunCase(ctx context.Context, tc TestCase) (result TestResult) {
	start := time.Now()
	result.Case = tc

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
			result.WasBlocked = true
			result.Passed = tc.ExpectBlocked
		}
		result.Timing = time.Since(start)
		result.TimingMS = float64(result.Timing.Microseconds()) / 1000
	}()

	result.Validation = h.validator.Validate(tc.Code)
	result.WasBlocked = !result.Validation.Valid
	result.Passed = result.WasBlocked == tc.ExpectBlocked

	if !result.WasBlocked && h.executor != nil {
		result.Executed = true
		if err := h.execute(ctx, tc.Code); err != nil {
			result.ExecutionError = err.Error()
		}
	}
	return result
}

func (h *Harness) execute(ctx context.Context, code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = h.executor.Execute(ctx, code)
	return err
}
