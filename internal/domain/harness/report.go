package harness

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
)

// Assessment bands for the security score
const (
	AssessmentExcellent = "EXCELLENT"
	AssessmentGood      = "GOOD"
	AssessmentModerate  = "MODERATE"
	AssessmentPoor      = "POOR"
)

// Report aggregates a run
type Report struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Summary        Summary         `json:"summary"`
	Effectiveness  Effectiveness   `json:"security_effectiveness"`
	FalsePositive  FalsePositive   `json:"false_positive_analysis"`
	Categories     []CategoryStats `json:"category_breakdown"`
	Failures       []Failure       `json:"failures"`
	CriticalGaps   []Failure       `json:"critical_security_gaps"`
	FalsePositives []Failure       `json:"false_positives_detail"`
	Results        []TestResult    `json:"detailed_results"`
}

// Summary holds the overall counts
type Summary struct {
	Total          int     `json:"total_tests"`
	Passed         int     `json:"passed_tests"`
	Failed         int     `json:"failed_tests"`
	SuccessRate    float64 `json:"success_rate"`
	AvgExecutionMS float64 `json:"avg_execution_time_ms"`
	SecurityScore  float64 `json:"security_score"`
	Assessment     string  `json:"assessment"`
}

// Effectiveness covers the malicious corpus
type Effectiveness struct {
	Total         int     `json:"malicious_tests"`
	Blocked       int     `json:"malicious_blocked"`
	DetectionRate float64 `json:"detection_rate"`
	CriticalGaps  int     `json:"critical_gaps"`
}

// FalsePositive covers the benign corpus
type FalsePositive struct {
	Total          int     `json:"benign_tests"`
	Allowed        int     `json:"benign_allowed"`
	Blocked        int     `json:"false_positives"`
	FalsePositives float64 `json:"false_positive_rate"`
}

// CategoryStats is the pass/fail tally of one case category
type CategoryStats struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
}

// Failure describes a case whose verdict did not match its label.
type Failure struct {
	Name          string                                       `json:"name"`
	Category      string                                       `json:"category"`
	Severity      string                                       `json:"severity,omitempty"`
	Description   string                                       `json:"description,omitempty"`
	ExpectBlocked bool                                         `json:"expect_blocked"`
	CodeSample    string                                       `json:"code_sample"`
	Violations    map[validator.Category][]validator.Violation `json:"violations,omitempty"`
	Error         string                                       `json:"error,omitempty"`
}

// HasCriticalGaps reports whether any malicious case was admitted.
func (r *Report) HasCriticalGaps() bool {
	return len(r.CriticalGaps) > 0
}

// FailuresByCategory groups failing cases by case category.
func (r *Report) FailuresByCategory() map[string][]Failure {
	out := make(map[string][]Failure)
	for _, f := range r.Failures {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}

// BuildReport aggregates results. Category order follows first appearance.
func BuildReport(results []TestResult) *Report {
	r := &Report{
		GeneratedAt:    time.Now().UTC(),
		Categories:     []CategoryStats{},
		Failures:       []Failure{},
		CriticalGaps:   []Failure{},
		FalsePositives: []Failure{},
		Results:        results,
	}

	index := make(map[string]int)
	timings := make([]float64, 0, len(results))

	for _, res := range results {
		timings = append(timings, res.TimingMS)

		pos, ok := index[res.Case.Category]
		if !ok {
			pos = len(r.Categories)
			index[res.Case.Category] = pos
			r.Categories = append(r.Categories, CategoryStats{Category: res.Case.Category})
		}
		r.Categories[pos].Total++

		if res.Passed {
			r.Summary.Passed++
			r.Categories[pos].Passed++
		} else {
			r.Categories[pos].Failed++
			r.Failures = append(r.Failures, failureOf(res))
		}

		if res.Case.ExpectBlocked {
			r.Effectiveness.Total++
			if res.WasBlocked {
				r.Effectiveness.Blocked++
			} else {
				r.CriticalGaps = append(r.CriticalGaps, failureOf(res))
			}
		} else {
			r.FalsePositive.Total++
			if res.WasBlocked {
				r.FalsePositive.Blocked++
				r.FalsePositives = append(r.FalsePositives, failureOf(res))
			} else {
				r.FalsePositive.Allowed++
			}
		}
	}

	r.Summary.Total = len(results)
	r.Summary.Failed = r.Summary.Total - r.Summary.Passed
	r.Summary.SuccessRate = ratio(r.Summary.Passed, r.Summary.Total) * 100
	if len(timings) > 0 {
		r.Summary.AvgExecutionMS = stat.Mean(timings, nil)
	}

	r.Effectiveness.DetectionRate = ratio(r.Effectiveness.Blocked, r.Effectiveness.Total)
	r.Effectiveness.CriticalGaps = len(r.CriticalGaps)
	r.FalsePositive.FalsePositives = ratio(r.FalsePositive.Blocked, r.FalsePositive.Total)

	allowRate := ratio(r.FalsePositive.Allowed, r.FalsePositive.Total)
	r.Summary.SecurityScore = (r.Effectiveness.DetectionRate*100 + allowRate*100) / 2
	r.Summary.Assessment = assess(r.Summary.SecurityScore)

	return r
}

func failureOf(res TestResult) Failure {
	f := Failure{
		Name:          res.Case.Name,
		Category:      res.Case.Category,
		Severity:      res.Case.Severity,
		Description:   res.Case.Description,
		ExpectBlocked: res.Case.ExpectBlocked,
		CodeSample:    sample(res.Case.Code),
		Error:         res.Error,
	}
	if len(res.Validation.Violations) > 0 || len(res.Validation.Warnings) > 0 {
		f.Violations = res.Validation.ByCategory()
	}
	return f
}

func sample(code string) string {
	runes := []rune(code)
	if len(runes) <= 100 {
		return code
	}
	return string(runes[:100]) + "..."
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func assess(score float64) string {
	switch {
	case score >= 95:
		return AssessmentExcellent
	case score >= 85:
		return AssessmentGood
	case score >= 70:
		return AssessmentModerate
	default:
		return AssessmentPoor
	}
}
