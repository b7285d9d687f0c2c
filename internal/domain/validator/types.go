package validator

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Category groups rules for reporting. The set is closed.
type Category string

const (
	CategoryCodeInjection      Category = "code-injection"
	CategoryTimerInjection     Category = "timer-injection"
	CategoryDOMWrite           Category = "dom-write"
	CategoryPrototypePollution Category = "prototype-pollution"
	CategoryGlobalAccess       Category = "global-access"
	CategoryStorageAccess      Category = "storage-access"
	CategoryNetworkAccess      Category = "network-access"
	CategoryObfuscation        Category = "obfuscation"
)

// Categories returns every category in reporting order.
func Categories() []Category {
	return []Category{
		CategoryCodeInjection,
		CategoryTimerInjection,
		CategoryDOMWrite,
		CategoryPrototypePollution,
		CategoryGlobalAccess,
		CategoryStorageAccess,
		CategoryNetworkAccess,
		CategoryObfuscation,
	}
}

// Severity of a rule match
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// Blocking reports whether matches of this severity reject a submission.
func (s Severity) Blocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Rule is one entry of the denylist catalog
type Rule struct {
	ID       string
	Category Category
	Severity Severity
	Pattern  *regexp2.Regexp
	Message  string

	// Disambiguate drops matches on lines that also carry an ordinary
	// function declaration token.
	Disambiguate bool
}

// Violation is a single finding. Line and Column are 1-based; both are zero
// for findings about the submission as a whole.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Context  string   `json:"context,omitempty"`
}

// Report is the outcome of one Validate call
type Report struct {
	Valid              bool        `json:"is_valid"`
	Violations         []Violation `json:"violations"`
	Warnings           []Violation `json:"warnings"`
	Entropy            float64     `json:"entropy"`
	CodeSize           int         `json:"code_size"`
	ConcatenationCount int         `json:"string_concatenation_count"`
}

// Blocked is the inverse of Valid, kept for call sites that read better
// from the harness point of view.
func (r Report) Blocked() bool {
	return !r.Valid
}

// ByCategory groups violations and warnings by category.
func (r Report) ByCategory() map[Category][]Violation {
	grouped := make(map[Category][]Violation)
	for _, v := range r.Violations {
		grouped[v.Category] = append(grouped[v.Category], v)
	}
	for _, v := range r.Warnings {
		grouped[v.Category] = append(grouped[v.Category], v)
	}
	return grouped
}

// Err returns a *ValidationError when the report blocks, nil otherwise.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: r.Violations, Warnings: r.Warnings}
}

// Submission is the code under review together with its logical size.
type Submission struct {
	Code string
	Size int
}

// NewSubmission measures code in runes.
func NewSubmission(code string) Submission {
	return Submission{Code: code, Size: utf8.RuneCountInString(code)}
}

// Config holds the structural ceilings
type Config struct {
	MaxCodeSize       int     // Maximum size in runes
	MaxConcatenations int     // Maximum naive string concatenations
	MaxEntropy        float64 // Maximum Shannon entropy in bits per rune
}

// DefaultConfig returns the reference ceilings.
func DefaultConfig() Config {
	return Config{
		MaxCodeSize:       50000,
		MaxConcatenations: 15,
		MaxEntropy:        4.5,
	}
}
