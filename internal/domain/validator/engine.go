package validator

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Engine validates submissions against the compiled catalog. It holds no
// mutable state after construction and is safe for concurrent use.
type Engine struct {
	config Config
	rules  []Rule
}

// New compiles the catalog with the given ceilings.
func New(cfg Config) (*Engine, error) {
	rules, err := compileCatalog()
	if err != nil {
		return nil, err
	}

	def := DefaultConfig()
	if cfg.MaxCodeSize <= 0 {
		cfg.MaxCodeSize = def.MaxCodeSize
	}
	if cfg.MaxConcatenations <= 0 {
		cfg.MaxConcatenations = def.MaxConcatenations
	}
	if cfg.MaxEntropy <= 0 {
		cfg.MaxEntropy = def.MaxEntropy
	}

	return &Engine{config: cfg, rules: rules}, nil
}

// Default returns an engine with the reference ceilings.
func Default() *Engine {
	engine, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return engine
}

// Config returns the effective ceilings.
func (e *Engine) Config() Config {
	return e.config
}

// Rules returns a copy of the compiled catalog in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Validate screens code and never fails: every problem is expressed in the
// returned report.
func (e *Engine) Validate(code string) Report {
	sub := NewSubmission(code)

	report := Report{
		Violations: []Violation{},
		Warnings:   []Violation{},
		CodeSize:   sub.Size,
	}

	if sub.Size > e.config.MaxCodeSize {
		report.Violations = append(report.Violations, Violation{
			RuleID:   RuleCodeSize,
			Category: CategoryObfuscation,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("code size %d exceeds limit of %d characters", sub.Size, e.config.MaxCodeSize),
		})
	}

	for i, line := range strings.Split(code, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if isComment(line) {
			continue
		}
		for _, rule := range e.rules {
			for _, v := range e.matchLine(rule, line, i+1) {
				if rule.Severity.Blocking() {
					report.Violations = append(report.Violations, v)
				} else {
					report.Warnings = append(report.Warnings, v)
				}
			}
		}
	}

	report.ConcatenationCount = countMatches(concatPattern, code)
	if report.ConcatenationCount > e.config.MaxConcatenations {
		report.Violations = append(report.Violations, Violation{
			RuleID:   RuleConcatenations,
			Category: CategoryObfuscation,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("excessive string concatenation (%d > %d), possible obfuscation",
				report.ConcatenationCount, e.config.MaxConcatenations),
		})
	}

	report.Entropy = ShannonEntropy(code)
	if report.Entropy > e.config.MaxEntropy {
		report.Violations = append(report.Violations, Violation{
			RuleID:   RuleEntropy,
			Category: CategoryObfuscation,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("high entropy %.2f bits exceeds %.2f, possible obfuscation",
				report.Entropy, e.config.MaxEntropy),
		})
	}

	report.Valid = len(report.Violations) == 0
	return report
}

func (e *Engine) matchLine(rule Rule, line string, lineNo int) []Violation {
	var out []Violation
	runes := []rune(line)

	m, err := rule.Pattern.FindStringMatch(line)
	for err == nil && m != nil {
		if !rule.Disambiguate || !declaresFunction(runes, m.Index, m.Length) {
			out = append(out, Violation{
				RuleID:   rule.ID,
				Category: rule.Category,
				Severity: rule.Severity,
				Line:     lineNo,
				Column:   m.Index + 1,
				Message:  rule.Message,
				Context:  strings.TrimSpace(line),
			})
		}
		m, err = rule.Pattern.FindNextMatch(m)
	}
	if err != nil {
		// A match timeout is treated as a finding; pathological input is
		// itself suspicious.
		out = append(out, Violation{
			RuleID:   rule.ID,
			Category: rule.Category,
			Severity: rule.Severity,
			Line:     lineNo,
			Column:   1,
			Message:  rule.Message + " (match timed out)",
			Context:  strings.TrimSpace(line),
		})
	}
	return out
}

// declaresFunction reports whether the line around a match carries an
// ordinary function token. The match itself is excluded so that a
// constructor call never disambiguates itself.
func declaresFunction(runes []rune, index, length int) bool {
	prefix := strings.ToLower(string(runes[:index]))
	if strings.Contains(prefix, "function ") || strings.HasSuffix(prefix, "function") {
		return true
	}
	rest := prefix + strings.ToLower(string(runes[index+length:]))
	return strings.Contains(rest, "function(") || strings.Contains(rest, "function (")
}

func isComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

func countMatches(re *regexp2.Regexp, text string) int {
	count := 0
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		count++
		m, err = re.FindNextMatch(m)
	}
	return count
}
