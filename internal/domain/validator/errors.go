package validator

import (
	"fmt"
	"strings"
)

// ValidationError carries the complete list of blocking findings.
type ValidationError struct {
	Violations []Violation
	Warnings   []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "security validation failed"
	}

	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Line > 0 {
			parts = append(parts, fmt.Sprintf("line %d: %s", v.Line, v.Message))
		} else {
			parts = append(parts, v.Message)
		}
	}
	return fmt.Sprintf("security validation failed (%d violations): %s",
		len(e.Violations), strings.Join(parts, "; "))
}

// Categories lists the distinct violation categories in first-seen order.
func (e *ValidationError) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, v := range e.Violations {
		if !seen[v.Category] {
			seen[v.Category] = true
			out = append(out, v.Category)
		}
	}
	return out
}
