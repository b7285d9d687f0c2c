/*
Package validator implements the static screening stage of the admission
pipeline for participant-submitted scripts.

# Overview

The Engine scans a script line by line against an ordered catalog of
denylist rules and a handful of whole-submission heuristics:

  - Size ceiling (runes, not bytes)
  - Naive string-concatenation count ('ev' + 'al' style reassembly)
  - Shannon entropy of the character distribution

Every match is reported with its rule category, severity and 1-based
position. CRITICAL and HIGH matches block the submission; MEDIUM matches
are surfaced as warnings only.

# Limits

This is a best-effort denylist. It raises the cost of trivial attacks and
gives the conformance harness something measurable; it is not a proof of
safety. The sandbox package is the second barrier.

Known false-positive source: a banned token inside an otherwise harmless
string literal is still flagged unless the whole line is a comment.

# Usage Example

	engine := validator.Default()
	report := engine.Validate(code)
	if !report.Valid {
		for _, v := range report.Violations {
			log.Printf("%s line %d: %s", v.Category, v.Line, v.Message)
		}
	}
*/
package validator
