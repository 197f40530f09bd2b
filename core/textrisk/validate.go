// Package textrisk classifies free-text input in real time, flagging
// potentially dangerous content before it reaches submission handling.
// Validation never rewrites the value; see Sanitize for the separate,
// idempotent cleanup transform.
package textrisk

import (
	"fmt"
	"regexp"
)

// Level is a coarse classification of how likely an input is to be
// malicious or malformed.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const DefaultMaxLength = 1000

// markup/script-injection heuristics
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)<\s*/?\s*(iframe|object|embed|form)`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)expression\s*\(`),
}

// alphaNumRegex mirrors the platform's structured-field policy:
// word characters and whitespace only.
var alphaNumRegex = regexp.MustCompile(`^[\w\s]*$`)

type (
	// Options controls the per-field validation policy.
	Options struct {
		MaxLength           int  // 0 means DefaultMaxLength
		AllowHTML           bool // markup is an error unless set
		RequireAlphanumeric bool // name/school/grade-style fields
	}

	// Assessment is the outcome of validating one input value.
	Assessment struct {
		Valid  bool     `json:"is_valid"`
		Errors []string `json:"errors,omitempty"`
		Risk   Level    `json:"risk_level"`
	}
)

// Validate classifies value for the named field. It is a pure function of its
// arguments: no hidden state, identical calls yield identical assessments.
//
// Risk escalation: any recognized injection pattern is high, regardless of
// every other option; length beyond 80% of the budget or an alphanumeric
// violation without markup is medium; anything else is low.
func Validate(value, field string, opts Options) Assessment {
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	var errs []string
	injected := containsInjection(value)

	if len(value) > maxLen {
		errs = append(errs, fmt.Sprintf("%s must not exceed %d characters", field, maxLen))
	}
	if injected && !opts.AllowHTML {
		errs = append(errs, fmt.Sprintf("%s contains potentially dangerous content", field))
	}
	alphaNumViolated := opts.RequireAlphanumeric && !alphaNumRegex.MatchString(value)
	if alphaNumViolated {
		errs = append(errs, fmt.Sprintf("%s may only contain letters, numbers and spaces", field))
	}

	risk := LevelLow
	switch {
	case injected:
		risk = LevelHigh
	case len(value)*10 > maxLen*8, alphaNumViolated:
		risk = LevelMedium
	}

	return Assessment{
		Valid:  len(errs) == 0,
		Errors: errs,
		Risk:   risk,
	}
}

func containsInjection(value string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
