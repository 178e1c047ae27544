package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Injection patterns: SQL/template fragments that should never appear in a
// user query.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`\$\{.*\}`),
}

const (
	minQueryLength = 3
	maxQueryLength = 500
)

// ValidateQuery checks a raw query string. Failures are ValidationErrors
// and are never retried.
func ValidateQuery(text string) error {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return NewValidationError("query", text, ErrEmptyQuery)
	}
	if utf8.RuneCountInString(trimmed) < minQueryLength {
		return NewValidationError("query", trimmed, ErrQueryTooShort)
	}
	if utf8.RuneCountInString(trimmed) > maxQueryLength {
		return NewValidationError("query", trimmed[:32]+"...", ErrQueryTooLong)
	}

	for _, pat := range injectionPatterns {
		if pat.MatchString(trimmed) {
			return NewValidationError("query", trimmed, ErrQueryInjection)
		}
	}
	return nil
}

// ValidateRecord checks an intervention record before it enters the corpus.
func ValidateRecord(rec InterventionRecord) error {
	if rec.ID == "" {
		return NewValidationError("id", rec.ID, ErrInvalidRecord)
	}
	if !ValidCategories[Category(rec.Category)] {
		return NewValidationError("category", rec.Category, ErrInvalidRecord)
	}
	if rec.Description == "" {
		return NewValidationError("description", rec.ID, ErrInvalidRecord)
	}
	if rec.SpeedMin < 0 || rec.SpeedMax < 0 || rec.SpeedMax < rec.SpeedMin {
		return NewValidationError("speed_band", rec.ID, ErrInvalidRecord)
	}
	return nil
}
