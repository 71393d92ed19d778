package main

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var deniedChars = regexp.MustCompile("[<>{}\\[\\]()\"'`!@#$%^&*+=]")

// ValidateQuery returns q unchanged when it is safe to hand to the search
// provider and the filesystem. Rules are applied in order; the first one
// that fails wins.
func ValidateQuery(q string) (string, error) {
	if strings.TrimSpace(q) == "" {
		return "", &ValidationError{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return "", &ValidationError{Reason: ReasonTooLong}
	}
	// Path traversal.
	if strings.Contains(q, "..") || strings.Contains(q, "/") {
		return "", &ValidationError{Reason: ReasonInvalid}
	}
	if deniedChars.MatchString(q) {
		return "", &ValidationError{Reason: ReasonInvalidChars}
	}
	return q, nil
}
