package main

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantReason string
	}{
		{name: "plain words", query: "lofi beats"},
		{name: "accents allowed", query: "canção do mar"},
		{name: "exactly 100 chars", query: strings.Repeat("a", 100)},
		{name: "100 multibyte runes", query: strings.Repeat("é", 100)},
		{name: "single dot and dash", query: "mr. brightside - the killers"},
		{name: "empty", query: "", wantReason: ReasonEmpty},
		{name: "only spaces", query: "   ", wantReason: ReasonEmpty},
		{name: "101 chars", query: strings.Repeat("a", 101), wantReason: ReasonTooLong},
		{name: "too long wins over slash", query: strings.Repeat("/", 101), wantReason: ReasonTooLong},
		{name: "dot dot", query: "foo..bar", wantReason: ReasonInvalid},
		{name: "slash", query: "foo/bar", wantReason: ReasonInvalid},
		{name: "traversal wins over denylist", query: "../etc(passwd)", wantReason: ReasonInvalid},
		{name: "angle bracket", query: "<script>", wantReason: ReasonInvalidChars},
		{name: "backtick", query: "a`b", wantReason: ReasonInvalidChars},
		{name: "quote", query: `say "hi"`, wantReason: ReasonInvalidChars},
		{name: "apostrophe", query: "don't stop", wantReason: ReasonInvalidChars},
		{name: "equals", query: "a=b", wantReason: ReasonInvalidChars},
		{name: "square bracket", query: "a]", wantReason: ReasonInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateQuery(tt.query)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("ValidateQuery(%q) unexpected error: %v", tt.query, err)
				}
				if got != tt.query {
					t.Errorf("ValidateQuery(%q) = %q, want input unchanged", tt.query, got)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateQuery(%q) error = %v, want *ValidationError", tt.query, err)
			}
			if ve.Reason != tt.wantReason {
				t.Errorf("ValidateQuery(%q) reason = %q, want %q", tt.query, ve.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateQuery_EveryDeniedCharacter(t *testing.T) {
	for _, c := range "<>{}[]()\"'`!@#$%^&*+=" {
		q := "song " + string(c)
		_, err := ValidateQuery(q)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != ReasonInvalidChars {
			t.Errorf("ValidateQuery(%q) = %v, want invalid characters", q, err)
		}
	}
}
