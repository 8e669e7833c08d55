package parser

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// fallbackDateLayouts covers the Date header shapes seen in the wild that
// net/mail rejects.
var fallbackDateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, _2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 -0700 2006",
	"Monday, 2 January 2006 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

var trailingCommentRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// ParseDate parses a Date header leniently. An empty or unparsable value
// yields nil instead of an error.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if t, err := mail.ParseDate(value); err == nil {
		return &t
	}

	candidates := []string{value}
	if stripped := trailingCommentRe.ReplaceAllString(value, ""); stripped != value {
		candidates = append(candidates, stripped)
	}

	for _, candidate := range candidates {
		for _, layout := range fallbackDateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return &t
			}
		}
	}

	return nil
}
