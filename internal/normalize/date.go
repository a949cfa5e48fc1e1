package normalize

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var (
	trailingCommentRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

	dateLayouts = []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04 -0700",
		"2006-01-02 15:04:05",
	}
)

// ParseDate parses an RFC 5322 date with a few lenient fallbacks
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}

	stripped := trailingCommentRe.ReplaceAllString(value, "")
	if t, err := mail.ParseDate(stripped); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, stripped); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
