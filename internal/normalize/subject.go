package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var replyPrefixRe = regexp.MustCompile(`^(?:re|fwd|fw)\s*:\s*`)

// NormalizeSubject lowercases a subject, strips at most one leading reply or
// forward prefix and collapses whitespace
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFKC.String(subject)))
	s = replyPrefixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
