package normalize

import (
	"regexp"
	"strings"
)

var (
	quotedLineRe     = regexp.MustCompile(`^\s*>`)
	forwardBannerRe  = regexp.MustCompile(`(?i)^\s*-{2,}\s*(?:original|forwarded)\s+message\s*-{2,}\s*$`)
	forwardHeaderRe  = regexp.MustCompile(`(?i)^\s*(?:from|sent|to|cc|bcc|subject|date)\s*:`)
	dashLineRe       = regexp.MustCompile(`^\s*-{2,}\s*$`)
	salutationLineRe = regexp.MustCompile(`(?i)^\s*(?:thanks|thank you|many thanks|regards|best regards|kind regards|warm regards|best|sincerely|cheers)\s*[.,!]?\s*$`)

	urlRe        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	emailRe      = regexp.MustCompile(`\S+@\S+`)
	phoneRe      = regexp.MustCompile(`\+?\d[\d \t().\-]{6,}\d`)
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}.,!?'\s]`)
)

// CleanBody reduces a message body to plain prose. The steps run in a fixed
// order and the result is lossy.
func CleanBody(body string) string {
	lines := dropQuotedAndForwarded(strings.Split(body, "\n"))
	lines = truncateSignature(lines)

	text := strings.Join(lines, "\n")
	text = urlRe.ReplaceAllString(text, " ")
	text = emailRe.ReplaceAllString(text, " ")
	text = phoneRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// dropQuotedAndForwarded removes quoted reply lines, forward banners and the
// header lines that directly follow a banner
func dropQuotedAndForwarded(lines []string) []string {
	out := make([]string, 0, len(lines))
	inForwardHeaders := false

	for _, line := range lines {
		if quotedLineRe.MatchString(line) {
			continue
		}
		if forwardBannerRe.MatchString(line) {
			inForwardHeaders = true
			continue
		}
		if inForwardHeaders {
			if forwardHeaderRe.MatchString(line) {
				continue
			}
			if strings.TrimSpace(line) != "" {
				inForwardHeaders = false
			}
		}
		out = append(out, line)
	}
	return out
}

// truncateSignature cuts the body at a dash-only line, or at a closing
// salutation that opens a paragraph after some content
func truncateSignature(lines []string) []string {
	seenContent := false
	for i, line := range lines {
		if dashLineRe.MatchString(line) {
			return lines[:i]
		}
		opensParagraph := i == 0 || strings.TrimSpace(lines[i-1]) == ""
		if seenContent && opensParagraph && salutationLineRe.MatchString(line) {
			return lines[:i]
		}
		if strings.TrimSpace(line) != "" {
			seenContent = true
		}
	}
	return lines
}
