// Package normalize turns raw email text into core.NormalizedMessage values.
//
// Every step fails open: malformed headers, addresses and dates are replaced
// with documented defaults instead of returning errors.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

var headerLineRe = regexp.MustCompile(`^[!-9;-~]+:`)

// Normalizer parses raw messages into normalized messages
type Normalizer struct {
	logger *zap.Logger
	clock  core.Clock
}

// NewNormalizer creates a new Normalizer. A nil clock uses time.Now.
func NewNormalizer(logger *zap.Logger, clock core.Clock) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{
		logger: logger,
		clock:  clock,
	}
}

// Normalize parses a raw message made of a header block, a blank line and a body
func (n *Normalizer) Normalize(raw []byte) *core.NormalizedMessage {
	text := strings.ReplaceAll(strings.ToValidUTF8(string(raw), ""), "\r\n", "\n")

	headerBlock, body, ok := splitMessage(text)
	if !ok {
		n.logger.Debug("No header block found, treating input as body",
			zap.Int("size", len(raw)))
		return n.build(Headers{}, body)
	}

	headers := parseHeaderBlock(headerBlock)
	if headers.isMIME() {
		if decoded, err := extractText(headerBlock, body); err != nil {
			n.logger.Debug("Failed to decode MIME body, using raw body", zap.Error(err))
		} else {
			body = decoded
		}
	}

	return n.build(headers, body)
}

// NormalizeHeaders builds a normalized message from an already parsed header map
func (n *Normalizer) NormalizeHeaders(headers map[string][]string, body string) *core.NormalizedMessage {
	h := Headers{}
	for key, values := range headers {
		for _, v := range values {
			h.Add(key, decodeWord(v))
		}
	}
	return n.build(h, strings.ToValidUTF8(body, ""))
}

func (n *Normalizer) build(h Headers, body string) *core.NormalizedMessage {
	msg := &core.NormalizedMessage{
		MessageID:  parseMessageID(h.Get("Message-ID")),
		Subject:    strings.TrimSpace(h.Get("Subject")),
		InReplyTo:  parseMessageID(h.Get("In-Reply-To")),
		References: parseReferences(h.Get("References")),
		To:         ParseAddressList(h.Get("To")),
		Cc:         ParseAddressList(h.Get("Cc")),
		Bcc:        ParseAddressList(h.Get("Bcc")),
		CleanBody:  CleanBody(body),
	}

	if from := ParseAddressList(h.Get("From")); len(from) > 0 {
		msg.From = from[0]
	}
	msg.NormalizedSubject = NormalizeSubject(msg.Subject)

	// Provider display-name headers override parsed names
	if name := CleanName(h.Get("X-From")); name != "" {
		msg.From.Name = name
	}
	overrideNames(msg.To, h.Get("X-To"))
	overrideNames(msg.Cc, h.Get("X-cc"))
	overrideNames(msg.Bcc, h.Get("X-bcc"))

	// Fall back to processing time when the date is absent or unparseable
	if ts, ok := ParseDate(h.Get("Date")); ok {
		msg.Timestamp = ts
		msg.TimestampParsed = true
	} else {
		msg.Timestamp = n.clock()
		if h.Get("Date") != "" {
			n.logger.Debug("Unparseable date header, using processing time",
				zap.String("date", h.Get("Date")),
				zap.String("message_id", msg.MessageID))
		}
	}

	return msg
}

// splitMessage separates the header block from the body at the first blank line.
// ok is false when the input does not start with a header line.
func splitMessage(text string) (headerBlock, body string, ok bool) {
	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	if !headerLineRe.MatchString(firstLine) {
		return "", text, false
	}

	if i := strings.Index(text, "\n\n"); i >= 0 {
		return text[:i], text[i+2:], true
	}
	return text, "", true
}

var (
	bracketIDRe = regexp.MustCompile(`<([^<>\s]+)>`)
)

// parseMessageID returns the first id of a header value with angle brackets removed
func parseMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if m := bracketIDRe.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	fields := strings.Fields(value)
	return strings.Trim(fields[0], "<>")
}

// parseReferences returns the ordered, de-duplicated ids of a References header
func parseReferences(value string) []string {
	var ids []string
	if matches := bracketIDRe.FindAllStringSubmatch(value, -1); len(matches) > 0 {
		for _, m := range matches {
			ids = append(ids, m[1])
		}
	} else {
		for _, f := range strings.Fields(value) {
			if id := strings.Trim(f, "<>,"); id != "" {
				ids = append(ids, id)
			}
		}
	}

	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// overrideNames replaces display names by position from a provider name header
func overrideNames(participants []core.Participant, value string) {
	if value == "" {
		return
	}
	for i, part := range splitAddressList(value) {
		if i >= len(participants) {
			return
		}
		if name := CleanName(part); name != "" {
			participants[i].Name = name
		}
	}
}
