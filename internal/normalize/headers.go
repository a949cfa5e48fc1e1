package normalize

import (
	"bufio"
	"mime"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	gmtextproto "github.com/emersion/go-message/textproto"
)

// Headers is a case-insensitive multi-valued header map
type Headers map[string][]string

// Add appends a value to a header
func (h Headers) Add(key, value string) {
	k := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))
	h[k] = append(h[k], value)
}

// Get returns the first value of a header or an empty string
func (h Headers) Get(key string) string {
	if values := h[textproto.CanonicalMIMEHeaderKey(key)]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (h Headers) isMIME() bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	cte := strings.ToLower(h.Get("Content-Transfer-Encoding"))
	return strings.HasPrefix(ct, "multipart/") ||
		strings.HasPrefix(ct, "text/html") ||
		cte == "base64" || cte == "quoted-printable"
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// decodeWord decodes RFC 2047 encoded words, returning the input on failure
func decodeWord(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// parseHeaderBlock reads a header block, falling back to a line scanner when
// the block is not well-formed
func parseHeaderBlock(block string) Headers {
	th, err := gmtextproto.ReadHeader(bufio.NewReader(strings.NewReader(block + "\n\n")))
	if err != nil {
		return scanHeaderLines(block)
	}

	h := Headers{}
	mh := message.Header{Header: th}
	fields := mh.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = decodeWord(fields.Value())
		}
		h.Add(fields.Key(), value)
	}
	return h
}

// scanHeaderLines parses "Key: value" lines with folded continuations, skipping
// lines that do not look like headers
func scanHeaderLines(block string) Headers {
	h := Headers{}
	var key string
	var value strings.Builder

	flush := func() {
		if key != "" {
			h.Add(key, decodeWord(strings.TrimSpace(value.String())))
		}
		key = ""
		value.Reset()
	}

	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && key != "" {
			value.WriteByte(' ')
			value.WriteString(strings.TrimSpace(line))
			continue
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		flush()
		key = line[:i]
		value.WriteString(line[i+1:])
	}
	flush()

	return h
}
