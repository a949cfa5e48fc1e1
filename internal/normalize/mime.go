package normalize

import (
	"errors"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

var (
	htmlTagRe = regexp.MustCompile(`(?s)<(?:script|style)[^>]*>.*?</(?:script|style)>|<[^>]+>`)

	errNoTextPart = errors.New("no text part found")
)

// extractText decodes a MIME message and returns its text/plain content,
// or tag-stripped text/html content when no plain part exists
func extractText(headerBlock, body string) (string, error) {
	mr, err := mail.CreateReader(strings.NewReader(headerBlock + "\n\n" + body))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", err
	}
	defer mr.Close()

	var plain, rich []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if (err != nil && !message.IsUnknownCharset(err)) || part == nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		data, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"), contentType == "":
			plain = append(plain, string(data))
		case strings.HasPrefix(contentType, "text/html"):
			rich = append(rich, stripHTML(string(data)))
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n"), nil
	}
	if len(rich) > 0 {
		return strings.Join(rich, "\n\n"), nil
	}
	return "", errNoTextPart
}

func stripHTML(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n").Replace(s)
	return html.UnescapeString(htmlTagRe.ReplaceAllString(s, " "))
}
