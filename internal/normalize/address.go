package normalize

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mikey/thread-triage/internal/core"
)

var (
	angleRe         = regexp.MustCompile(`<[^>]*>`)
	wrapperSuffixRe = regexp.MustCompile(`\s*/[A-Za-z].*$`)
	looseEmailRe    = regexp.MustCompile(`[A-Za-z0-9._%+'\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)+`)
	spaceRe         = regexp.MustCompile(`\s+`)

	// Notes style internal addresses: "Name/Org/Company@DOMAIN"
	internalAddrRe = regexp.MustCompile(`([^<>",@]+)@([A-Za-z0-9\-]+)\b`)
)

// ParseAddressList parses a comma separated address header. It never fails:
// unparseable entries keep whatever display name can be recovered and an empty email.
func ParseAddressList(value string) []core.Participant {
	var out []core.Participant
	for _, part := range splitAddressList(value) {
		if p, ok := parseAddress(part); ok {
			out = append(out, p)
		}
	}
	return out
}

func parseAddress(part string) (core.Participant, bool) {
	if strings.TrimSpace(part) == "" {
		return core.Participant{}, false
	}

	if addr, err := mail.ParseAddress(part); err == nil {
		return core.Participant{
			Name:  CleanName(addr.Name),
			Email: normalizeEmail(addr.Address),
		}, true
	}

	// Heuristic fallback for provider artifacts and broken syntax
	p := core.Participant{}
	if m := looseEmailRe.FindString(part); m != "" {
		p.Email = normalizeEmail(m)
		part = strings.Replace(part, m, "", 1)
	} else if m := internalAddrRe.FindStringSubmatch(part); m != nil {
		p.Email = normalizeEmail(strings.TrimSpace(m[1]) + "@" + m[2])
	}
	p.Name = CleanName(part)
	if strings.Contains(p.Name, "@") {
		p.Name = ""
	}
	if p.Name == "" && p.Email == "" {
		return p, false
	}
	return p, true
}

// CleanName strips angle-bracket addresses, provider wrapper suffixes and quotes from a display name
func CleanName(name string) string {
	name = angleRe.ReplaceAllString(name, "")
	name = wrapperSuffixRe.ReplaceAllString(name, "")
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	name = strings.Trim(strings.TrimSpace(name), `"' `)
	name = spaceRe.ReplaceAllString(name, " ")
	return norm.NFKC.String(strings.TrimSpace(name))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(email), "<>"))
}

// splitAddressList splits on commas outside quotes and angle brackets
func splitAddressList(value string) []string {
	var parts []string
	var cur strings.Builder
	inQuote, depth := false, 0

	for _, r := range value {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '<' && !inQuote:
			depth++
		case r == '>' && !inQuote && depth > 0:
			depth--
		case r == ',' && !inQuote && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, cur.String())
	}
	return parts
}
