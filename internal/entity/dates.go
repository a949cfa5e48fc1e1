package entity

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	whenrules "github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"

	"github.com/mikey/thread-triage/internal/core"
)

// dateParser resolves weekday, casual day, "in N units", "N units ago" and
// month-day mentions. Time-of-day rules are left to the TIME patterns.
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	p := when.New(&whenrules.Options{Distance: 0, MatchByOrder: true})
	p.Add(
		en.Weekday(whenrules.Override),
		en.CasualDate(whenrules.Override),
		en.Deadline(whenrules.Override),
		en.PastTime(whenrules.Override),
		en.ExactMonthDate(whenrules.Override),
	)
	return p
}

var (
	monthNameRe  = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	dayNumberRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)
	yearSuffixRe = regexp.MustCompile(`^,?\s*(\d{4})\b`)
)

// ambiguousWords are date words that are usually ordinary English when
// lowercase ("you may", "sun", "march on")
var ambiguousWords = map[string]bool{
	"may": true, "march": true, "mar": true, "sun": true, "sat": true, "mon": true,
	"tue": true, "wed": true, "thu": true, "thur": true, "fri": true, "jan": true,
	"feb": true, "apr": true, "jun": true, "jul": true, "aug": true, "sep": true,
	"sept": true, "oct": true, "nov": true, "dec": true,
}

// recognizeDates returns the DATE mentions found by the natural language
// date parser, resolved to a calendar day relative to now
func recognizeDates(text string, now time.Time) []core.Entity {
	today := midnight(now)
	lower := asciiLower(text)

	var found []core.Entity
	for offset := 0; offset < len(text); {
		r, err := dateParser.Parse(lower[offset:], now)
		if err != nil || r == nil {
			break
		}
		start := offset + r.Index
		end := start + len(strings.TrimRight(r.Text, " \t\r\n"))
		if end <= start {
			offset = start + 1
			continue
		}
		offset = end

		mention := text[start:end]
		if skipMention(mention) {
			continue
		}

		day := midnight(r.Time)
		if monthNameRe.MatchString(mention) {
			var ok bool
			if m := yearSuffixRe.FindStringSubmatch(text[end:]); m != nil {
				end += len(m[0])
				offset = end
				mention = text[start:end]
				year, _ := strconv.Atoi(m[1])
				day, ok = validDate(year, int(day.Month()), day.Day(), today.Location())
			} else {
				day, ok = preferFuture(day, today)
			}
			if ok && !sameDayNumber(mention, day) {
				ok = false
			}
			e := core.Entity{Text: mention, Kind: core.EntityDate, Start: start, End: end}
			if ok {
				e.Resolved = &day
			}
			found = append(found, e)
			continue
		}

		found = append(found, core.Entity{
			Text:     mention,
			Kind:     core.EntityDate,
			Start:    start,
			End:      end,
			Resolved: &day,
		})
	}
	return found
}

// skipMention drops "now" and lone ambiguous words that are not capitalized.
// A lone "may" is always dropped.
func skipMention(mention string) bool {
	lower := strings.ToLower(strings.TrimSpace(mention))
	if lower == "now" {
		return true
	}
	if !ambiguousWords[lower] {
		return false
	}
	return lower == "may" || mention[0] >= 'a' && mention[0] <= 'z'
}

// preferFuture rolls a year-less month-day that already passed into next year
func preferFuture(day, today time.Time) (time.Time, bool) {
	if !day.Before(today) {
		return day, true
	}
	return validDate(day.Year()+1, int(day.Month()), day.Day(), today.Location())
}

// sameDayNumber reports whether a numeric day in the mention survived date
// normalization, rejecting mentions like "February 30"
func sameDayNumber(mention string, day time.Time) bool {
	m := dayNumberRe.FindStringSubmatch(mention)
	if m == nil {
		return true
	}
	n, _ := strconv.Atoi(m[1])
	return n == day.Day()
}

// asciiLower lowercases ASCII letters only, keeping byte offsets intact
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
