package entity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/thread-triage/internal/core"
)

// resolveFunc maps a regexp submatch to a calendar day relative to today
type resolveFunc func(m []string, today time.Time) (time.Time, bool)

type rule struct {
	kind    core.EntityKind
	re      *regexp.Regexp
	resolve resolveFunc
}

// rules cover the DATE forms the date parser has no rule for, plus TIME,
// MONEY and ORG
var rules = []rule{
	{core.EntityDate, regexp.MustCompile(`(?i)\bend\s+of\s+(?:the\s+)?(day|week|month)\b|\b(eod|eow|eom)\b`), resolveEndOf},
	{core.EntityDate, regexp.MustCompile(`(?i)\b(next|this|coming)\s+(week|month)\b`), resolvePeriod},
	{core.EntityDate, regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), resolveISO},
	{core.EntityDate, regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`), resolveNumeric},
	{core.EntityDate, regexp.MustCompile(`(?i)\bthe\s+(\d{1,2})(?:st|nd|rd|th)\b`), resolveOrdinal},
	{core.EntityDate, regexp.MustCompile(`(?i)\b(?:q[1-4](?:\s+\d{4})?|(?:this|next|last)\s+quarter|fiscal\s+year)\b`), nil},

	{core.EntityTime, regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm|a\.m\.|p\.m\.)`), nil},
	{core.EntityTime, regexp.MustCompile(`\b\d{1,2}:\d{2}\b`), nil},
	{core.EntityTime, regexp.MustCompile(`(?i)\b(?:noon|midnight)\b`), nil},

	{core.EntityMoney, regexp.MustCompile(`(?i)[$€£]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:k|m|bn|thousand|million|billion)\b)?`), nil},
	{core.EntityMoney, regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s?(?:usd|eur|gbp|dollars|euros|pounds)\b`), nil},

	{core.EntityOrg, regexp.MustCompile(`\b(?:[A-Z][\w&]*\s+){1,4}(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|Company|Group|Bank|University)\b\.?`), nil},
}

// Recognize returns the rule-based DATE, TIME, MONEY and ORG mentions in text,
// ordered by position. DATE entities are resolved relative to now.
func Recognize(text string, now time.Time) []core.Entity {
	today := midnight(now)

	found := recognizeDates(text, now)
	for _, r := range rules {
		for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
			e := core.Entity{
				Text:  text[loc[0]:loc[1]],
				Kind:  r.kind,
				Start: loc[0],
				End:   loc[1],
			}
			if r.resolve != nil {
				if day, ok := r.resolve(submatches(text, loc), today); ok {
					e.Resolved = &day
				}
			}
			found = append(found, e)
		}
	}

	return dropOverlaps(found)
}

// Resolve returns the calendar day named by the first date expression in text
func Resolve(text string, now time.Time) (time.Time, bool) {
	for _, e := range Recognize(text, now) {
		if e.Kind == core.EntityDate && e.Resolved != nil {
			return *e.Resolved, true
		}
	}
	return time.Time{}, false
}

func submatches(text string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}

// dropOverlaps keeps the earliest, then longest, of overlapping entities
func dropOverlaps(entities []core.Entity) []core.Entity {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End > entities[j].End
	})

	out := entities[:0]
	end := -1
	for _, e := range entities {
		if e.Start < end {
			continue
		}
		out = append(out, e)
		end = e.End
	}
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysUntil(today time.Time, wd time.Weekday) int {
	return (int(wd) - int(today.Weekday()) + 7) % 7
}

func resolveEndOf(m []string, today time.Time) (time.Time, bool) {
	unit := strings.ToLower(m[1] + m[2])
	switch unit {
	case "day", "eod":
		return today, true
	case "week", "eow":
		return today.AddDate(0, 0, daysUntil(today, time.Friday)), true
	case "month", "eom":
		return endOfMonth(today), true
	}
	return time.Time{}, false
}

func resolvePeriod(m []string, today time.Time) (time.Time, bool) {
	modifier, unit := strings.ToLower(m[1]), strings.ToLower(m[2])
	switch {
	case unit == "week" && modifier == "next":
		return today.AddDate(0, 0, 7), true
	case unit == "week":
		return today.AddDate(0, 0, daysUntil(today, time.Friday)), true
	case unit == "month" && modifier == "next":
		return time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location()), true
	default:
		return endOfMonth(today), true
	}
}

func resolveISO(m []string, today time.Time) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", m[0], today.Location())
	return t, err == nil
}

// resolveNumeric reads month-first numeric dates, swapping when the first
// number cannot be a month
func resolveNumeric(m []string, today time.Time) (time.Time, bool) {
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month > 12 && day <= 12 {
		month, day = day, month
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	return calendarDate(today, year, month, strconv.Itoa(day))
}

func resolveOrdinal(m []string, today time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	t, ok := validDate(today.Year(), int(today.Month()), day, today.Location())
	if ok && t.Before(today) {
		return validDate(today.Year(), int(today.Month())+1, day, today.Location())
	}
	return t, ok
}

// calendarDate builds a date, rolling a year-less date that already passed into next year
func calendarDate(today time.Time, yearText string, month int, dayText string) (time.Time, bool) {
	day, err := strconv.Atoi(dayText)
	if err != nil || month == 0 {
		return time.Time{}, false
	}
	if yearText != "" {
		year, err := strconv.Atoi(yearText)
		if err != nil {
			return time.Time{}, false
		}
		return validDate(year, month, day, today.Location())
	}

	t, ok := validDate(today.Year(), month, day, today.Location())
	if ok && t.Before(today) {
		return validDate(today.Year()+1, month, day, today.Location())
	}
	if !ok {
		// Feb 29 in a non-leap year
		return validDate(today.Year()+1, month, day, today.Location())
	}
	return t, ok
}

func validDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month > 12 {
		year += (month - 1) / 12
		month = (month-1)%12 + 1
	}
	if month < 1 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func endOfMonth(today time.Time) time.Time {
	return time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location())
}
