package priority

import "github.com/mikey/thread-triage/internal/core"

// Label thresholds
const (
	HighThreshold   = 7
	MediumThreshold = 3
)

// Signal weights
const (
	highWeight       = 4
	mediumWeight     = 2
	lowWeight        = 1
	imperativeWeight = 2
	modalWeight      = 1
	deadlineBonus    = 2
	nearDateBonus    = 3
	midDateBonus     = 1
)

// Tables holds the word lists and windows used by the Scorer. Entries are
// lowercase; multi-word entries are matched as phrases.
type Tables struct {
	High            []string
	Medium          []string
	Low             []string
	ModalPhrases    []string
	SofteningWords  []string
	DeadlineWords   []string
	ImperativeVerbs []string

	// LookaheadDays bounds the dates considered for proximity
	LookaheadDays int
	// NearDays and MidDays are the inclusive upper bounds of the +3 and +1 tiers
	NearDays int
	MidDays  int
	// DeadlineWindow is the maximum token distance between a deadline word and a date
	DeadlineWindow int
}

// DefaultTables returns the reference scoring tables
func DefaultTables() Tables {
	return Tables{
		High: []string{
			"urgent", "asap", "immediately", "critical", "deadline", "submit",
			"important", "overdue", "emergency",
			"action required", "as soon as possible", "time sensitive",
		},
		Medium: []string{
			"update", "review", "schedule", "meeting", "reminder", "confirm", "feedback",
			"follow up", "check in",
		},
		Low: []string{
			"newsletter", "thanks", "thank", "fyi", "invitation", "unsubscribe", "webinar", "digest",
			"for your information",
		},
		ModalPhrases:   []string{"must", "should", "need to", "have to", "required to", "ought to", "please", "kindly"},
		SofteningWords: []string{"please", "just", "kindly"},
		DeadlineWords:  []string{"deadline", "due", "submit"},
		ImperativeVerbs: []string{
			"submit", "send", "review", "call", "reply", "respond", "confirm", "complete",
			"finish", "sign", "approve", "update", "check", "let", "make", "get", "take",
			"forward", "schedule", "prepare", "provide", "fix", "share", "read", "note",
			"remember", "ensure", "contact", "book", "join", "attend", "fill", "return", "pay",
			"email", "bring", "do", "don't", "stop", "start", "finalize", "file",
		},
		LookaheadDays:  30,
		NearDays:       7,
		MidDays:        21,
		DeadlineWindow: 6,
	}
}

// Label maps a final score onto a priority label
func Label(score int) core.Priority {
	switch {
	case score >= HighThreshold:
		return core.PriorityHigh
	case score >= MediumThreshold:
		return core.PriorityMedium
	default:
		return core.PriorityLow
	}
}
