package core

import (
	"time"
)

// Participant represents a single address from a From/To/Cc/Bcc header
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NormalizedMessage represents a raw email after header and body normalization
type NormalizedMessage struct {
	MessageID         string
	From              Participant
	To                []Participant
	Cc                []Participant
	Bcc               []Participant
	Subject           string
	NormalizedSubject string
	Timestamp         time.Time
	// TimestampParsed is false when Timestamp was substituted with the processing time
	TimestampParsed bool
	CleanBody       string
	InReplyTo       string
	References      []string
}

// ParticipantEmails returns the set of non-empty addresses across From/To/Cc/Bcc
func (m *NormalizedMessage) ParticipantEmails() []string {
	return uniqueEmails(append(append(append([]Participant{m.From}, m.To...), m.Cc...), m.Bcc...))
}

// LinkedIDs returns the message ids this message points at: in-reply-to first, then references
func (m *NormalizedMessage) LinkedIDs() []string {
	ids := make([]string, 0, len(m.References)+1)
	seen := make(map[string]bool)
	if m.InReplyTo != "" {
		ids = append(ids, m.InReplyTo)
		seen[m.InReplyTo] = true
	}
	for _, ref := range m.References {
		if ref != "" && !seen[ref] {
			ids = append(ids, ref)
			seen[ref] = true
		}
	}
	return ids
}

// Priority is a priority label
type Priority string

const (
	// PriorityUnset marks a thread that has not been prioritized yet
	PriorityUnset  Priority = ""
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities for listings: High, Medium, Low, then unset
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ParsePriority maps a label to a Priority, reporting whether it was recognized
func ParsePriority(label string) (Priority, bool) {
	switch label {
	case "High", "high", "HIGH":
		return PriorityHigh, true
	case "Medium", "medium", "MEDIUM":
		return PriorityMedium, true
	case "Low", "low", "LOW":
		return PriorityLow, true
	default:
		return PriorityUnset, false
	}
}

// MessageRef is the record of one message kept inside a thread
type MessageRef struct {
	MessageID  string        `json:"message_id"`
	InReplyTo  string        `json:"in_reply_to,omitempty"`
	References []string      `json:"references,omitempty"`
	From       Participant   `json:"from"`
	To         []Participant `json:"to,omitempty"`
	Cc         []Participant `json:"cc,omitempty"`
	Bcc        []Participant `json:"bcc,omitempty"`
	Subject    string        `json:"subject"`
	Timestamp  time.Time     `json:"timestamp"`
	Excerpt    string        `json:"excerpt"`
	Priority   Priority      `json:"priority,omitempty"`
}

// Participants returns every address on the message in header order
func (r *MessageRef) Participants() []Participant {
	out := make([]Participant, 0, 1+len(r.To)+len(r.Cc)+len(r.Bcc))
	out = append(out, r.From)
	out = append(out, r.To...)
	out = append(out, r.Cc...)
	out = append(out, r.Bcc...)
	return out
}

// ParticipantEmails returns the set of non-empty addresses on the message
func (r *MessageRef) ParticipantEmails() []string {
	return uniqueEmails(r.Participants())
}

// LinkedIDs returns in-reply-to and references without duplicates
func (r *MessageRef) LinkedIDs() []string {
	m := NormalizedMessage{InReplyTo: r.InReplyTo, References: r.References}
	return m.LinkedIDs()
}

// Thread represents a conversation owned by a ThreadStore
type Thread struct {
	ID                string
	Subject           string
	NormalizedSubject string
	CreatedAt         time.Time
	LastUpdated       time.Time
	// Messages are kept in arrival order
	Messages []MessageRef
	Priority Priority
	Summary  string
}

// ParticipantEmails returns the union of participant addresses across the thread
func (t *Thread) ParticipantEmails() []string {
	var all []Participant
	for i := range t.Messages {
		all = append(all, t.Messages[i].Participants()...)
	}
	return uniqueEmails(all)
}

// ContainsMessage reports whether a message with the given id is part of the thread
func (t *Thread) ContainsMessage(messageID string) bool {
	if messageID == "" {
		return false
	}
	for i := range t.Messages {
		if t.Messages[i].MessageID == messageID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the thread
func (t *Thread) Clone() *Thread {
	c := *t
	c.Messages = make([]MessageRef, len(t.Messages))
	for i, m := range t.Messages {
		m.References = append([]string(nil), m.References...)
		m.To = append([]Participant(nil), m.To...)
		m.Cc = append([]Participant(nil), m.Cc...)
		m.Bcc = append([]Participant(nil), m.Bcc...)
		c.Messages[i] = m
	}
	return &c
}

// EntityKind is the semantic kind of an extracted entity
type EntityKind string

const (
	EntityDate   EntityKind = "DATE"
	EntityTime   EntityKind = "TIME"
	EntityMoney  EntityKind = "MONEY"
	EntityOrg    EntityKind = "ORG"
	EntityPerson EntityKind = "PERSON"
)

// Entity is a typed mention found in message text
type Entity struct {
	Text string
	Kind EntityKind
	// Start and End are byte offsets into the analysed text
	Start int
	End   int
	// Resolved is set for DATE entities that map to a calendar day
	Resolved *time.Time
}

// ScoringMode records which signals contributed to a ScoreBreakdown
type ScoringMode string

const (
	ScoringFull        ScoringMode = "full"
	ScoringNoSentiment ScoringMode = "no-sentiment"
	ScoringKeywordOnly ScoringMode = "keyword-only"
)

// ScoreBreakdown holds the per-signal contributions of a priority score
type ScoreBreakdown struct {
	HighCount   int
	MediumCount int
	LowCount    int
	// KeywordHigh, KeywordMedium and KeywordLow are weighted contributions; KeywordLow is <= 0
	KeywordHigh   int
	KeywordMedium int
	KeywordLow    int
	Imperative    int
	Modal         int
	Sentiment     int
	DateProximity int
	// DeadlineNearDate is the part of DateProximity earned by deadline words next to dates
	DeadlineNearDate int
	Score            int
	Label            Priority
	Mode             ScoringMode
	Compound         float64
	Entities         []Entity
}

// KeywordContribution returns the combined keyword signal
func (b ScoreBreakdown) KeywordContribution() int {
	return b.KeywordHigh + b.KeywordMedium + b.KeywordLow
}

func uniqueEmails(ps []Participant) []string {
	seen := make(map[string]bool, len(ps))
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.Email == "" || seen[p.Email] {
			continue
		}
		seen[p.Email] = true
		out = append(out, p.Email)
	}
	return out
}
