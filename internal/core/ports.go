package core

import (
	"context"
	"time"
)

// ThreadStore defines the interface for persisting threads.
// Lookups return ErrThreadNotFound when nothing matches; when several threads
// match, the one with the most recent LastUpdated wins.
type ThreadStore interface {
	// FindByMessageID returns the thread containing a message with the given id
	FindByMessageID(ctx context.Context, messageID string) (*Thread, error)

	// FindByAnyReference returns the thread containing a message whose id is in ids
	FindByAnyReference(ctx context.Context, ids []string) (*Thread, error)

	// FindByReferrer returns the thread containing a message whose in-reply-to
	// or references mention any of ids
	FindByReferrer(ctx context.Context, ids []string) (*Thread, error)

	// FindBySubjectWithParticipantOverlap returns the thread with the given normalized
	// subject sharing at least one participant email
	FindBySubjectWithParticipantOverlap(ctx context.Context, normalizedSubject string, emails []string) (*Thread, error)

	// FindAllLinked returns every thread that contains or references any of ids, oldest first
	FindAllLinked(ctx context.Context, ids []string) ([]*Thread, error)

	// Create stores a new thread and returns its id
	Create(ctx context.Context, thread *Thread) (string, error)

	// Append adds a message to the end of a thread and sets its last update time
	Append(ctx context.Context, threadID string, ref MessageRef, at time.Time) error

	// Get returns a thread by id
	Get(ctx context.Context, threadID string) (*Thread, error)

	// List returns up to limit threads, most recently updated first when byRecency
	// is set, otherwise oldest created first. A limit <= 0 means no limit.
	List(ctx context.Context, limit int, byRecency bool) ([]*Thread, error)

	// UpdateSummary sets the summary of a thread
	UpdateSummary(ctx context.Context, threadID string, summary string) error

	// UpdatePriority sets the priority of a thread
	UpdatePriority(ctx context.Context, threadID string, priority Priority) error

	// Merge moves every message of fromID onto the end of intoID and removes fromID
	Merge(ctx context.Context, intoID, fromID string) error

	// Close releases the underlying resources
	Close() error
}

// Token is a word or punctuation mark in analysed text
type Token struct {
	Text string
	// Tag is a Penn Treebank part-of-speech tag, empty when the tagger has none
	Tag string
	// Lemma is the normalized word form used for keyword matching
	Lemma string
	// Start and End are byte offsets into the analysed text
	Start int
	End   int
}

// Sentence is a span of tokens
type Sentence struct {
	Text string
	// First and Last are token indexes, Last exclusive
	First int
	Last  int
}

// Analysis is the result of running a Tagger over text
type Analysis struct {
	Tokens    []Token
	Sentences []Sentence
	// Entities holds tagger-recognized PERSON and ORG mentions
	Entities []Entity
}

// Tagger segments text into sentences and tokens and recognizes named entities
type Tagger interface {
	// Analyze tokenizes, tags and segments text
	Analyze(ctx context.Context, text string) (*Analysis, error)

	// Lemma returns the normalized form of a single word
	Lemma(word string) string

	// Name returns the tagger name
	Name() string
}

// SentimentScorer produces a compound sentiment score in [-1, 1]
type SentimentScorer interface {
	Compound(ctx context.Context, text string) (float64, error)
}

// PriorityClassifier assigns a priority label to a block of text
type PriorityClassifier interface {
	Classify(ctx context.Context, text string) (Priority, error)
	Name() string
}

// Summarizer produces a short summary of a thread's messages
type Summarizer interface {
	Summarize(ctx context.Context, messages []MessageRef) (string, error)
}

// Clock returns the current time
type Clock func() time.Time
