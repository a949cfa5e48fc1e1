package nlp

import (
	"context"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/textseg"
)

// BasicTagger segments text with rules and stems tokens. It produces no
// part-of-speech tags and no named entities.
type BasicTagger struct{}

// NewBasicTagger creates a new BasicTagger
func NewBasicTagger() *BasicTagger {
	return &BasicTagger{}
}

// Analyze tokenizes and segments text
func (t *BasicTagger) Analyze(ctx context.Context, text string) (*core.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := textseg.Tokenize(text)
	for i := range tokens {
		tokens[i].Lemma = Stem(tokens[i].Text)
	}
	return &core.Analysis{
		Tokens:    tokens,
		Sentences: textseg.Sentences(text, tokens),
	}, nil
}

// Lemma returns the English snowball stem of a word
func (t *BasicTagger) Lemma(word string) string {
	return Stem(word)
}

// Name returns the tagger name
func (t *BasicTagger) Name() string {
	return "basic"
}
