// Package nlp provides Tagger and SentimentScorer implementations.
package nlp

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball/english"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// ProseTagger tags text with the prose tokenizer, POS tagger, sentence
// segmenter and named-entity model
type ProseTagger struct {
	logger *zap.Logger
}

// NewProseTagger creates a new ProseTagger
func NewProseTagger(logger *zap.Logger) *ProseTagger {
	return &ProseTagger{logger: logger}
}

// Analyze tokenizes, tags and segments text
func (t *ProseTagger) Analyze(ctx context.Context, text string) (*core.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text with prose: %w", err)
	}

	tokens := alignTokens(text, doc.Tokens())
	analysis := &core.Analysis{
		Tokens:    tokens,
		Sentences: alignSentences(text, doc.Sentences(), tokens),
	}

	tags := make(map[int]string, len(tokens))
	for _, tok := range tokens {
		tags[tok.Start] = tok.Tag
	}

	cursor := 0
	for _, ent := range doc.Entities() {
		kind, ok := entityKind(ent.Label)
		if !ok {
			continue
		}
		i := strings.Index(text[cursor:], ent.Text)
		if i < 0 {
			continue
		}
		start := cursor + i
		cursor = start + len(ent.Text)
		if !plausibleName(ent.Text, tags[start]) {
			continue
		}
		analysis.Entities = append(analysis.Entities, core.Entity{
			Text:  ent.Text,
			Kind:  kind,
			Start: start,
			End:   start + len(ent.Text),
		})
	}

	t.logger.Debug("Analyzed text",
		zap.Int("tokens", len(analysis.Tokens)),
		zap.Int("sentences", len(analysis.Sentences)),
		zap.Int("entities", len(analysis.Entities)))

	return analysis, nil
}

// Lemma returns the English snowball stem of a word
func (t *ProseTagger) Lemma(word string) string {
	return Stem(word)
}

// Name returns the tagger name
func (t *ProseTagger) Name() string {
	return "prose"
}

// Stem lowercases a word and reduces it to its English snowball stem
func Stem(word string) string {
	return english.Stem(strings.ToLower(word), false)
}

func entityKind(label string) (core.EntityKind, bool) {
	switch label {
	case "PERSON":
		return core.EntityPerson, true
	case "ORG", "ORGANIZATION":
		return core.EntityOrg, true
	default:
		return "", false
	}
}

// notNames are sentence openers the NER model tends to label as people
var notNames = map[string]bool{
	"please": true, "kindly": true, "just": true, "thanks": true, "thank": true,
	"hi": true, "hello": true, "dear": true, "regards": true, "cheers": true,
}

// plausibleName rejects single-token PERSON and ORG mentions that are
// softening or greeting words, or are not title-cased proper nouns
func plausibleName(text, tag string) bool {
	if strings.ContainsAny(text, " \t") {
		return true
	}
	if notNames[strings.ToLower(text)] {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsUpper(r) {
		return false
	}
	return tag == "" || strings.HasPrefix(tag, "NNP")
}

// alignTokens locates prose tokens in the source text to recover byte offsets
func alignTokens(text string, proseTokens []prose.Token) []core.Token {
	tokens := make([]core.Token, 0, len(proseTokens))
	cursor := 0
	for _, pt := range proseTokens {
		i := strings.Index(text[cursor:], pt.Text)
		if i < 0 {
			continue
		}
		start := cursor + i
		tokens = append(tokens, core.Token{
			Text:  pt.Text,
			Tag:   pt.Tag,
			Lemma: Stem(pt.Text),
			Start: start,
			End:   start + len(pt.Text),
		})
		cursor = start + len(pt.Text)
	}
	return tokens
}

// alignSentences maps prose sentences onto token index ranges
func alignSentences(text string, proseSentences []prose.Sentence, tokens []core.Token) []core.Sentence {
	sentences := make([]core.Sentence, 0, len(proseSentences))
	cursor, next := 0, 0
	for _, ps := range proseSentences {
		i := strings.Index(text[cursor:], ps.Text)
		if i < 0 {
			continue
		}
		start := cursor + i
		end := start + len(ps.Text)
		cursor = end

		first := next
		for next < len(tokens) && tokens[next].Start < end {
			next++
		}
		for first < next && tokens[first].End <= start {
			first++
		}
		if first == next {
			continue
		}
		sentences = append(sentences, core.Sentence{Text: ps.Text, First: first, Last: next})
	}
	return sentences
}
