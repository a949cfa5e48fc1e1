// Package textseg provides a rule-based tokenizer and sentence splitter used
// when no tagging model is available.
package textseg

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/thread-triage/internal/core"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*|[^\s\p{L}\p{N}]`)

// Tokenize splits text into word and punctuation tokens with byte offsets.
// Lemma is the lowercased token text.
func Tokenize(text string) []core.Token {
	locs := tokenRe.FindAllStringIndex(text, -1)
	tokens := make([]core.Token, 0, len(locs))
	for _, loc := range locs {
		word := text[loc[0]:loc[1]]
		tokens = append(tokens, core.Token{
			Text:  word,
			Lemma: strings.ToLower(word),
			Start: loc[0],
			End:   loc[1],
		})
	}
	return tokens
}

// Sentences groups tokens into sentences ending at '.', '!' or '?' followed by
// whitespace or the end of text
func Sentences(text string, tokens []core.Token) []core.Sentence {
	var out []core.Sentence
	first := 0
	for i, tok := range tokens {
		if !isTerminal(tok.Text) || !atBoundary(text, tok.End) {
			continue
		}
		out = append(out, sentence(text, tokens, first, i+1))
		first = i + 1
	}
	if first < len(tokens) {
		out = append(out, sentence(text, tokens, first, len(tokens)))
	}
	return out
}

// IsWord reports whether a token contains a letter or digit
func IsWord(tok core.Token) bool {
	for _, r := range tok.Text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func sentence(text string, tokens []core.Token, first, last int) core.Sentence {
	return core.Sentence{
		Text:  text[tokens[first].Start:tokens[last-1].End],
		First: first,
		Last:  last,
	}
}

func isTerminal(s string) bool {
	return s == "." || s == "!" || s == "?"
}

func atBoundary(text string, offset int) bool {
	if offset >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return unicode.IsSpace(r) || r == '"' || r == '\''
}
