// Package summary builds short extractive summaries of threads.
package summary

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/textseg"
)

// ErrNothingToSummarize is returned when the messages hold no content words
var ErrNothingToSummarize = errors.New("nothing to summarize")

// Extractive picks the sentences whose words are most frequent across the
// thread and returns them in their original order
type Extractive struct {
	sentences int
	stopWords map[string]bool
	logger    *zap.Logger
}

// NewExtractive creates a summarizer returning at most sentences sentences
func NewExtractive(sentences int, logger *zap.Logger) *Extractive {
	if sentences <= 0 {
		sentences = 3
	}
	return &Extractive{
		sentences: sentences,
		stopWords: englishStopWords,
		logger:    logger,
	}
}

// Summarize returns the summary of messages, read in timestamp order
func (e *Extractive) Summarize(ctx context.Context, messages []core.MessageRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ordered := append([]core.MessageRef(nil), messages...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var sentences []string
	for _, m := range ordered {
		text := strings.TrimSpace(m.Excerpt)
		if text == "" {
			continue
		}
		for _, s := range textseg.Sentences(text, textseg.Tokenize(text)) {
			sentences = append(sentences, s.Text)
		}
	}

	freq := make(map[string]float64)
	max := 0.0
	for _, s := range sentences {
		for _, w := range e.contentWords(s) {
			freq[w]++
			if freq[w] > max {
				max = freq[w]
			}
		}
	}
	if max == 0 {
		return "", ErrNothingToSummarize
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	seen := make(map[string]bool)
	for i, s := range sentences {
		if seen[s] {
			continue
		}
		seen[s] = true
		score := 0.0
		for _, w := range e.contentWords(s) {
			score += freq[w] / max
		}
		if score > 0 {
			ranked = append(ranked, scored{index: i, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > e.sentences {
		ranked = ranked[:e.sentences]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].index < ranked[j].index })

	picked := make([]string, len(ranked))
	for i, r := range ranked {
		picked[i] = sentences[r.index]
	}

	e.logger.Debug("Summarized thread",
		zap.Int("messages", len(messages)),
		zap.Int("sentences", len(sentences)),
		zap.Int("picked", len(picked)))

	return strings.Join(picked, " "), nil
}

func (e *Extractive) contentWords(sentence string) []string {
	var words []string
	for _, tok := range textseg.Tokenize(sentence) {
		if !textseg.IsWord(tok) || e.stopWords[tok.Lemma] {
			continue
		}
		words = append(words, tok.Lemma)
	}
	return words
}

var _ core.Summarizer = (*Extractive)(nil)

var englishStopWords = toSet(strings.Fields(`
	i me my myself we our ours ourselves you your yours yourself yourselves he him his himself
	she her hers herself it its itself they them their theirs themselves what which who whom
	this that these those am is are was were be been being have has had having do does did
	doing a an the and but if or because as until while of at by for with about against
	between into through during before after above below to from up down in out on off over
	under again further then once here there when where why how all any both each few more
	most other some such no nor not only own same so than too very s t can will just don
	should now d ll m o re ve y hi hello thanks regards best dear
`))

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
