// Package priority scores message text into High, Medium or Low priority from
// keyword, imperative, modal, sentiment and date-proximity signals.
package priority

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/entity"
	"github.com/mikey/thread-triage/internal/textseg"
)

// Scorer computes priority score breakdowns. It is safe for concurrent use.
type Scorer struct {
	tables    Tables
	tagger    core.Tagger
	sentiment core.SentimentScorer
	extractor *entity.Extractor
	logger    *zap.Logger

	high, medium, low keywordSet
	deadline          keywordSet
	softening         map[string]bool
	imperative        map[string]bool
	modalRe           *regexp.Regexp
}

// NewScorer creates a new Scorer. tagger and sentiment may be nil; the
// breakdown mode then records the reduced signal set.
func NewScorer(tables Tables, tagger core.Tagger, sentiment core.SentimentScorer, logger *zap.Logger) *Scorer {
	lemma := strings.ToLower
	if tagger != nil {
		lemma = func(w string) string { return tagger.Lemma(strings.ToLower(w)) }
	}

	return &Scorer{
		tables:     tables,
		tagger:     tagger,
		sentiment:  sentiment,
		extractor:  entity.NewExtractor(tagger, logger),
		logger:     logger,
		high:       newKeywordSet(tables.High, lemma),
		medium:     newKeywordSet(tables.Medium, lemma),
		low:        newKeywordSet(tables.Low, lemma),
		deadline:   newKeywordSet(tables.DeadlineWords, lemma),
		softening:  toSet(tables.SofteningWords),
		imperative: toSet(tables.ImperativeVerbs),
		modalRe:    phraseRegexp(tables.ModalPhrases),
	}
}

// Score returns the breakdown for text relative to now. It never fails: when
// the tagger is unavailable only the keyword signal is used, and when
// sentiment is unavailable that signal is skipped.
func (s *Scorer) Score(ctx context.Context, text string, now time.Time) core.ScoreBreakdown {
	var b core.ScoreBreakdown

	analysis, err := s.analyze(ctx, text)
	if err != nil {
		s.logger.Debug("Tagger unavailable, scoring keywords only", zap.Error(err))
		b.Mode = core.ScoringKeywordOnly
		s.scoreKeywords(&b, text, textseg.Tokenize(text))
		return finish(b)
	}

	b.Mode = core.ScoringFull
	s.scoreKeywords(&b, text, analysis.Tokens)
	s.scoreSentences(&b, analysis)
	b.Entities = s.extractor.FromAnalysis(text, analysis, now)
	s.scoreDates(&b, analysis.Tokens, now)
	s.scoreSentiment(ctx, &b, text)

	return finish(b)
}

func (s *Scorer) analyze(ctx context.Context, text string) (analysis *core.Analysis, err error) {
	if s.tagger == nil {
		return nil, core.ErrCapabilityUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			analysis, err = nil, fmt.Errorf("%w: tagger panic: %v", core.ErrCapabilityUnavailable, r)
		}
	}()
	return s.tagger.Analyze(ctx, text)
}

func (s *Scorer) scoreKeywords(b *core.ScoreBreakdown, text string, tokens []core.Token) {
	for _, tok := range tokens {
		switch {
		case s.high.matchToken(tok):
			b.HighCount++
		case s.medium.matchToken(tok):
			b.MediumCount++
		case s.low.matchToken(tok):
			b.LowCount++
		}
	}

	lower := strings.ToLower(text)
	b.HighCount += s.high.countPhrases(lower)
	b.MediumCount += s.medium.countPhrases(lower)
	b.LowCount += s.low.countPhrases(lower)

	b.KeywordHigh = b.HighCount * highWeight
	b.KeywordMedium = b.MediumCount * mediumWeight
	b.KeywordLow = -b.LowCount * lowWeight
}

func (s *Scorer) scoreSentences(b *core.ScoreBreakdown, analysis *core.Analysis) {
	for _, sent := range analysis.Sentences {
		if s.isImperative(analysis.Tokens, sent) {
			b.Imperative += imperativeWeight
		}
		if s.modalRe != nil && s.modalRe.MatchString(strings.ToLower(sent.Text)) {
			b.Modal += modalWeight
		}
	}
}

// isImperative reports whether the first word of a sentence is a bare verb
// and not a softening word
func (s *Scorer) isImperative(tokens []core.Token, sent core.Sentence) bool {
	for i := sent.First; i < sent.Last && i < len(tokens); i++ {
		tok := tokens[i]
		if !textseg.IsWord(tok) {
			continue
		}
		word := strings.ToLower(tok.Text)
		if s.softening[word] {
			return false
		}
		return tok.Tag == "VB" || s.imperative[word]
	}
	return false
}

func (s *Scorer) scoreDates(b *core.ScoreBreakdown, tokens []core.Token, now time.Time) {
	today := calendarDay(now)

	var spans [][2]int
	for _, e := range b.Entities {
		if e.Kind != core.EntityDate {
			continue
		}
		if first, last, ok := tokenSpan(tokens, e.Start, e.End); ok {
			spans = append(spans, [2]int{first, last})
		}
		if e.Resolved == nil {
			continue
		}

		days := int(calendarDay(*e.Resolved).Sub(today).Hours() / 24)
		switch {
		case days < 0 || days > s.tables.LookaheadDays:
		case days <= s.tables.NearDays:
			b.DateProximity += nearDateBonus
		case days <= s.tables.MidDays:
			b.DateProximity += midDateBonus
		}
	}

	for i, tok := range tokens {
		if !s.deadline.matchToken(tok) {
			continue
		}
		for _, span := range spans {
			if tokenDistance(i, span) <= s.tables.DeadlineWindow {
				b.DeadlineNearDate += deadlineBonus
			}
		}
	}
	b.DateProximity += b.DeadlineNearDate
}

func (s *Scorer) scoreSentiment(ctx context.Context, b *core.ScoreBreakdown, text string) {
	if s.sentiment == nil {
		b.Mode = core.ScoringNoSentiment
		return
	}

	compound, err := s.sentiment.Compound(ctx, text)
	if err != nil {
		s.logger.Debug("Sentiment unavailable, skipping signal", zap.Error(err))
		b.Mode = core.ScoringNoSentiment
		return
	}

	b.Compound = compound
	switch {
	case compound <= -0.45:
		b.Sentiment = 2
	case compound <= -0.20:
		b.Sentiment = 1
	}
}

func finish(b core.ScoreBreakdown) core.ScoreBreakdown {
	b.Score = b.KeywordHigh + b.KeywordMedium + b.KeywordLow +
		b.Imperative + b.Modal + b.Sentiment + b.DateProximity
	b.Label = Label(b.Score)
	return b
}

// tokenSpan returns the indexes of the first and last tokens overlapping [start, end)
func tokenSpan(tokens []core.Token, start, end int) (int, int, bool) {
	first, last := -1, -1
	for i, tok := range tokens {
		if tok.Start < end && start < tok.End {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}

func tokenDistance(i int, span [2]int) int {
	switch {
	case i < span[0]:
		return span[0] - i
	case i > span[1]:
		return i - span[1]
	default:
		return 0
	}
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type keywordSet struct {
	words   map[string]bool
	lemmas  map[string]bool
	phrases []*regexp.Regexp
}

func newKeywordSet(entries []string, lemma func(string) string) keywordSet {
	set := keywordSet{words: make(map[string]bool), lemmas: make(map[string]bool)}
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.ContainsAny(entry, " \t") {
			set.phrases = append(set.phrases, phraseRegexp([]string{entry}))
			continue
		}
		set.words[entry] = true
		if l := lemma(entry); l != "" {
			set.lemmas[l] = true
		}
	}
	return set
}

func (k keywordSet) matchToken(tok core.Token) bool {
	if k.words[strings.ToLower(tok.Text)] {
		return true
	}
	return tok.Lemma != "" && k.lemmas[tok.Lemma]
}

func (k keywordSet) countPhrases(lower string) int {
	n := 0
	for _, re := range k.phrases {
		n += len(re.FindAllStringIndex(lower, -1))
	}
	return n
}

// phraseRegexp matches any of the phrases on word boundaries with flexible spacing
func phraseRegexp(phrases []string) *regexp.Regexp {
	if len(phrases) == 0 {
		return nil
	}
	alts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		words := strings.Fields(strings.ToLower(p))
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
