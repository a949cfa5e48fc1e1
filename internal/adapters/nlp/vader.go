package nlp

import (
	"context"
	"strings"

	"github.com/jonreiter/govader"

	"github.com/mikey/thread-triage/internal/core"
)

// VaderSentiment scores text with the VADER lexicon and rules. The compound
// score lies in [-1, 1].
type VaderSentiment struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderSentiment creates a new VADER scorer, loading the lexicon
func NewVaderSentiment() *VaderSentiment {
	return &VaderSentiment{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Compound returns the normalized sentiment of text
func (s *VaderSentiment) Compound(ctx context.Context, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return s.analyzer.PolarityScores(text).Compound, nil
}

var _ core.SentimentScorer = (*VaderSentiment)(nil)
