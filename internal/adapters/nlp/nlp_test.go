package nlp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/priority"
)

func TestBasicTagger(t *testing.T) {
	analysis, err := NewBasicTagger().Analyze(context.Background(), "Several updates are pending. Meetings moved!")
	require.NoError(t, err)

	require.Len(t, analysis.Sentences, 2)
	assert.Equal(t, "updat", analysis.Tokens[1].Lemma)
	assert.Equal(t, "meet", analysis.Tokens[5].Lemma)
	assert.Empty(t, analysis.Entities)
}

func TestBasicTaggerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBasicTagger().Analyze(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStem(t *testing.T) {
	assert.Equal(t, Stem("update"), Stem("Updates"))
	assert.Equal(t, Stem("meeting"), Stem("meetings"))
	assert.Equal(t, "submit", Stem("submitted"))
}

func TestProseTagger(t *testing.T) {
	text := "Hello there. How are you?"
	analysis, err := NewProseTagger(zap.NewNop()).Analyze(context.Background(), text)
	require.NoError(t, err)

	require.NotEmpty(t, analysis.Tokens)
	require.Len(t, analysis.Sentences, 2)
	assert.Equal(t, 0, analysis.Tokens[0].Start)
	for _, tok := range analysis.Tokens {
		assert.Equal(t, tok.Text, text[tok.Start:tok.End])
	}
	assert.Equal(t, "How", analysis.Tokens[analysis.Sentences[1].First].Text)
}

func TestProseTaggerDropsSofteningWordEntities(t *testing.T) {
	text := "The deadline for the report is this Friday. Please submit it ASAP."
	analysis, err := NewProseTagger(zap.NewNop()).Analyze(context.Background(), text)
	require.NoError(t, err)

	for _, e := range analysis.Entities {
		assert.NotEqual(t, "Please", e.Text)
	}
}

func TestPlausibleName(t *testing.T) {
	tests := []struct {
		text string
		tag  string
		want bool
	}{
		{"Please", "VB", false},
		{"Please", "NNP", false},
		{"Thanks", "NNP", false},
		{"alice", "NNP", false},
		{"Report", "NN", false},
		{"Alice", "NNP", true},
		{"Enron", "", true},
		{"Jeff Skilling", "NNP", true},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, plausibleName(tt.text, tt.tag))
		})
	}
}

var vader = NewVaderSentiment()

func TestVaderSentiment(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, v float64)
	}{
		{"empty", "", func(t *testing.T, v float64) { assert.Zero(t, v) }},
		{"neutral", "The report is attached.", func(t *testing.T, v float64) { assert.Zero(t, v) }},
		{"complaint", "This is terrible and unacceptable.", func(t *testing.T, v float64) { assert.LessOrEqual(t, v, -0.45) }},
		{"suspended account", "Our payment was rejected and the account is suspended.", func(t *testing.T, v float64) {
			assert.LessOrEqual(t, v, -0.45)
		}},
		{"complaining customers", "The server keeps crashing and customers are complaining loudly.", func(t *testing.T, v float64) {
			assert.Less(t, v, -0.2)
		}},
		{"positive", "Thanks, great work!", func(t *testing.T, v float64) { assert.Greater(t, v, 0.5) }},
		{"negated", "This is not bad.", func(t *testing.T, v float64) { assert.Greater(t, v, 0.0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vader.Compound(ctx, tt.text)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
			tt.check(t, v)
		})
	}
}

func TestVaderSentimentBoostersAndCaps(t *testing.T) {
	ctx := context.Background()

	plain, _ := vader.Compound(ctx, "The service was bad.")
	boosted, _ := vader.Compound(ctx, "The service was very bad.")
	shouted, _ := vader.Compound(ctx, "The service was BAD.")

	assert.Less(t, boosted, plain)
	assert.Less(t, shouted, plain)
}

func TestVaderSentimentHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := vader.Compound(ctx, "Great.")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVaderSentimentAddsScorerSignal(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultTables(), NewBasicTagger(), vader, zap.NewNop())

	b := scorer.Score(context.Background(), "Our payment was rejected and the account is suspended.", now)
	assert.Equal(t, core.ScoringFull, b.Mode)
	assert.Equal(t, 2, b.Sentiment)
}

// Tuesday, three days before Friday 2024-05-10
var now = time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC)

func TestScorerWithRuleStack(t *testing.T) {
	scorer := priority.NewScorer(priority.DefaultTables(), NewBasicTagger(), vader, zap.NewNop())
	ctx := context.Background()

	urgent := scorer.Score(ctx, "The deadline for the report is this Friday. Please submit it ASAP.", now)
	assert.Equal(t, core.ScoringFull, urgent.Mode)
	assert.GreaterOrEqual(t, urgent.HighCount, 2)
	assert.Equal(t, 4, urgent.DeadlineNearDate)
	assert.Equal(t, 7, urgent.DateProximity)
	assert.Equal(t, core.PriorityHigh, urgent.Label)

	fyi := scorer.Score(ctx, "Thanks for the newsletter, just FYI.", now)
	assert.LessOrEqual(t, fyi.KeywordContribution(), 0)
	assert.Zero(t, fyi.Imperative)
	assert.Zero(t, fyi.Modal)
	assert.Zero(t, fyi.DateProximity)
	assert.Equal(t, core.PriorityLow, fyi.Label)

	stems := scorer.Score(ctx, "Several updates from the meetings.", now)
	assert.Equal(t, 2, stems.MediumCount)
}
