package summary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

var base = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func TestSummarizePicksFrequentSentencesInOrder(t *testing.T) {
	s := NewExtractive(2, zap.NewNop())
	messages := []core.MessageRef{
		{Timestamp: base.Add(time.Hour), Excerpt: "The budget review moved to Friday. Lunch was nice."},
		{Timestamp: base, Excerpt: "We need the budget numbers for the review. Weather is fine."},
	}

	got, err := s.Summarize(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "We need the budget numbers for the review. The budget review moved to Friday.", got)
}

func TestSummarizeShortThreadKeepsEverything(t *testing.T) {
	s := NewExtractive(3, zap.NewNop())

	got, err := s.Summarize(context.Background(), []core.MessageRef{{Excerpt: "Contract signed."}})
	require.NoError(t, err)
	assert.Equal(t, "Contract signed.", got)
}

func TestSummarizeSkipsDuplicateSentences(t *testing.T) {
	s := NewExtractive(3, zap.NewNop())
	messages := []core.MessageRef{
		{Timestamp: base, Excerpt: "Invoice attached."},
		{Timestamp: base.Add(time.Minute), Excerpt: "Invoice attached."},
	}

	got, err := s.Summarize(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "Invoice attached.", got)
}

func TestSummarizeNothing(t *testing.T) {
	s := NewExtractive(3, zap.NewNop())

	for _, messages := range [][]core.MessageRef{
		nil,
		{{Excerpt: "   "}},
		{{Excerpt: "Thanks and regards."}},
	} {
		_, err := s.Summarize(context.Background(), messages)
		assert.ErrorIs(t, err, ErrNothingToSummarize)
	}
}

func TestSummarizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractive(3, zap.NewNop()).Summarize(ctx, []core.MessageRef{{Excerpt: "Text."}})
	assert.ErrorIs(t, err, context.Canceled)
}
