package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/nlp"
	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/core"
)

// NLPFactory creates the language capabilities used for scoring
type NLPFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNLPFactory creates a new NLP factory
func NewNLPFactory(cfg *config.Config, logger *zap.Logger) *NLPFactory {
	return &NLPFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTagger creates the tagger named by nlp.tagger. A nil tagger disables
// tagging and puts the scorer in keyword-only mode.
func (f *NLPFactory) CreateTagger() (core.Tagger, error) {
	switch name := f.cfg.GetNLP().Tagger; name {
	case "prose":
		return nlp.NewProseTagger(f.logger), nil
	case "basic":
		return nlp.NewBasicTagger(), nil
	case "none":
		f.logger.Warn("Tagger disabled, scoring will use keywords only")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported tagger: %s", name)
	}
}

// CreateSentimentScorer creates the scorer named by nlp.sentiment. A nil
// scorer disables the sentiment contribution.
func (f *NLPFactory) CreateSentimentScorer() (core.SentimentScorer, error) {
	switch name := f.cfg.GetNLP().Sentiment; name {
	case "vader":
		return nlp.NewVaderSentiment(), nil
	case "none":
		f.logger.Warn("Sentiment scoring disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported sentiment scorer: %s", name)
	}
}
