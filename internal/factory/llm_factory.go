package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/llm"
	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/ports"
	"github.com/mikey/thread-triage/internal/priority"
	"github.com/mikey/thread-triage/internal/utils"
)

// LLMFactory creates the thread priority classifier
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateCompleter creates the completer for an LLM provider
func (f *LLMFactory) CreateCompleter(provider string) (ports.Completer, error) {
	switch provider {
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger).CreateCompleter()
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger).CreateCompleter()
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger).CreateCompleter()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// CreateClassifier creates the classifier named by priority.classifier. LLM
// classifiers fall back to the heuristic scorer when they fail.
func (f *LLMFactory) CreateClassifier(scorer *priority.Scorer) (core.PriorityClassifier, error) {
	heuristic := priority.NewClassifier(scorer, nil)

	name := f.cfg.GetPriority().Classifier
	if name == "heuristic" || name == "" {
		return heuristic, nil
	}

	completer, err := f.CreateCompleter(name)
	if err != nil {
		return nil, err
	}

	llmCfg := f.cfg.GetLLM()
	classifier := llm.NewClassifier(completer, llm.Options{
		MaxTries:          llmCfg.MaxRetries,
		RequestsPerSecond: llmCfg.RequestsPerSecond,
		MaxBodySize:       llmCfg.MaxBodySize,
	}, f.textProcessor, f.logger)

	f.logger.Info("Using LLM priority classifier",
		zap.String("provider", completer.Name()),
		zap.Int("max_retries", llmCfg.MaxRetries))

	return priority.NewFallbackClassifier(classifier, heuristic, f.logger), nil
}
