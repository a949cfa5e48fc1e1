package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/gemini"
	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/ports"
)

// GeminiFactory creates Gemini completers
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates a Gemini completer
func (f *GeminiFactory) CreateCompleter() (ports.Completer, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewGeminiClient(
		context.Background(),
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		f.logger,
	)
}
