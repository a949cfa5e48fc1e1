package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/openai"
	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/ports"
)

// OpenAIFactory creates OpenAI completers
type OpenAIFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates an OpenAI completer
func (f *OpenAIFactory) CreateCompleter() (ports.Completer, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if len(openaiCfg.APIKeys) == 0 {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewOpenAIClient(
		openaiCfg.APIKeys,
		openaiCfg.BaseURL,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		f.logger,
	)
}
