package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// OpenAIClient is an implementation of the Completer interface for OpenAI
// compatible APIs. Requests rotate over the configured API keys.
type OpenAIClient struct {
	clients     []*openai.Client
	next        atomic.Uint64
	modelName   string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client with one underlying client per
// API key. An empty baseURL uses the OpenAI endpoint.
func NewOpenAIClient(
	apiKeys []string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
) (*OpenAIClient, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no OpenAI API keys configured")
	}

	clients := make([]*openai.Client, 0, len(apiKeys))
	for _, key := range apiKeys {
		cfg := openai.DefaultConfig(key)
		if baseURL != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
		clients = append(clients, openai.NewClientWithConfig(cfg))
	}

	logger.Info("Created OpenAI client",
		zap.String("model", modelName),
		zap.Int("api_keys", len(clients)))

	return &OpenAIClient{
		clients:     clients,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Complete sends one chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	n := c.next.Add(1) - 1
	client := c.clients[n%uint64(len(c.clients))]

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("OpenAI key %d: %w", n%uint64(len(c.clients)), core.ErrRateLimited)
		}
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return "openai"
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
