package config

import (
	"fmt"
	"time"
)

// StoreConfig represents the thread store configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// NLPConfig selects the language capabilities
type NLPConfig struct {
	Tagger    string
	Sentiment string
}

// PriorityConfig represents the priority classification configuration
type PriorityConfig struct {
	Classifier    string
	LookaheadDays int
}

// PipelineConfig represents the pipeline tunables
type PipelineConfig struct {
	Workers          int
	ExcerptLength    int
	RefreshLimit     int
	RefreshInterval  time.Duration
	SummarySentences int
	SummaryMaxLength int
}

// SMTPConfig represents the SMTP ingest configuration
type SMTPConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
}

// WatchConfig represents the directory watch ingest configuration
type WatchConfig struct {
	Enabled bool
	Dir     string
}

// LLMConfig represents the settings shared by all LLM providers
type LLMConfig struct {
	MaxRetries        int
	RequestsPerSecond float64
	MaxBodySize       int
}

// OpenAIConfig represents the configuration for OpenAI compatible APIs
type OpenAIConfig struct {
	APIKeys     []string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetNLP returns the NLP configuration
func (c *Config) GetNLP() NLPConfig {
	return NLPConfig{
		Tagger:    c.GetString("nlp.tagger"),
		Sentiment: c.GetString("nlp.sentiment"),
	}
}

// GetPriority returns the priority configuration
func (c *Config) GetPriority() PriorityConfig {
	return PriorityConfig{
		Classifier:    c.GetString("priority.classifier"),
		LookaheadDays: c.GetInt("priority.lookahead_days"),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() (PipelineConfig, error) {
	interval, err := c.GetDuration("pipeline.refresh_interval")
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid pipeline.refresh_interval: %w", err)
	}
	return PipelineConfig{
		Workers:          c.GetInt("pipeline.workers"),
		ExcerptLength:    c.GetInt("threading.excerpt_length"),
		RefreshLimit:     c.GetInt("pipeline.refresh_limit"),
		RefreshInterval:  interval,
		SummarySentences: c.GetInt("pipeline.summary_sentences"),
		SummaryMaxLength: c.GetInt("pipeline.summary_max_length"),
	}, nil
}

// GetSMTP returns the SMTP ingest configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:         c.GetBool("ingest.smtp.enabled"),
		ListenAddress:   c.GetString("ingest.smtp.listen_address"),
		Domain:          c.GetString("ingest.smtp.domain"),
		MaxMessageBytes: int64(c.GetInt("ingest.smtp.max_message_bytes")),
	}
}

// GetWatch returns the directory watch configuration
func (c *Config) GetWatch() WatchConfig {
	return WatchConfig{
		Enabled: c.GetBool("ingest.watch.enabled"),
		Dir:     c.GetString("ingest.watch.dir"),
	}
}

// GetLLM returns the shared LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		MaxRetries:        c.GetInt("llm.max_retries"),
		RequestsPerSecond: c.GetFloat64("llm.requests_per_second"),
		MaxBodySize:       c.GetInt("llm.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration. A single api_key is used when
// api_keys is empty.
func (c *Config) GetOpenAI() OpenAIConfig {
	keys := c.GetStringSlice("openai.api_keys")
	if len(keys) == 0 {
		if key := c.GetString("openai.api_key"); key != "" {
			keys = []string{key}
		}
	}
	return OpenAIConfig{
		APIKeys:     keys,
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
	}
}
