package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A non-empty configFile is read
// directly instead of searching the default paths.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/thread-triage/")
		v.AddConfigPath("$HOME/.thread-triage")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("THREAD_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "/data/threads.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/thread_triage")

	// NLP defaults
	v.SetDefault("nlp.tagger", "prose")
	v.SetDefault("nlp.sentiment", "vader")

	// Priority defaults
	v.SetDefault("priority.classifier", "heuristic")
	v.SetDefault("priority.lookahead_days", 30)

	// Threading defaults
	v.SetDefault("threading.excerpt_length", 500)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.refresh_limit", 50)
	v.SetDefault("pipeline.refresh_interval", "15m")
	v.SetDefault("pipeline.summary_sentences", 3)
	v.SetDefault("pipeline.summary_max_length", 500)

	// Ingest defaults
	v.SetDefault("ingest.smtp.enabled", true)
	v.SetDefault("ingest.smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("ingest.smtp.domain", "localhost")
	v.SetDefault("ingest.smtp.max_message_bytes", 10*1024*1024)
	v.SetDefault("ingest.watch.enabled", false)
	v.SetDefault("ingest.watch.dir", "/data/inbox")

	// Metrics defaults
	v.SetDefault("metrics.listen_address", "0.0.0.0:9090")

	// Shared LLM defaults
	v.SetDefault("llm.max_retries", 4)
	v.SetDefault("llm.requests_per_second", 1.0)
	v.SetDefault("llm.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.api_keys", []string{})
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 10)
	v.SetDefault("openai.temperature", 0.0)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 10)
	v.SetDefault("gemini.temperature", 0.0)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 10)
	v.SetDefault("bedrock.temperature", 0.0)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a configuration value
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
