package di

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/mikey/thread-triage/internal/config"
)

// CLIFlags contains the command line overrides shared by every command
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	Store      string
	SQLitePath string
	Tagger     string
	Classifier string
	Workers    int
}

// LoadConfig reads the configuration and applies the flags set on the command line
func LoadConfig(flags *CLIFlags) (*config.Config, error) {
	cfg, err := config.New(flags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg, flags)
	return cfg, nil
}

// BuildCLIContainer creates a container for a command line invocation
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}
	return BuildContainer(cfg)
}

// applyFlags overrides configuration values with non-zero flags
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.Verbose {
		cfg.Set("logging.level", "debug")
	}
	if flags.JSONLog {
		cfg.Set("logging.format", "json")
	}
	if flags.Store != "" {
		cfg.Set("store.type", flags.Store)
	}
	if flags.SQLitePath != "" {
		cfg.Set("store.sqlite_path", flags.SQLitePath)
	}
	if flags.Tagger != "" {
		cfg.Set("nlp.tagger", flags.Tagger)
	}
	if flags.Classifier != "" {
		cfg.Set("priority.classifier", flags.Classifier)
	}
	if flags.Workers > 0 {
		cfg.Set("pipeline.workers", flags.Workers)
	}
}
