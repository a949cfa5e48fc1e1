// Package main implements the thread-triage command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/di"
)

var (
	// flags shared by every command
	flags di.CLIFlags
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "thread-triage",
	Short: "Group email into threads and rank them by priority",
	Long: `thread-triage reconciles incoming email into conversation threads and
scores each message and thread as High, Medium or Low priority.

Messages arrive over SMTP, from a watched directory, or from files given to
the ingest command.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.StringVar(&flags.Store, "store", "", "Thread store (memory, sqlite, mysql)")
	pf.StringVar(&flags.SQLitePath, "db", "", "SQLite database path")
	pf.StringVar(&flags.Tagger, "tagger", "", "Tagger (prose, basic, none)")
	pf.StringVar(&flags.Classifier, "classifier", "", "Thread classifier (heuristic, openai, gemini, bedrock)")
	pf.IntVar(&flags.Workers, "workers", 0, "Number of concurrent workers")
}

// invoke builds the container and runs fn with its dependencies injected.
// The thread store is closed once fn returns.
func invoke(fn any) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	runErr := container.Invoke(fn)
	closeErr := container.Invoke(func(store core.ThreadStore, logger *zap.Logger) {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close thread store", zap.Error(err))
		}
		_ = logger.Sync()
	})
	if runErr != nil {
		return runErr
	}
	return closeErr
}
