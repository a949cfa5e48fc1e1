package ports

import (
	"context"
)

// Completer defines the interface for single-turn LLM completions
type Completer interface {
	// Complete sends a system instruction and a user prompt and returns the reply text.
	// Provider throttling is reported as core.ErrRateLimited.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Name returns the provider name
	Name() string
}
