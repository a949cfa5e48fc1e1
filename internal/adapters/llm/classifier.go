// Package llm classifies thread priority with a language model behind a
// rate limit and a retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/ports"
	"github.com/mikey/thread-triage/internal/utils"
)

const systemPrompt = "You are an assistant that classifies email priority. Reply with a single word."

const promptFormat = `Classify the priority of the following email conversation.
Return ONLY one of: High, Medium, Low

Consider deadlines, explicit urgent words (ASAP, urgent), manager instructions, and actionable items.

Conversation:
%s`

// Options tune the Classifier
type Options struct {
	// MaxTries bounds attempts per classification, including the first
	MaxTries int
	// RequestsPerSecond limits calls to the provider; <= 0 means unlimited
	RequestsPerSecond float64
	// MaxBodySize truncates the text sent to the provider
	MaxBodySize int
	// NewBackOff returns the retry schedule for one classification
	NewBackOff func() backoff.BackOff
}

// Classifier implements core.PriorityClassifier on top of a ports.Completer
type Classifier struct {
	completer     ports.Completer
	limiter       *rate.Limiter
	opts          Options
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewClassifier creates a new LLM backed classifier
func NewClassifier(completer ports.Completer, opts Options, textProcessor *utils.TextProcessor, logger *zap.Logger) *Classifier {
	if opts.MaxTries <= 0 {
		opts.MaxTries = 1
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Classifier{
		completer:     completer,
		limiter:       rate.NewLimiter(limit, 1),
		opts:          opts,
		textProcessor: textProcessor,
		logger:        logger,
	}
}

// Classify asks the model for a label. Throttled calls are retried with
// exponential backoff; any other failure or an unknown label is returned.
func (c *Classifier) Classify(ctx context.Context, text string) (core.Priority, error) {
	prompt := fmt.Sprintf(promptFormat, c.textProcessor.ProcessText(text, c.opts.MaxBodySize))

	attempt := 0
	reply, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(fmt.Errorf("rate limiter error: %w", err))
		}

		reply, err := c.completer.Complete(ctx, systemPrompt, prompt)
		if errors.Is(err, core.ErrRateLimited) {
			c.logger.Warn("LLM provider throttled request",
				zap.String("provider", c.completer.Name()),
				zap.Int("attempt", attempt))
			return "", err
		}
		if err != nil {
			return "", backoff.Permanent(err)
		}
		return reply, nil
	},
		backoff.WithBackOff(c.opts.NewBackOff()),
		backoff.WithMaxTries(uint(c.opts.MaxTries)),
	)
	if err != nil {
		return core.PriorityUnset, fmt.Errorf("failed to classify with %s: %w", c.completer.Name(), err)
	}

	label, err := ParseLabel(reply)
	if err != nil {
		return core.PriorityUnset, err
	}

	c.logger.Debug("LLM classified text",
		zap.String("provider", c.completer.Name()),
		zap.String("priority", string(label)),
		zap.Int("attempts", attempt))
	return label, nil
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "llm:" + c.completer.Name()
}

// Close releases the completer when it holds resources
func (c *Classifier) Close() error {
	if closer, ok := c.completer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ParseLabel reads a priority from a model reply such as "High", "**low**"
// or "Medium." by looking at its first word only
func ParseLabel(reply string) (core.Priority, error) {
	words := strings.Fields(reply)
	if len(words) == 0 {
		return core.PriorityUnset, fmt.Errorf("%w: empty reply", core.ErrInvalidLabel)
	}

	word := strings.TrimFunc(words[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	label, ok := core.ParsePriority(strings.ToLower(word))
	if !ok {
		return core.PriorityUnset, fmt.Errorf("%w: %q", core.ErrInvalidLabel, reply)
	}
	return label, nil
}
