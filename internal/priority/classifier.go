package priority

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// Classifier adapts a Scorer to the core.PriorityClassifier port
type Classifier struct {
	scorer *Scorer
	clock  core.Clock
}

// NewClassifier creates a new heuristic classifier. A nil clock uses time.Now.
func NewClassifier(scorer *Scorer, clock core.Clock) *Classifier {
	if clock == nil {
		clock = time.Now
	}
	return &Classifier{
		scorer: scorer,
		clock:  clock,
	}
}

// Classify scores text and returns its label. It never returns an error.
func (c *Classifier) Classify(ctx context.Context, text string) (core.Priority, error) {
	return c.scorer.Score(ctx, text, c.clock()).Label, nil
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "heuristic"
}

// FallbackClassifier tries a primary classifier and falls back on failure
type FallbackClassifier struct {
	primary  core.PriorityClassifier
	fallback core.PriorityClassifier
	logger   *zap.Logger
}

// NewFallbackClassifier creates a new FallbackClassifier
func NewFallbackClassifier(primary, fallback core.PriorityClassifier, logger *zap.Logger) *FallbackClassifier {
	return &FallbackClassifier{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Classify returns the primary label, or the fallback label when the primary fails
func (c *FallbackClassifier) Classify(ctx context.Context, text string) (core.Priority, error) {
	label, err := c.primary.Classify(ctx, text)
	if err == nil {
		return label, nil
	}

	c.logger.Warn("Primary classifier failed, using fallback",
		zap.String("primary", c.primary.Name()),
		zap.String("fallback", c.fallback.Name()),
		zap.Error(err))
	return c.fallback.Classify(ctx, text)
}

// Name returns the classifier name
func (c *FallbackClassifier) Name() string {
	return c.primary.Name() + "+" + c.fallback.Name()
}

// Close releases the primary classifier when it holds resources
func (c *FallbackClassifier) Close() error {
	if closer, ok := c.primary.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
