// Package pipeline ties normalization, scoring and threading into the
// message-at-a-time triage service.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/metrics"
	"github.com/mikey/thread-triage/internal/normalize"
	"github.com/mikey/thread-triage/internal/priority"
	"github.com/mikey/thread-triage/internal/threading"
	"github.com/mikey/thread-triage/internal/utils"
)

// Settings holds the tunables of the Service
type Settings struct {
	// Workers bounds concurrent batch and refresh work
	Workers int
	// SummaryMaxLength bounds placeholder summaries built from excerpts
	SummaryMaxLength int
}

// Result is the outcome of processing one message
type Result struct {
	MessageID string
	ThreadID  string
	Stage     threading.Stage
	Created   bool
	Breakdown core.ScoreBreakdown
	Err       error
}

// RefreshResult is the outcome of refreshing one thread
type RefreshResult struct {
	ThreadID string
	Summary  string
	Priority core.Priority
	// Placeholder is set when the summarizer failed and excerpts were used instead
	Placeholder bool
	// Fallback is set when the classifier failed and the heuristic label was used
	Fallback bool
	Err      error
}

// Service is the triage pipeline
type Service struct {
	normalizer    *normalize.Normalizer
	scorer        *priority.Scorer
	matcher       *threading.Matcher
	store         core.ThreadStore
	summarizer    core.Summarizer
	classifier    core.PriorityClassifier
	textProcessor *utils.TextProcessor
	metrics       *metrics.Metrics
	clock         core.Clock
	logger        *zap.Logger
	settings      Settings
}

// NewService creates a new triage service
func NewService(
	normalizer *normalize.Normalizer,
	scorer *priority.Scorer,
	matcher *threading.Matcher,
	store core.ThreadStore,
	summarizer core.Summarizer,
	classifier core.PriorityClassifier,
	textProcessor *utils.TextProcessor,
	m *metrics.Metrics,
	clock core.Clock,
	logger *zap.Logger,
	settings Settings,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	return &Service{
		normalizer:    normalizer,
		scorer:        scorer,
		matcher:       matcher,
		store:         store,
		summarizer:    summarizer,
		classifier:    classifier,
		textProcessor: textProcessor,
		metrics:       m,
		clock:         clock,
		logger:        logger,
		settings:      settings,
	}
}

// Process normalizes, scores and threads one raw message
func (s *Service) Process(ctx context.Context, raw []byte) (*Result, error) {
	return s.ProcessMessage(ctx, s.normalizer.Normalize(raw))
}

// ProcessMessage scores and threads an already normalized message
func (s *Service) ProcessMessage(ctx context.Context, msg *core.NormalizedMessage) (*Result, error) {
	breakdown := s.scorer.Score(ctx, msg.CleanBody, s.clock())

	assignment, err := s.matcher.Assign(ctx, msg, breakdown.Label)
	if err != nil {
		s.metrics.RecordError("process")
		return nil, fmt.Errorf("failed to thread message %q: %w", msg.MessageID, err)
	}

	s.metrics.RecordMessage(string(assignment.Stage), string(breakdown.Label), string(breakdown.Mode), assignment.Merged)
	s.logger.Info("Message processed",
		zap.String("message_id", msg.MessageID),
		zap.String("thread_id", assignment.ThreadID),
		zap.String("stage", string(assignment.Stage)),
		zap.String("priority", string(breakdown.Label)),
		zap.Int("score", breakdown.Score),
		zap.String("scoring_mode", string(breakdown.Mode)))

	return &Result{
		MessageID: msg.MessageID,
		ThreadID:  assignment.ThreadID,
		Stage:     assignment.Stage,
		Created:   assignment.Created,
		Breakdown: breakdown,
	}, nil
}

// ProcessBatch processes raw messages on the worker pool. Failures are
// reported per message and never stop the rest of the batch.
func (s *Service) ProcessBatch(ctx context.Context, raws [][]byte) []Result {
	results := make([]Result, len(raws))

	var g errgroup.Group
	g.SetLimit(s.settings.Workers)
	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return nil
			}
			res, err := s.Process(ctx, raw)
			if err != nil {
				s.logger.Error("Failed to process message", zap.Int("index", i), zap.Error(err))
				results[i] = Result{Err: err}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Score returns the priority breakdown of text
func (s *Service) Score(ctx context.Context, text string) core.ScoreBreakdown {
	return s.scorer.Score(ctx, text, s.clock())
}

// RefreshThreads summarizes and prioritizes the limit most recently updated
// threads. A failure on one thread is reported in its result only.
func (s *Service) RefreshThreads(ctx context.Context, limit int) ([]RefreshResult, error) {
	defer s.metrics.ObserveRefresh(time.Now())

	threads, err := s.store.List(ctx, limit, true)
	if err != nil {
		s.metrics.RecordError("refresh")
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	results := make([]RefreshResult, len(threads))
	var g errgroup.Group
	g.SetLimit(s.settings.Workers)
	for i, t := range threads {
		g.Go(func() error {
			results[i] = s.refreshThread(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *Service) refreshThread(ctx context.Context, t *core.Thread) RefreshResult {
	res := RefreshResult{ThreadID: t.ID}

	messages := append([]core.MessageRef(nil), t.Messages...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	if len(messages) == 0 {
		return res
	}

	summary, err := s.summarizer.Summarize(ctx, messages)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.logger.Warn("Summarization failed, using excerpts",
			zap.String("thread_id", t.ID),
			zap.Error(err))
		summary = s.placeholder(messages)
		res.Placeholder = true
	}

	label, err := s.classifier.Classify(ctx, summary)
	if err != nil {
		s.logger.Warn("Classification failed, using heuristic score",
			zap.String("thread_id", t.ID),
			zap.String("classifier", s.classifier.Name()),
			zap.Error(err))
		label = s.scorer.Score(ctx, summary, s.clock()).Label
		res.Fallback = true
	}

	if err := s.store.UpdateSummary(ctx, t.ID, summary); err != nil {
		res.Err = fmt.Errorf("failed to store summary: %w", err)
	} else if err := s.store.UpdatePriority(ctx, t.ID, label); err != nil {
		res.Err = fmt.Errorf("failed to store priority: %w", err)
	}
	if res.Err != nil {
		s.metrics.RecordError("refresh")
		s.logger.Error("Failed to refresh thread", zap.String("thread_id", t.ID), zap.Error(res.Err))
		return res
	}

	res.Summary = summary
	res.Priority = label
	s.logger.Info("Thread refreshed",
		zap.String("thread_id", t.ID),
		zap.String("priority", string(label)),
		zap.Bool("placeholder_summary", res.Placeholder))
	return res
}

// placeholder joins message excerpts into a bounded stand-in summary
func (s *Service) placeholder(messages []core.MessageRef) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if e := strings.TrimSpace(m.Excerpt); e != "" {
			parts = append(parts, e)
		}
	}
	return s.textProcessor.Excerpt(strings.Join(parts, " "), s.settings.SummaryMaxLength)
}

// ThreadForMessage returns the thread holding messageID
func (s *Service) ThreadForMessage(ctx context.Context, messageID string) (*core.Thread, error) {
	t, err := s.store.FindByMessageID(ctx, messageID)
	if errors.Is(err, core.ErrThreadNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find thread for %q: %w", messageID, err)
	}
	return t, nil
}

// Threads lists the limit most recently updated threads ordered by priority,
// High first and unprioritized last
func (s *Service) Threads(ctx context.Context, limit int) ([]*core.Thread, error) {
	threads, err := s.store.List(ctx, limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Priority.Rank() < threads[j].Priority.Rank()
	})
	return threads, nil
}
