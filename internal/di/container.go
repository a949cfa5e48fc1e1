package di

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/factory"
	"github.com/mikey/thread-triage/internal/logging"
	"github.com/mikey/thread-triage/internal/metrics"
	"github.com/mikey/thread-triage/internal/normalize"
	"github.com/mikey/thread-triage/internal/pipeline"
	"github.com/mikey/thread-triage/internal/ports"
	"github.com/mikey/thread-triage/internal/priority"
	"github.com/mikey/thread-triage/internal/summary"
	"github.com/mikey/thread-triage/internal/threading"
	"github.com/mikey/thread-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (config.PipelineConfig, error) {
		return cfg.GetPipeline()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register clock
	if err := container.Provide(func() core.Clock { return time.Now }); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Metrics {
		return metrics.New(reg)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNLPFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIngestFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register thread store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ThreadStore, error) {
		return f.CreateThreadStore()
	}); err != nil {
		return nil, err
	}

	// Register language capabilities
	if err := container.Provide(func(f *factory.NLPFactory) (core.Tagger, error) {
		return f.CreateTagger()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.NLPFactory) (core.SentimentScorer, error) {
		return f.CreateSentimentScorer()
	}); err != nil {
		return nil, err
	}

	// Register scorer
	if err := container.Provide(func(
		cfg *config.Config,
		tagger core.Tagger,
		sentiment core.SentimentScorer,
		logger *zap.Logger,
	) *priority.Scorer {
		tables := priority.DefaultTables()
		if days := cfg.GetPriority().LookaheadDays; days > 0 {
			tables.LookaheadDays = days
		}
		return priority.NewScorer(tables, tagger, sentiment, logger.Named("scorer"))
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.LLMFactory, scorer *priority.Scorer) (core.PriorityClassifier, error) {
		return f.CreateClassifier(scorer)
	}); err != nil {
		return nil, err
	}

	// Register summarizer
	if err := container.Provide(func(pc config.PipelineConfig, logger *zap.Logger) core.Summarizer {
		return summary.NewExtractive(pc.SummarySentences, logger.Named("summary"))
	}); err != nil {
		return nil, err
	}

	// Register normalizer and matcher
	if err := container.Provide(func(logger *zap.Logger, clock core.Clock) *normalize.Normalizer {
		return normalize.NewNormalizer(logger.Named("normalize"), clock)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		store core.ThreadStore,
		tp *utils.TextProcessor,
		pc config.PipelineConfig,
		clock core.Clock,
		logger *zap.Logger,
	) *threading.Matcher {
		return threading.NewMatcher(store, tp, pc.ExcerptLength, clock, logger.Named("threading"))
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(func(
		normalizer *normalize.Normalizer,
		scorer *priority.Scorer,
		matcher *threading.Matcher,
		store core.ThreadStore,
		summarizer core.Summarizer,
		classifier core.PriorityClassifier,
		tp *utils.TextProcessor,
		m *metrics.Metrics,
		clock core.Clock,
		logger *zap.Logger,
		pc config.PipelineConfig,
	) *pipeline.Service {
		return pipeline.NewService(normalizer, scorer, matcher, store, summarizer, classifier, tp, m, clock, logger,
			pipeline.Settings{
				Workers:          pc.Workers,
				SummaryMaxLength: pc.SummaryMaxLength,
			})
	}); err != nil {
		return nil, err
	}

	// Register ingesters
	if err := container.Provide(func(f *factory.IngestFactory) []ports.Ingester {
		return f.CreateIngesters()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
