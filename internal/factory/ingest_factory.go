package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/ingest"
	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/pipeline"
	"github.com/mikey/thread-triage/internal/ports"
)

// IngestFactory creates message ingesters based on configuration
type IngestFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *pipeline.Service
}

// NewIngestFactory creates a new ingest factory
func NewIngestFactory(cfg *config.Config, logger *zap.Logger, service *pipeline.Service) *IngestFactory {
	return &IngestFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateIngesters creates every enabled ingester
func (f *IngestFactory) CreateIngesters() []ports.Ingester {
	var ingesters []ports.Ingester

	if smtpCfg := f.cfg.GetSMTP(); smtpCfg.Enabled {
		ingesters = append(ingesters, ingest.NewSMTPServer(
			f.service,
			f.logger.Named("smtp"),
			smtpCfg.ListenAddress,
			smtpCfg.Domain,
			smtpCfg.MaxMessageBytes,
		))
	}

	if watchCfg := f.cfg.GetWatch(); watchCfg.Enabled {
		ingesters = append(ingesters, ingest.NewDirWatcher(
			f.service,
			f.logger.Named("watch"),
			watchCfg.Dir,
		))
	}

	return ingesters
}
