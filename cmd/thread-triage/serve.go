package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/pipeline"
	"github.com/mikey/thread-triage/internal/ports"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingesters, metrics endpoint and periodic thread refresh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return invoke(serve)
	},
}

// serve is the long running application function that gets all dependencies injected
func serve(
	cfg *config.Config,
	pc config.PipelineConfig,
	logger *zap.Logger,
	service *pipeline.Service,
	ingesters []ports.Ingester,
	reg *prometheus.Registry,
	classifier core.PriorityClassifier,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(ingesters) == 0 {
		logger.Warn("No ingesters enabled, only periodic refresh will run")
	}

	// Start the ingesters
	started := make([]ports.Ingester, 0, len(ingesters))
	for _, ing := range ingesters {
		if err := ing.Start(); err != nil {
			stopIngesters(logger, started)
			return fmt.Errorf("failed to start %s ingester: %w", ing.Name(), err)
		}
		started = append(started, ing)
	}

	// Serve metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              cfg.GetString("metrics.listen_address"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics server starting", zap.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Refresh thread summaries and priorities periodically
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		if pc.RefreshInterval <= 0 {
			return
		}
		ticker := time.NewTicker(pc.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := service.RefreshThreads(ctx, pc.RefreshLimit); err != nil {
					logger.Error("Thread refresh failed", zap.Error(err))
				}
			}
		}
	}()

	logger.Info("Thread triage running",
		zap.Int("ingesters", len(started)),
		zap.String("classifier", classifier.Name()),
		zap.Duration("refresh_interval", pc.RefreshInterval))

	<-ctx.Done()
	logger.Info("Shutting down...")

	stopIngesters(logger, started)
	<-refreshDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop metrics server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

func stopIngesters(logger *zap.Logger, ingesters []ports.Ingester) {
	for _, ing := range ingesters {
		if err := ing.Stop(); err != nil {
			logger.Error("Failed to stop ingester", zap.String("ingester", ing.Name()), zap.Error(err))
		}
	}
}
