// Package metrics exposes Prometheus collectors for the triage pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
//
//   - triage_messages_total{stage} - messages threaded, by matching stage
//   - triage_message_priority_total{priority} - per-message heuristic labels
//   - triage_scoring_mode_total{mode} - scorer fallbacks in use
//   - triage_errors_total{operation} - failed operations
//   - triage_threads_merged_total - duplicate threads reconciled
//   - triage_refresh_duration_seconds - thread refresh latency
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	PriorityTotal    *prometheus.CounterVec
	ScoringModeTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	MergedTotal      prometheus.Counter
	RefreshDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_messages_total",
				Help: "Total number of messages threaded",
			},
			[]string{"stage"},
		),
		PriorityTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_message_priority_total",
				Help: "Total number of messages per heuristic priority label",
			},
			[]string{"priority"},
		),
		ScoringModeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_scoring_mode_total",
				Help: "Total number of scores per scoring mode",
			},
			[]string{"mode"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_errors_total",
				Help: "Total number of failed operations",
			},
			[]string{"operation"},
		),
		MergedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_threads_merged_total",
				Help: "Total number of duplicate threads merged",
			},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_refresh_duration_seconds",
				Help:    "Duration of thread summary and priority refreshes",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
	}
}

// RecordMessage records a threaded message
func (m *Metrics) RecordMessage(stage, priority, mode string, merged int) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(stage).Inc()
	m.PriorityTotal.WithLabelValues(priority).Inc()
	m.ScoringModeTotal.WithLabelValues(mode).Inc()
	if merged > 0 {
		m.MergedTotal.Add(float64(merged))
	}
}

// RecordError records a failed operation
func (m *Metrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(operation).Inc()
}

// ObserveRefresh records the duration of a refresh started at start
func (m *Metrics) ObserveRefresh(start time.Time) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}
