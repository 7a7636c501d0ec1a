// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the verification
// service.
//
// # Description
//
// Metrics cover check requests (mode, conclusion, duration), evidence
// collection per provider, and semantic cache activity. Exposed via the
// /metrics endpoint; all operations are thread-safe via Prometheus's
// internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "factlens"

// Metrics holds all Prometheus metrics for the verification pipeline.
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// ChecksTotal counts claim checks by mode and conclusion.
	// Labels: mode (cache_hit, full_run), conclusion (TRUE, FALSE, ...)
	ChecksTotal *prometheus.CounterVec

	// CheckDurationSeconds measures end-to-end claim check latency.
	// Labels: mode
	CheckDurationSeconds *prometheus.HistogramVec

	// EvidenceItemsTotal counts normalized items returned per provider.
	// Labels: provider (news, web, wikipedia, factcheck)
	EvidenceItemsTotal *prometheus.CounterVec

	// ProviderErrorsTotal counts provider failures.
	// Labels: provider, kind (timeout, rate_limit, provider_error)
	ProviderErrorsTotal *prometheus.CounterVec

	// CacheInsertsTotal counts semantic cache insertions.
	CacheInsertsTotal prometheus.Counter

	// RefreshedEntriesTotal counts entries re-verified by the background
	// refresher.
	RefreshedEntriesTotal prometheus.Counter

	// FeedbackEntriesTotal counts recorded human corrections.
	FeedbackEntriesTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics. Call once at startup;
// a second call panics on duplicate registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		ChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "checks_total",
				Help:      "Total claim checks by mode and conclusion",
			},
			[]string{"mode", "conclusion"},
		),

		CheckDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "check_duration_seconds",
				Help:      "End-to-end claim check latency in seconds",
				Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),

		EvidenceItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evidence_items_total",
				Help:      "Normalized evidence items returned per provider",
			},
			[]string{"provider"},
		),

		ProviderErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provider_errors_total",
				Help:      "Provider failures by provider and kind",
			},
			[]string{"provider", "kind"},
		),

		CacheInsertsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_inserts_total",
				Help:      "Semantic cache insertions",
			},
		),

		RefreshedEntriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "refreshed_entries_total",
				Help:      "Cache entries re-verified by the background refresher",
			},
		),

		FeedbackEntriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "feedback_entries_total",
				Help:      "Recorded human corrections",
			},
		),
	}
	return DefaultMetrics
}

// ObserveCheck records one completed claim check. Nil-safe so tests can
// run without a registry.
func (m *Metrics) ObserveCheck(mode, conclusion string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(mode, conclusion).Inc()
	m.CheckDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}
