// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for chart rebuilds.
//
// # Description
//
// Metrics include:
//   - Rebuild counters (by panel and status)
//   - Rebuild latency histogram
//   - Panels currently recomputing
//   - Error counters by code
//   - Supplementary rows dropped by the last load
//
// # Integration
//
// Metrics are exposed on /metrics through the registry the service passes to
// NewChartMetrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "dietdash"

// Subsystem for chart metrics
const chartsSubsystem = "charts"

// ChartMetrics holds the Prometheus metrics for chart rebuilds.
//
// # Fields
//
//   - RebuildsTotal: Counter of rebuilds by panel and status
//   - RebuildDurationSeconds: Histogram of rebuild duration by panel
//   - Recomputing: Gauge of panels currently rebuilding (0 or 1 per panel)
//   - ErrorsTotal: Counter of failed rebuilds by panel and error code
//   - DroppedRows: Supplementary rows dropped by the current dataset
//
// # Thread Safety
//
// All operations are thread-safe.
type ChartMetrics struct {
	// RebuildsTotal counts chart rebuilds.
	// Labels: panel (treemap-chart, choropleth-chart), status (success, error)
	RebuildsTotal *prometheus.CounterVec

	// RebuildDurationSeconds measures rebuild latency.
	// Labels: panel
	RebuildDurationSeconds *prometheus.HistogramVec

	// Recomputing is 1 while a panel is rebuilding.
	// Labels: panel
	Recomputing *prometheus.GaugeVec

	// ErrorsTotal counts failed rebuilds.
	// Labels: panel, error_code
	ErrorsTotal *prometheus.CounterVec

	DroppedRows prometheus.Gauge
}

// NewChartMetrics creates chart metrics registered on reg.
//
// # Description
//
// Each service instance owns a registry, so tests can build any number of
// services without duplicate-registration panics.
//
// # Inputs
//
//   - reg: Registry to register with. Must not be nil.
//
// # Outputs
//
//   - *ChartMetrics: The registered metrics.
//
// # Examples
//
//	reg := prometheus.NewRegistry()
//	m := observability.NewChartMetrics(reg)
//	m.RecordRebuild(observability.PanelSunburst, 0.01, nil)
//
// # Limitations
//
//   - Panics if called twice with the same registry.
func NewChartMetrics(reg prometheus.Registerer) *ChartMetrics {
	factory := promauto.With(reg)
	return &ChartMetrics{
		RebuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chartsSubsystem,
				Name:      "rebuilds_total",
				Help:      "Total chart rebuilds by panel and status",
			},
			[]string{"panel", "status"},
		),

		RebuildDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chartsSubsystem,
				Name:      "rebuild_duration_seconds",
				Help:      "Chart rebuild duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"panel"},
		),

		Recomputing: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chartsSubsystem,
				Name:      "recomputing",
				Help:      "1 while the panel is rebuilding its chart",
			},
			[]string{"panel"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chartsSubsystem,
				Name:      "errors_total",
				Help:      "Total failed chart rebuilds by panel and error code",
			},
			[]string{"panel", "error_code"},
		),

		DroppedRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "data",
				Name:      "dropped_supplementary_rows",
				Help:      "Supplementary rows dropped for missing values by the current dataset",
			},
		),
	}
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics and API errors.
type ErrorCode string

const (
	// ErrorCodeUnknownCategory indicates an unknown metric, diet or food category.
	ErrorCodeUnknownCategory ErrorCode = "unknown_category"

	// ErrorCodeValidation indicates a malformed request.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeRateLimited indicates the request was throttled.
	ErrorCodeRateLimited ErrorCode = "rate_limited"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Panel Names
// =============================================================================

// Panel names a dashboard panel by its chart region ID.
type Panel string

const (
	// PanelSunburst is the metric sunburst panel.
	PanelSunburst Panel = "treemap-chart"

	// PanelChoropleth is the country land-use map panel.
	PanelChoropleth Panel = "choropleth-chart"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRebuild records a completed rebuild and its duration.
func (m *ChartMetrics) RecordRebuild(panel Panel, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RebuildsTotal.WithLabelValues(string(panel), status).Inc()
	m.RebuildDurationSeconds.WithLabelValues(string(panel)).Observe(seconds)
}

// RecordError records a failed rebuild or rejected request.
func (m *ChartMetrics) RecordError(panel Panel, code ErrorCode) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(panel), string(code)).Inc()
}

// RebuildStarted marks panel as recomputing.
func (m *ChartMetrics) RebuildStarted(panel Panel) {
	if m == nil {
		return
	}
	m.Recomputing.WithLabelValues(string(panel)).Set(1)
}

// RebuildEnded marks panel as idle.
func (m *ChartMetrics) RebuildEnded(panel Panel) {
	if m == nil {
		return
	}
	m.Recomputing.WithLabelValues(string(panel)).Set(0)
}

// SetDroppedRows publishes the dropped-row count of the current dataset.
func (m *ChartMetrics) SetDroppedRows(n int) {
	if m == nil {
		return
	}
	m.DroppedRows.Set(float64(n))
}
