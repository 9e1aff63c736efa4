// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LoadKind labels why a dataset was loaded.
type LoadKind string

const (
	// LoadStartup is the initial load before the server starts.
	LoadStartup LoadKind = "startup"

	// LoadReload is a debug-mode reload after an input file changed.
	LoadReload LoadKind = "reload"
)

// Metrics holds the OTel instruments for dataset loading.
//
// # Thread Safety
//
// Safe for concurrent use after creation.
type Metrics struct {
	// DatasetLoadsTotal counts dataset loads by kind and status.
	DatasetLoadsTotal metric.Int64Counter

	// DatasetLoadDuration records load duration in seconds by kind.
	DatasetLoadDuration metric.Float64Histogram
}

// NewMetrics creates the dataset instruments on meter.
//
// # Examples
//
//	m, err := telemetry.NewMetrics(otel.Meter("dietdash"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.DatasetLoadsTotal, err = meter.Int64Counter(
		"dietdash_dataset_loads_total",
		metric.WithDescription("Dataset loads by kind and status"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dataset_loads_total: %w", err)
	}

	m.DatasetLoadDuration, err = meter.Float64Histogram(
		"dietdash_dataset_load_duration_seconds",
		metric.WithDescription("Dataset load duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create dataset_load_duration: %w", err)
	}

	return m, nil
}

// RecordLoad records one dataset load attempt.
func (m *Metrics) RecordLoad(ctx context.Context, kind LoadKind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatasetLoadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", status),
	))
	m.DatasetLoadDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("kind", string(kind)),
	))
}
