// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package panels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("dietdash.panels")

// ErrNoDataset is returned when the dispatcher's source has no dataset.
var ErrNoDataset = errors.New("no dataset loaded")

// State is a panel's rebuild state.
type State int32

const (
	// Idle means the panel is showing its last figure.
	Idle State = iota

	// Recomputing means a rebuild is running.
	Recomputing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recomputing:
		return "recomputing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DatasetSource supplies the dataset a rebuild reads. loader.Store
// implements it.
type DatasetSource interface {
	Current() *datatypes.Dataset
}

// Config controls Dispatcher.
type Config struct {
	// Choropleth sets the map's display range.
	Choropleth charts.ChoroplethOptions

	// EmbedGeometry embeds the boundary polygons in map figures.
	EmbedGeometry bool

	// Metrics records rebuilds. Nil disables recording.
	Metrics *observability.ChartMetrics
}

// panelRunner serializes rebuilds of one panel.
type panelRunner struct {
	id    observability.Panel
	slot  chan struct{}
	state atomic.Int32
}

func newPanelRunner(id observability.Panel) *panelRunner {
	return &panelRunner{id: id, slot: make(chan struct{}, 1)}
}

// Dispatcher runs panel rebuilds.
//
// # Description
//
// Each panel has a single rebuild slot. A request for a panel waits for the
// slot (or for its context to end), marks the panel Recomputing, reads the
// current dataset once and calls the panel's figure function. Requests for
// different panels never wait on each other.
//
// # Thread Safety
//
// Safe for concurrent use.
type Dispatcher struct {
	source     DatasetSource
	cfg        Config
	sunburst   *panelRunner
	choropleth *panelRunner
}

// NewDispatcher returns a Dispatcher reading datasets from source.
func NewDispatcher(source DatasetSource, cfg Config) *Dispatcher {
	return &Dispatcher{
		source:     source,
		cfg:        cfg,
		sunburst:   newPanelRunner(observability.PanelSunburst),
		choropleth: newPanelRunner(observability.PanelChoropleth),
	}
}

// Sunburst rebuilds the sunburst panel for metric.
//
// # Outputs
//
//   - charts.Figure: The new figure.
//   - error: charts.ErrUnknownMetric, ErrNoDataset, or ctx.Err() if the
//     context ended while waiting for the panel.
func (d *Dispatcher) Sunburst(ctx context.Context, metric string) (charts.Figure, error) {
	return d.run(ctx, d.sunburst, attribute.String("metric", metric), func(ds *datatypes.Dataset) (charts.Figure, error) {
		return SunburstFigure(ds, metric)
	})
}

// Choropleth rebuilds the land-use panel for diet.
//
// # Outputs
//
//   - charts.Figure: The new figure.
//   - error: aggregate.ErrUnknownDiet, aggregate.ErrUnknownCategory,
//     ErrNoDataset, or ctx.Err().
func (d *Dispatcher) Choropleth(ctx context.Context, diet string) (charts.Figure, error) {
	return d.run(ctx, d.choropleth, attribute.String("diet", diet), func(ds *datatypes.Dataset) (charts.Figure, error) {
		return ChoroplethFigure(ds, diet, d.cfg.Choropleth, d.cfg.EmbedGeometry)
	})
}

// State reports the current state of panel.
func (d *Dispatcher) State(panel observability.Panel) State {
	switch panel {
	case observability.PanelSunburst:
		return State(d.sunburst.state.Load())
	case observability.PanelChoropleth:
		return State(d.choropleth.state.Load())
	default:
		return Idle
	}
}

// run executes build while holding p's rebuild slot.
func (d *Dispatcher) run(ctx context.Context, p *panelRunner, selected attribute.KeyValue, build func(*datatypes.Dataset) (charts.Figure, error)) (charts.Figure, error) {
	ctx, span := tracer.Start(ctx, "panels.rebuild")
	defer span.End()
	span.SetAttributes(attribute.String("panel", string(p.id)), selected)

	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		telemetry.RecordError(span, ctx.Err())
		return charts.Figure{}, ctx.Err()
	}
	defer func() { <-p.slot }()

	p.state.Store(int32(Recomputing))
	d.cfg.Metrics.RebuildStarted(p.id)
	defer func() {
		p.state.Store(int32(Idle))
		d.cfg.Metrics.RebuildEnded(p.id)
	}()

	start := time.Now()
	ds := d.source.Current()
	var (
		fig charts.Figure
		err error
	)
	if ds == nil {
		err = ErrNoDataset
	} else {
		fig, err = build(ds)
	}
	d.cfg.Metrics.RecordRebuild(p.id, time.Since(start).Seconds(), err)

	if err != nil {
		telemetry.RecordError(span, err)
		slog.Debug("panel rebuild failed", "panel", p.id, "error", err)
		return charts.Figure{}, err
	}
	slog.Debug("panel rebuilt", "panel", p.id, "duration", time.Since(start).String())
	return fig, nil
}
