// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package panels_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/aggregate"
	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	"github.com/AleutianAI/dietdash/services/dashboard/loader/loadertest"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/panels"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *datatypes.Dataset {
	t.Helper()
	ds, err := loader.Load(context.Background(), loadertest.Write(t, t.TempDir()))
	require.NoError(t, err)
	return ds
}

// zByISO maps choropleth locations to their values.
func zByISO(t *testing.T, fig charts.Figure) map[string]float64 {
	t.Helper()
	require.Len(t, fig.Data, 1)
	out := make(map[string]float64)
	for i, loc := range fig.Data[0].Locations {
		out[loc] = fig.Data[0].Z[i]
	}
	return out
}

// =============================================================================
// Figure functions
// =============================================================================

func TestSunburstFigure_FromFixture(t *testing.T) {
	ds := loadFixture(t)

	fig, err := panels.SunburstFigure(ds, datatypes.MetricGHGs)

	require.NoError(t, err)
	tr := fig.Data[0]
	for i, id := range tr.IDs {
		if id == "vegan/20-29/female" {
			assert.Equal(t, 15.0, tr.Values[i])
			return
		}
	}
	t.Fatal("vegan/20-29/female leaf missing")
}

func TestChoroplethFigure_PerDiet(t *testing.T) {
	ds := loadFixture(t)

	tests := []struct {
		diet string
		want map[string]float64
	}{
		{"Vegans", map[string]float64{"BRA": 0, "FRA": 20, "JPN": 0}},
		{"Meat eaters", map[string]float64{"BRA": 55, "FRA": 12, "JPN": 0}},
		{"Vegetarians", map[string]float64{"BRA": 25, "FRA": 0, "JPN": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.diet, func(t *testing.T) {
			fig, err := panels.ChoroplethFigure(ds, tt.diet, charts.DefaultChoroplethOptions(), false)

			require.NoError(t, err)
			got := zByISO(t, fig)
			for iso, v := range tt.want {
				assert.InDelta(t, v, got[iso], 1e-9, iso)
			}
			assert.Nil(t, fig.Data[0].GeoJSON)
		})
	}
}

func TestChoroplethFigure_UnknownDiet(t *testing.T) {
	ds := loadFixture(t)

	_, err := panels.ChoroplethFigure(ds, "Fruitarians", charts.DefaultChoroplethOptions(), false)

	assert.ErrorIs(t, err, aggregate.ErrUnknownDiet)
}

func TestChoroplethFigure_EmbedGeometry(t *testing.T) {
	ds := loadFixture(t)

	fig, err := panels.ChoroplethFigure(ds, "Vegans", charts.DefaultChoroplethOptions(), true)

	require.NoError(t, err)
	assert.Same(t, ds.BoundaryCollection, fig.Data[0].GeoJSON)
}

// =============================================================================
// Options
// =============================================================================

func TestBuildOptions(t *testing.T) {
	ds := loadFixture(t)

	opts := panels.BuildOptions(ds, panels.DefaultDiet)

	assert.Equal(t, datatypes.Metrics, opts.Metrics)
	assert.Equal(t, "mean_bio", opts.DefaultMetric)
	assert.Equal(t, []string{"Vegans", "Meat eaters", "Vegetarians"}, opts.Diets)
	assert.Equal(t, "Vegans", opts.DefaultDiet)
}

func TestBuildOptions_FallbackDiet(t *testing.T) {
	ds := loadFixture(t)

	opts := panels.BuildOptions(ds, "Pescatarians")

	assert.Equal(t, "Vegans", opts.DefaultDiet, "first diet is used")
}

func TestBuildOptions_NoDataset(t *testing.T) {
	opts := panels.BuildOptions(nil, panels.DefaultDiet)

	assert.Empty(t, opts.Diets)
	assert.NotNil(t, opts.Diets)
	assert.Equal(t, "", opts.DefaultDiet)
}

func TestResolveDefaultDiet(t *testing.T) {
	table := &datatypes.ProportionTable{
		Diets:  []string{"Meat eaters", "Vegans"},
		Values: map[string]map[string]float64{"Meat eaters": {}, "Vegans": {}},
	}

	diet, fellBack := panels.ResolveDefaultDiet(table, "Vegans")
	assert.Equal(t, "Vegans", diet)
	assert.False(t, fellBack)

	diet, fellBack = panels.ResolveDefaultDiet(table, "Fish")
	assert.Equal(t, "Meat eaters", diet)
	assert.True(t, fellBack)

	diet, fellBack = panels.ResolveDefaultDiet(nil, "Vegans")
	assert.Equal(t, "", diet)
	assert.True(t, fellBack)
}

// =============================================================================
// Dispatcher
// =============================================================================

// gatedSource blocks the first Current call until hold is closed.
type gatedSource struct {
	ds      *datatypes.Dataset
	block   atomic.Bool
	entered chan struct{}
	hold    chan struct{}
}

func (s *gatedSource) Current() *datatypes.Dataset {
	if s.block.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.hold
	}
	return s.ds
}

// countingSource tracks how many Current calls overlap.
type countingSource struct {
	ds      *datatypes.Dataset
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *countingSource) Current() *datatypes.Dataset {
	n := s.active.Add(1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	s.active.Add(-1)
	return s.ds
}

func TestDispatcher_PanelsAreIndependent(t *testing.T) {
	src := &gatedSource{ds: loadFixture(t), entered: make(chan struct{}), hold: make(chan struct{})}
	src.block.Store(true)
	d := panels.NewDispatcher(src, panels.Config{Choropleth: charts.DefaultChoroplethOptions()})

	done := make(chan error, 1)
	go func() {
		_, err := d.Sunburst(context.Background(), datatypes.MetricGHGs)
		done <- err
	}()
	<-src.entered
	assert.Equal(t, panels.Recomputing, d.State(observability.PanelSunburst))
	assert.Equal(t, panels.Idle, d.State(observability.PanelChoropleth))

	// The map panel is not blocked by the busy sunburst.
	_, err := d.Choropleth(context.Background(), "Vegans")
	require.NoError(t, err)

	// A second sunburst request waits for the first.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.Sunburst(ctx, datatypes.MetricLand)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(src.hold)
	require.NoError(t, <-done)
	assert.Equal(t, panels.Idle, d.State(observability.PanelSunburst))
}

func TestDispatcher_SerializesOnePanel(t *testing.T) {
	src := &countingSource{ds: loadFixture(t)}
	d := panels.NewDispatcher(src, panels.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.Sunburst(context.Background(), datatypes.Metrics[i%len(datatypes.Metrics)])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.maxSeen.Load())
}

func TestDispatcher_Errors(t *testing.T) {
	store := loader.NewStore(loadFixture(t))
	d := panels.NewDispatcher(store, panels.Config{Choropleth: charts.DefaultChoroplethOptions()})

	_, err := d.Sunburst(context.Background(), "mean_noise")
	assert.ErrorIs(t, err, charts.ErrUnknownMetric)

	_, err = d.Choropleth(context.Background(), "Fruitarians")
	assert.ErrorIs(t, err, aggregate.ErrUnknownDiet)

	assert.Equal(t, panels.Idle, d.State(observability.PanelSunburst))
	assert.Equal(t, panels.Idle, d.State(observability.PanelChoropleth))
}

func TestDispatcher_NoDataset(t *testing.T) {
	d := panels.NewDispatcher(loader.NewStore(nil), panels.Config{})

	_, err := d.Sunburst(context.Background(), datatypes.MetricGHGs)

	assert.ErrorIs(t, err, panels.ErrNoDataset)
}

func TestDispatcher_ReadsSwappedDataset(t *testing.T) {
	store := loader.NewStore(&datatypes.Dataset{})
	d := panels.NewDispatcher(store, panels.Config{Choropleth: charts.DefaultChoroplethOptions()})

	_, err := d.Choropleth(context.Background(), "Vegans")
	require.ErrorIs(t, err, aggregate.ErrUnknownDiet)

	store.Swap(loadFixture(t))

	_, err = d.Choropleth(context.Background(), "Vegans")
	assert.NoError(t, err)
}

func TestDispatcher_RecordsMetrics(t *testing.T) {
	m := observability.NewChartMetrics(prometheus.NewRegistry())
	d := panels.NewDispatcher(loader.NewStore(loadFixture(t)), panels.Config{
		Choropleth: charts.DefaultChoroplethOptions(),
		Metrics:    m,
	})

	_, _ = d.Sunburst(context.Background(), datatypes.MetricGHGs)
	_, _ = d.Choropleth(context.Background(), "Fruitarians")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildsTotal.WithLabelValues("treemap-chart", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildsTotal.WithLabelValues("choropleth-chart", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Recomputing.WithLabelValues("treemap-chart")))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", panels.Idle.String())
	assert.Equal(t, "recomputing", panels.Recomputing.String())
	assert.Equal(t, "State(7)", panels.State(7).String())
}
