// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/config"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	"github.com/AleutianAI/dietdash/services/dashboard/loader/loadertest"
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func fixtureConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Paths: loadertest.Write(t, t.TempDir()),
		Telemetry: telemetry.Config{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterPrometheus,
		},
	}
}

func newService(t *testing.T, cfg Config) Service {
	t.Helper()
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func get(svc Service, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// =============================================================================
// Config Tests
// =============================================================================

// TestApplyConfigDefaults_AllDefaults verifies default values are applied.
func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	// Act
	result := applyConfigDefaults(Config{})

	// Assert
	assert.Equal(t, 8000, result.Port, "default port should be 8000")
	assert.Equal(t, "data.csv", result.Paths.Respondents)
	assert.Equal(t, "supple_agg_df.xlsx", result.Paths.Supplementary)
	assert.Equal(t, "dietary_data_proportioned.xlsx", result.Paths.Proportions)
	assert.Equal(t, "naturalearth_lowres.geojson", result.Paths.Boundaries)
	assert.Equal(t, "Vegans", result.DefaultDiet)
	assert.Equal(t, 0.0, result.ColorRangeMin)
	assert.Equal(t, 200.0, result.ColorRangeMax)
	assert.Equal(t, ServiceName, result.Telemetry.ServiceName)
	assert.Equal(t, telemetry.ExporterNone, result.Telemetry.TraceExporter)
	assert.Equal(t, telemetry.ExporterPrometheus, result.Telemetry.MetricExporter)
	assert.Equal(t, 5, result.RateBurst)
	assert.Equal(t, 250*time.Millisecond, result.ReloadDebounce)
}

// TestApplyConfigDefaults_PreservesCustomValues verifies custom values are not overwritten.
func TestApplyConfigDefaults_PreservesCustomValues(t *testing.T) {
	cfg := Config{
		Port:          9000,
		DefaultDiet:   "Vegetarians",
		ColorRangeMin: 10,
		ColorRangeMax: 50,
		RateBurst:     2,
		Paths:         loader.Paths{Respondents: "/srv/r.csv"},
	}

	result := applyConfigDefaults(cfg)

	assert.Equal(t, 9000, result.Port)
	assert.Equal(t, "Vegetarians", result.DefaultDiet)
	assert.Equal(t, 10.0, result.ColorRangeMin)
	assert.Equal(t, 50.0, result.ColorRangeMax)
	assert.Equal(t, 2, result.RateBurst)
	assert.Equal(t, "/srv/r.csv", result.Paths.Respondents)
	assert.Equal(t, "supple_agg_df.xlsx", result.Paths.Supplementary, "missing paths still default")
}

func TestConfigFromFile(t *testing.T) {
	f := config.DefaultConfig()
	f.Port = 8100
	f.Debug = true
	f.UI.EmbedGeometry = true
	f.Telemetry.TraceExporter = telemetry.ExporterStdout
	f.HTTP.RateLimit = 3

	cfg := ConfigFromFile(f)

	assert.Equal(t, 8100, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.EmbedGeometry)
	assert.Equal(t, f.Data.Boundaries, cfg.Paths.Boundaries)
	assert.Equal(t, telemetry.ExporterStdout, cfg.Telemetry.TraceExporter)
	assert.Equal(t, ServiceName, cfg.Telemetry.ServiceName)
	assert.Equal(t, 3.0, cfg.RateLimit)
	assert.Equal(t, f.HTTP.RateBurst, cfg.RateBurst)
}

// =============================================================================
// New Tests
// =============================================================================

func TestNew_ServesDashboard(t *testing.T) {
	svc := newService(t, fixtureConfig(t))

	page := get(svc, "/")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Sunburst Chart")
	assert.Contains(t, page.Body.String(), "Country-wise Land use by Diet Type")
	assert.NotEmpty(t, page.Header().Get("X-Request-ID"))

	sunburst := get(svc, "/v1/charts/treemap-chart?metric-selector=mean_ghgs")
	assert.Equal(t, http.StatusOK, sunburst.Code)

	choropleth := get(svc, "/v1/charts/choropleth-chart?diet-category-selector=Vegans")
	assert.Equal(t, http.StatusOK, choropleth.Code)
}

func TestNew_UnknownDietKeepsServing(t *testing.T) {
	svc := newService(t, fixtureConfig(t))

	bad := get(svc, "/v1/charts/choropleth-chart?diet-category-selector=Carnivores")
	good := get(svc, "/v1/charts/choropleth-chart?diet-category-selector=Vegetarians")

	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, http.StatusOK, good.Code)
}

func TestNew_MetricsEndpoint(t *testing.T) {
	svc := newService(t, fixtureConfig(t))
	get(svc, "/v1/charts/treemap-chart?metric-selector=mean_land")

	w := get(svc, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "dietdash_charts_rebuilds_total")
	assert.Contains(t, body, "dietdash_data_dropped_supplementary_rows 2")
	assert.Contains(t, body, "dietdash_dataset_loads_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_MissingInputIsFatal(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Paths.Proportions = filepath.Join(t.TempDir(), "absent.xlsx")

	svc, err := New(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_UnknownExporter(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Telemetry.TraceExporter = "jaeger"

	_, err := New(context.Background(), cfg)

	assert.ErrorIs(t, err, telemetry.ErrUnknownExporter)
}

func TestNew_FallbackDefaultDiet(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.DefaultDiet = "Pescatarians"
	svc := newService(t, cfg)

	w := get(svc, "/v1/options")

	require.Equal(t, http.StatusOK, w.Code)
	var opts struct {
		DefaultDiet string `json:"default_diet"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
	assert.NotEqual(t, "Pescatarians", opts.DefaultDiet)
	assert.NotEmpty(t, opts.DefaultDiet)
}

// =============================================================================
// Debug Reload Tests
// =============================================================================

func TestNew_DebugReloadsChangedInput(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Debug = true
	cfg.ReloadDebounce = 30 * time.Millisecond
	svc := newService(t, cfg)

	updated := loadertest.RespondentsCSV + "vegan,30-39,male,1,1,1,1,1,10\n"
	require.NoError(t, os.WriteFile(cfg.Paths.Respondents, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		var health datatypes.HealthResponse
		w := get(svc, "/health")
		if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
			return false
		}
		return health.Dataset.Respondents == 5
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNew_DebugKeepsDatasetOnBadReload(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Debug = true
	cfg.ReloadDebounce = 30 * time.Millisecond
	svc := newService(t, cfg)

	require.NoError(t, os.WriteFile(cfg.Paths.Respondents, []byte("not,a,valid\nheader,row,here\n"), 0o644))
	time.Sleep(300 * time.Millisecond)

	w := get(svc, "/v1/charts/treemap-chart?metric-selector=mean_ghgs")
	assert.Equal(t, http.StatusOK, w.Code, "previous dataset still served")
}

// =============================================================================
// Run Tests
// =============================================================================

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Port = freePort(t)
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
