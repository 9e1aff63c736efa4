// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	"github.com/AleutianAI/dietdash/services/dashboard/loader/loadertest"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/panels"
	"github.com/AleutianAI/dietdash/services/dashboard/ui"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, rateLimit float64) *gin.Engine {
	t.Helper()

	ds, err := loader.Load(context.Background(), loadertest.Write(t, t.TempDir()))
	require.NoError(t, err)
	store := loader.NewStore(ds)
	reg := prometheus.NewRegistry()
	metrics := observability.NewChartMetrics(reg)

	tmpl, err := ui.Templates()
	require.NoError(t, err)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	SetupRoutes(router, Deps{
		Store:       store,
		Charts:      panels.NewDispatcher(store, panels.Config{Choropleth: charts.DefaultChoroplethOptions(), Metrics: metrics}),
		Metrics:     metrics,
		MetricsHTTP: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DefaultDiet: panels.DefaultDiet,
		RateLimit:   rateLimit,
		RateBurst:   1,
	})
	return router
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_Registered(t *testing.T) {
	router := newRouter(t, 0)

	registered := make(map[string]bool)
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /",
		"GET /health",
		"GET /metrics",
		"GET /v1/options",
		"GET /v1/charts/treemap-chart",
		"GET /v1/charts/choropleth-chart",
	} {
		assert.True(t, registered[want], "route %s not registered", want)
	}
}

func TestSetupRoutes_Serve(t *testing.T) {
	router := newRouter(t, 0)

	tests := []struct {
		target string
		status int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/v1/options", http.StatusOK},
		{"/v1/charts/treemap-chart?metric-selector=mean_land", http.StatusOK},
		{"/v1/charts/choropleth-chart?diet-category-selector=Vegetarians", http.StatusOK},
		{"/v1/charts/choropleth-chart?diet-category-selector=Nope", http.StatusBadRequest},
		{"/v1/charts/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(router, tt.target).Code)
		})
	}
}

func TestSetupRoutes_MetricsExposeRebuilds(t *testing.T) {
	router := newRouter(t, 0)
	serve(router, "/v1/charts/treemap-chart?metric-selector=mean_bio")

	w := serve(router, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dietdash_charts_rebuilds_total")
}

func TestSetupRoutes_RateLimitPerPanel(t *testing.T) {
	router := newRouter(t, 0.001)

	first := serve(router, "/v1/charts/treemap-chart?metric-selector=mean_bio")
	second := serve(router, "/v1/charts/treemap-chart?metric-selector=mean_bio")
	other := serve(router, "/v1/charts/choropleth-chart?diet-category-selector=Vegans")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code, "limiters are per panel")
}

func TestSetupRoutes_NoMetricsHandler(t *testing.T) {
	router := gin.New()
	store := loader.NewStore(nil)
	SetupRoutes(router, Deps{Store: store, Charts: panels.NewDispatcher(store, panels.Config{})})

	for _, r := range router.Routes() {
		assert.NotEqual(t, "/metrics", r.Path)
	}
}
