// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP request handlers for the dashboard service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/aggregate"
	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/middleware"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/panels"
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
	"github.com/AleutianAI/dietdash/services/dashboard/ui"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("dietdash.handlers")

// APIBase is the path prefix of the versioned API.
const APIBase = "/v1"

// DatasetStore is the read side of loader.Store.
type DatasetStore interface {
	Current() *datatypes.Dataset
	LoadedAt() time.Time
}

// ChartBuilder rebuilds panel figures. panels.Dispatcher implements it.
type ChartBuilder interface {
	Sunburst(ctx context.Context, metric string) (charts.Figure, error)
	Choropleth(ctx context.Context, diet string) (charts.Figure, error)
	State(panel observability.Panel) panels.State
}

// =============================================================================
// Page and options
// =============================================================================

// Page renders the dashboard with the current selector options.
//
// The router must have ui.Templates installed with SetHTMLTemplate.
func Page(store DatasetStore, defaultDiet string) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := panels.BuildOptions(store.Current(), defaultDiet)
		c.HTML(http.StatusOK, ui.PageTemplate, ui.NewPage(opts, APIBase))
	}
}

// Options returns the selector contents as JSON.
func Options(store DatasetStore, defaultDiet string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, panels.BuildOptions(store.Current(), defaultDiet))
	}
}

// =============================================================================
// Charts
// =============================================================================

// SunburstChart handles GET /v1/charts/treemap-chart?metric-selector=<metric>.
//
// # Description
//
// Rebuilds the sunburst for the selected metric and returns the Plotly
// figure. Only this panel is rebuilt; the map panel is untouched.
//
// # Outputs
//
//   - 200 with the figure JSON.
//   - 400 "validation" when the query parameter is missing.
//   - 400 "unknown_category" for an unknown metric.
func SunburstChart(builder ChartBuilder, metrics *observability.ChartMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.SunburstChart")
		defer span.End()

		var q datatypes.SunburstQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			writeError(c, span, observability.PanelSunburst, metrics, errValidation(panels.MetricSelectorID))
			return
		}
		span.SetAttributes(attribute.String("metric", q.Metric))

		fig, err := builder.Sunburst(ctx, q.Metric)
		if err != nil {
			writeError(c, span, observability.PanelSunburst, metrics, err)
			return
		}
		c.JSON(http.StatusOK, fig)
	}
}

// ChoroplethChart handles GET /v1/charts/choropleth-chart?diet-category-selector=<diet>.
//
// # Outputs
//
//   - 200 with the figure JSON.
//   - 400 "validation" when the query parameter is missing.
//   - 400 "unknown_category" for an unknown diet or food category.
func ChoroplethChart(builder ChartBuilder, metrics *observability.ChartMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.ChoroplethChart")
		defer span.End()

		var q datatypes.ChoroplethQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			writeError(c, span, observability.PanelChoropleth, metrics, errValidation(panels.DietSelectorID))
			return
		}
		span.SetAttributes(attribute.String("diet", q.Diet))

		fig, err := builder.Choropleth(ctx, q.Diet)
		if err != nil {
			writeError(c, span, observability.PanelChoropleth, metrics, err)
			return
		}
		c.JSON(http.StatusOK, fig)
	}
}

// =============================================================================
// Health
// =============================================================================

// Health reports liveness, dataset row counts and panel states.
func Health(store DatasetStore, builder ChartBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ds := store.Current()
		status := "ok"
		if ds == nil {
			status = "no_data"
		}
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:   status,
			LoadedAt: store.LoadedAt().UTC().Format(time.RFC3339),
			Dataset:  ds.Summarize(),
			Panels: map[string]string{
				string(observability.PanelSunburst):   builder.State(observability.PanelSunburst).String(),
				string(observability.PanelChoropleth): builder.State(observability.PanelChoropleth).String(),
			},
		})
	}
}

// =============================================================================
// Errors
// =============================================================================

// validationError reports a missing or malformed query parameter.
type validationError struct {
	param string
}

func (e validationError) Error() string {
	return "missing query parameter " + e.param
}

func errValidation(param string) error {
	return validationError{param: param}
}

// writeError maps err to a status and code, records it, and writes the JSON
// error body.
func writeError(c *gin.Context, span trace.Span, panel observability.Panel, metrics *observability.ChartMetrics, err error) {
	status, code := classify(err)
	telemetry.RecordError(span, err)
	metrics.RecordError(panel, code)

	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.Default())
	attrs := []any{"panel", panel, "code", code, "error", err, "request_id", middleware.GetRequestID(c)}
	if status >= http.StatusInternalServerError {
		logger.Error("chart request failed", attrs...)
	} else {
		logger.Info("chart request rejected", attrs...)
	}

	c.AbortWithStatusJSON(status, datatypes.ErrorResponse{Error: err.Error(), Code: string(code)})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, observability.ErrorCode) {
	var ve validationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, observability.ErrorCodeValidation
	case errors.Is(err, charts.ErrUnknownMetric),
		errors.Is(err, aggregate.ErrUnknownDiet),
		errors.Is(err, aggregate.ErrUnknownCategory):
		return http.StatusBadRequest, observability.ErrorCodeUnknownCategory
	case errors.Is(err, panels.ErrNoDataset),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, observability.ErrorCodeInternal
	default:
		return http.StatusInternalServerError, observability.ErrorCodeInternal
	}
}
