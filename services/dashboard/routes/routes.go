// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/AleutianAI/dietdash/services/dashboard/handlers"
	"github.com/AleutianAI/dietdash/services/dashboard/middleware"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Store       handlers.DatasetStore
	Charts      handlers.ChartBuilder
	Metrics     *observability.ChartMetrics
	MetricsHTTP http.Handler
	DefaultDiet string
	RateLimit   float64
	RateBurst   int
}

// SetupRoutes registers every dashboard route on router.
//
// The chart endpoints are named after the chart regions they fill and each
// gets its own rate limiter, so a busy panel cannot starve the other.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/", handlers.Page(deps.Store, deps.DefaultDiet))
	router.GET("/health", handlers.Health(deps.Store, deps.Charts))
	if deps.MetricsHTTP != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHTTP))
	}

	// API version 1 group
	v1 := router.Group(handlers.APIBase)
	{
		v1.GET("/options", handlers.Options(deps.Store, deps.DefaultDiet))

		chartGroup := v1.Group("/charts")
		{
			chartGroup.GET("/"+string(observability.PanelSunburst),
				middleware.RateLimit(deps.RateLimit, deps.RateBurst, observability.PanelSunburst, deps.Metrics),
				handlers.SunburstChart(deps.Charts, deps.Metrics))
			chartGroup.GET("/"+string(observability.PanelChoropleth),
				middleware.RateLimit(deps.RateLimit, deps.RateBurst, observability.PanelChoropleth, deps.Metrics),
				handlers.ChoroplethChart(deps.Charts, deps.Metrics))
		}
	}
}
