// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package charts builds declarative Plotly figures for the dashboard.
//
// # Description
//
// A Figure is plain data: the JSON document that Plotly.react accepts as
// {data, layout}. Builders here are pure functions of their inputs. They do
// not read the dataset store and never mutate the slices they are given, so
// they can run concurrently on any goroutine.
//
// Figures must marshal with encoding/json, which rejects NaN. Builders
// therefore replace non-finite numbers with 0 before emitting them.
package charts

import (
	"errors"
	"math"

	geojson "github.com/paulmach/go.geojson"
)

// ErrUnknownMetric is returned when a sunburst is requested for a metric that
// is not one of datatypes.Metrics.
var ErrUnknownMetric = errors.New("unknown metric")

// =============================================================================
// Figure document
// =============================================================================

// Figure is a complete Plotly figure.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one Plotly trace. Only the fields used by the dashboard's two
// trace types (sunburst and choropleth) are modeled.
type Trace struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	// Sunburst
	IDs          []string  `json:"ids,omitempty"`
	Labels       []string  `json:"labels,omitempty"`
	Parents      []string  `json:"parents,omitempty"`
	Values       []float64 `json:"values,omitempty"`
	BranchValues string    `json:"branchvalues,omitempty"`

	// Choropleth
	Locations    []string                   `json:"locations,omitempty"`
	Z            []float64                  `json:"z,omitempty"`
	LocationMode string                     `json:"locationmode,omitempty"`
	GeoJSON      *geojson.FeatureCollection `json:"geojson,omitempty"`
	FeatureIDKey string                     `json:"featureidkey,omitempty"`
	HoverText    []string                   `json:"hovertext,omitempty"`

	Marker        *Marker `json:"marker,omitempty"`
	ColorAxis     string  `json:"coloraxis,omitempty"`
	HoverTemplate string  `json:"hovertemplate,omitempty"`
}

// Marker carries per-node colors for a sunburst.
type Marker struct {
	Colors    []float64 `json:"colors,omitempty"`
	ColorAxis string    `json:"coloraxis,omitempty"`
}

// Layout is the figure layout.
type Layout struct {
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	Margin       *Margin    `json:"margin,omitempty"`
	ColorAxis    *ColorAxis `json:"coloraxis,omitempty"`
	Geo          *Geo       `json:"geo,omitempty"`
	PaperBGColor string     `json:"paper_bgcolor,omitempty"`
	PlotBGColor  string     `json:"plot_bgcolor,omitempty"`
}

// Margin is the plot margin in pixels.
type Margin struct {
	T int `json:"t"`
	B int `json:"b"`
	L int `json:"l"`
	R int `json:"r"`
}

// ColorAxis is a shared continuous color axis.
//
// CMin and CMax are pointers so an unset range lets Plotly autoscale.
type ColorAxis struct {
	ColorScale Colorscale `json:"colorscale"`
	CMin       *float64   `json:"cmin,omitempty"`
	CMax       *float64   `json:"cmax,omitempty"`
	ColorBar   ColorBar   `json:"colorbar"`
}

// ColorBar configures the color legend.
type ColorBar struct {
	Title ColorBarTitle `json:"title"`
}

// ColorBarTitle is the color legend title. Text is always emitted, so an
// empty title is explicit.
type ColorBarTitle struct {
	Text string `json:"text"`
}

// Geo configures the map projection of a choropleth.
type Geo struct {
	FitBounds string `json:"fitbounds,omitempty"`
	ShowFrame bool   `json:"showframe"`
	ShowLakes bool   `json:"showlakes"`
	BGColor   string `json:"bgcolor,omitempty"`
}

// finite returns v, or 0 when v is NaN or infinite.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
