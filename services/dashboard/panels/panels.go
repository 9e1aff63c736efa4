// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package panels turns selector values into chart figures.
//
// # Description
//
// Each dashboard panel pairs a selector with a chart region. A panel's figure
// is a pure function of the selected value and the current dataset
// (SunburstFigure, ChoroplethFigure). The Dispatcher runs those functions
// one at a time per panel, so a panel moves Idle → Recomputing → Idle and
// never rebuilds twice at once. The two panels do not share a lock.
//
// # Thread Safety
//
// Dispatcher is safe for concurrent use.
package panels

import (
	"github.com/AleutianAI/dietdash/services/dashboard/aggregate"
	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
)

// Selector and panel identifiers shared with the page.
const (
	MetricSelectorID = "metric-selector"
	DietSelectorID   = "diet-category-selector"
	SunburstTitle    = "Sunburst Chart"
	ChoroplethTitle  = "Country-wise Land use by Diet Type"
)

// DefaultDiet is the diet preselected on the land-use panel.
const DefaultDiet = "Vegans"

// SunburstFigure builds the sunburst panel's figure for metric.
func SunburstFigure(ds *datatypes.Dataset, metric string) (charts.Figure, error) {
	return charts.BuildSunburst(ds.Grouped, metric)
}

// ChoroplethFigure builds the land-use panel's figure for diet.
//
// Returns aggregate.ErrUnknownDiet or aggregate.ErrUnknownCategory when the
// proportion table cannot serve diet. When embedGeometry is set the
// dataset's boundary collection is embedded in the figure.
func ChoroplethFigure(ds *datatypes.Dataset, diet string, opts charts.ChoroplethOptions, embedGeometry bool) (charts.Figure, error) {
	landUse, err := aggregate.ComputeLandUseByCountry(diet, ds.Supplementary, ds.Proportions)
	if err != nil {
		return charts.Figure{}, err
	}
	if embedGeometry {
		opts.Collection = ds.BoundaryCollection
	} else {
		opts.Collection = nil
	}
	return charts.BuildChoropleth(landUse, ds.Boundaries, opts), nil
}

// Options lists what the page's two selectors offer.
type Options struct {
	Metrics       []string `json:"metrics"`
	DefaultMetric string   `json:"default_metric"`
	Diets         []string `json:"diets"`
	DefaultDiet   string   `json:"default_diet"`
}

// BuildOptions returns the selector contents for ds, with the default diet
// chosen by ResolveDefaultDiet.
func BuildOptions(ds *datatypes.Dataset, preferredDiet string) Options {
	opts := Options{
		Metrics:       append([]string(nil), datatypes.Metrics...),
		DefaultMetric: datatypes.Metrics[0],
		Diets:         []string{},
	}
	if ds == nil || ds.Proportions == nil {
		return opts
	}
	opts.Diets = append(opts.Diets, ds.Proportions.Diets...)
	opts.DefaultDiet, _ = ResolveDefaultDiet(ds.Proportions, preferredDiet)
	return opts
}

// ResolveDefaultDiet picks the diet preselected on the land-use panel.
//
// preferred is used when the table has it. Otherwise the table's first diet
// is returned with fellBack set, or "" when the table has no diets.
func ResolveDefaultDiet(table *datatypes.ProportionTable, preferred string) (diet string, fellBack bool) {
	if table.HasDiet(preferred) {
		return preferred, false
	}
	if table == nil || len(table.Diets) == 0 {
		return "", true
	}
	return table.Diets[0], true
}
