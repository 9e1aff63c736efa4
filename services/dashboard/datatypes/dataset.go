// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the in-memory tables of the diet impact dashboard.
//
// # Description
//
// Every table is loaded once at startup by the loader package and is
// read-only afterwards. Derived values (grouped means, proportionated land
// use) are computed into fresh slices by the aggregate package; nothing in
// this package is mutated after construction.
//
// # Thread Safety
//
// All types are safe for concurrent reads once published.
package datatypes

import (
	"math"

	geojson "github.com/paulmach/go.geojson"
)

// =============================================================================
// Metrics
// =============================================================================

// Metric names, in the order the selector offers them.
const (
	MetricBiodiversity = "mean_bio"
	MetricLand         = "mean_land"
	MetricWaterUse     = "mean_watuse"
	MetricGHGs         = "mean_ghgs"
	MetricEutrophy     = "mean_eut"
)

// Metrics is the fixed metric set. The first entry is the selector default.
var Metrics = []string{
	MetricBiodiversity,
	MetricLand,
	MetricWaterUse,
	MetricGHGs,
	MetricEutrophy,
}

// IsMetric reports whether name is one of Metrics.
func IsMetric(name string) bool {
	for _, m := range Metrics {
		if m == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Respondent metrics
// =============================================================================

// RespondentRow is one record of the respondent metrics CSV.
//
// # Fields
//
//   - DietGroup, AgeGroup, Sex: grouping keys. Empty means missing.
//   - Values: metric name to value. Empty cells are stored as NaN.
type RespondentRow struct {
	DietGroup string
	AgeGroup  string
	Sex       string
	Values    map[string]float64
}

// Value returns the metric value, or NaN if the metric is absent.
func (r RespondentRow) Value(metric string) float64 {
	v, ok := r.Values[metric]
	if !ok {
		return math.NaN()
	}
	return v
}

// GroupKey identifies one (diet_group, age_group, sex) partition.
type GroupKey struct {
	DietGroup string
	AgeGroup  string
	Sex       string
}

// Less orders keys by diet group, then age group, then sex.
func (k GroupKey) Less(o GroupKey) bool {
	if k.DietGroup != o.DietGroup {
		return k.DietGroup < o.DietGroup
	}
	if k.AgeGroup != o.AgeGroup {
		return k.AgeGroup < o.AgeGroup
	}
	return k.Sex < o.Sex
}

// GroupedRow holds the per-partition mean of each metric.
//
// Count is the number of source rows in the partition. A metric whose cells
// were all empty in the partition has a NaN mean.
type GroupedRow struct {
	GroupKey
	Count int
	Means map[string]float64
}

// Mean returns the grouped mean for metric, or NaN if it was not computed.
func (g GroupedRow) Mean(metric string) float64 {
	v, ok := g.Means[metric]
	if !ok {
		return math.NaN()
	}
	return v
}

// =============================================================================
// Land use
// =============================================================================

// SupplementaryRow is one (Country, Category) land-use record.
// LandUse is the base LandUse(m2*year) value.
type SupplementaryRow struct {
	Country  string
	Category string
	LandUse  float64
}

// ProportionatedRow is a SupplementaryRow scaled by a diet's proportion for
// its category. It is always request-scoped.
type ProportionatedRow struct {
	SupplementaryRow
	Proportion     float64
	Proportionated float64
}

// CountryLandUse is the proportionated land use summed for one country.
type CountryLandUse struct {
	Country string  `json:"country"`
	LandUse float64 `json:"land_use"`
}

// ProportionTable maps diet categories to their consumption share per food
// category.
//
// # Fields
//
//   - Diets: diet names in first-appearance order (selector options).
//   - Categories: food category columns in header order.
//   - Values: diet -> category -> proportion. A category column that exists
//     but whose cell was empty for a diet is absent from the inner map.
type ProportionTable struct {
	Diets      []string
	Categories []string
	Values     map[string]map[string]float64
}

// HasDiet reports whether the table has a row for diet.
func (t *ProportionTable) HasDiet(diet string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Values[diet]
	return ok
}

// HasCategory reports whether category is one of the table's columns.
func (t *ProportionTable) HasCategory(category string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// =============================================================================
// Boundaries
// =============================================================================

// CountryBoundary is one feature of the world boundaries dataset.
type CountryBoundary struct {
	Name     string
	ISOA3    string
	Geometry *geojson.Geometry
}

// CountryValue is one choropleth row: a boundary joined with its land use.
// Matched is false when no land-use row existed and Value was set to 0.
type CountryValue struct {
	Name    string  `json:"name"`
	ISOA3   string  `json:"iso_a3"`
	Value   float64 `json:"value"`
	Matched bool    `json:"matched"`
}

// =============================================================================
// Dataset
// =============================================================================

// Dataset bundles every table the dashboard reads.
//
// # Description
//
// Built once by the loader and published through loader.Store. Grouped is
// precomputed from Respondents because the sunburst never changes its
// inputs, only its metric.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent reads.
type Dataset struct {
	Respondents   []RespondentRow
	Grouped       []GroupedRow
	Supplementary []SupplementaryRow
	Proportions   *ProportionTable
	Boundaries    []CountryBoundary

	// BoundaryCollection is the raw FeatureCollection, kept for embedding
	// geometry into choropleth figures.
	BoundaryCollection *geojson.FeatureCollection

	// DroppedSupplementary counts rows dropped for missing values.
	DroppedSupplementary int
}

// Summary is a small, JSON-friendly description of a Dataset.
type Summary struct {
	Respondents          int `json:"respondents"`
	GroupedRows          int `json:"grouped_rows"`
	SupplementaryRows    int `json:"supplementary_rows"`
	DroppedSupplementary int `json:"dropped_supplementary_rows"`
	Diets                int `json:"diets"`
	Categories           int `json:"categories"`
	Boundaries           int `json:"boundaries"`
}

// Summarize returns row counts for health reporting.
func (d *Dataset) Summarize() Summary {
	if d == nil {
		return Summary{}
	}
	s := Summary{
		Respondents:          len(d.Respondents),
		GroupedRows:          len(d.Grouped),
		SupplementaryRows:    len(d.Supplementary),
		DroppedSupplementary: d.DroppedSupplementary,
		Boundaries:           len(d.Boundaries),
	}
	if d.Proportions != nil {
		s.Diets = len(d.Proportions.Diets)
		s.Categories = len(d.Proportions.Categories)
	}
	return s
}
