// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate computes the two derived tables the dashboard charts:
// grouped metric means for the sunburst and diet-weighted land use per
// country for the choropleth.
//
// Both functions are pure. They allocate fresh output slices and never
// modify their inputs, so they are safe to call from concurrent requests
// against a shared dataset.
package aggregate

import (
	"math"
	"sort"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"gonum.org/v1/gonum/stat"
)

// ComputeGroupedMeans partitions rows by (diet_group, age_group, sex) and
// returns the arithmetic mean of each metric per partition.
//
// # Description
//
// Empty metric cells (NaN) are skipped, so a metric's mean is taken over
// the rows that have a value for it. A partition with no values for a metric
// gets NaN for that metric. Rows with an empty key component are excluded
// from every partition.
//
// # Inputs
//
//   - rows: Respondent rows. Not modified.
//   - metrics: Metric names to average.
//
// # Outputs
//
//   - []datatypes.GroupedRow: One row per distinct triple, sorted by
//     diet group, then age group, then sex.
//
// # Examples
//
//	grouped := aggregate.ComputeGroupedMeans(ds.Respondents, datatypes.Metrics)
func ComputeGroupedMeans(rows []datatypes.RespondentRow, metrics []string) []datatypes.GroupedRow {
	type partition struct {
		count  int
		values map[string][]float64
	}

	parts := make(map[datatypes.GroupKey]*partition)
	for _, r := range rows {
		if r.DietGroup == "" || r.AgeGroup == "" || r.Sex == "" {
			continue
		}
		key := datatypes.GroupKey{DietGroup: r.DietGroup, AgeGroup: r.AgeGroup, Sex: r.Sex}
		p, ok := parts[key]
		if !ok {
			p = &partition{values: make(map[string][]float64, len(metrics))}
			parts[key] = p
		}
		p.count++
		for _, m := range metrics {
			v := r.Value(m)
			if math.IsNaN(v) {
				continue
			}
			p.values[m] = append(p.values[m], v)
		}
	}

	keys := make([]datatypes.GroupKey, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]datatypes.GroupedRow, 0, len(keys))
	for _, k := range keys {
		p := parts[k]
		means := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			xs := p.values[m]
			if len(xs) == 0 {
				means[m] = math.NaN()
				continue
			}
			means[m] = stat.Mean(xs, nil)
		}
		out = append(out, datatypes.GroupedRow{GroupKey: k, Count: p.count, Means: means})
	}
	return out
}
