// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrUnknownDiet is returned when the proportion table has no row for
	// the requested diet category.
	ErrUnknownDiet = errors.New("unknown diet category")

	// ErrUnknownCategory is returned when a land-use row's food category
	// has no column in the proportion table.
	ErrUnknownCategory = errors.New("unknown food category")
)

// Proportionate scales every supplementary row by the diet's proportion for
// the row's category.
//
// # Description
//
// The result is a new slice; rows is not modified. When the category column
// exists but the diet's cell was empty, Proportion and Proportionated are
// NaN and the row contributes nothing to per-country sums.
//
// # Inputs
//
//   - diet: Diet category, e.g. "Vegans".
//   - rows: Supplementary land-use rows.
//   - table: Proportion table.
//
// # Outputs
//
//   - []datatypes.ProportionatedRow: One entry per input row, same order.
//   - error: Wraps ErrUnknownDiet or ErrUnknownCategory.
func Proportionate(diet string, rows []datatypes.SupplementaryRow, table *datatypes.ProportionTable) ([]datatypes.ProportionatedRow, error) {
	if !table.HasDiet(diet) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDiet, diet)
	}
	shares := table.Values[diet]

	out := make([]datatypes.ProportionatedRow, len(rows))
	for i, r := range rows {
		p, ok := shares[r.Category]
		if !ok {
			if !table.HasCategory(r.Category) {
				return nil, fmt.Errorf("%w: %q (diet %q)", ErrUnknownCategory, r.Category, diet)
			}
			p = math.NaN()
		}
		out[i] = datatypes.ProportionatedRow{
			SupplementaryRow: r,
			Proportion:       p,
			Proportionated:   r.LandUse * p,
		}
	}
	return out, nil
}

// ComputeLandUseByCountry returns the diet-weighted land use summed per
// country.
//
// # Description
//
// Each supplementary row's land use is multiplied by the diet's proportion
// for its category, and the products are summed by Country. Every country in
// rows appears exactly once in the output, sorted by name. The computation
// is request-scoped: nothing shared is written.
//
// # Inputs
//
//   - diet: Diet category selected in the UI.
//   - rows: Supplementary land-use rows.
//   - table: Proportion table.
//
// # Outputs
//
//   - []datatypes.CountryLandUse: One row per distinct country.
//   - error: Wraps ErrUnknownDiet or ErrUnknownCategory. No partial result
//     is returned on error.
//
// # Examples
//
//	landUse, err := aggregate.ComputeLandUseByCountry("Vegans", ds.Supplementary, ds.Proportions)
//	if errors.Is(err, aggregate.ErrUnknownDiet) {
//	    // reject the request, keep serving
//	}
func ComputeLandUseByCountry(diet string, rows []datatypes.SupplementaryRow, table *datatypes.ProportionTable) ([]datatypes.CountryLandUse, error) {
	scaled, err := Proportionate(diet, rows, table)
	if err != nil {
		return nil, err
	}

	byCountry := make(map[string][]float64)
	for _, r := range scaled {
		if _, ok := byCountry[r.Country]; !ok {
			byCountry[r.Country] = nil
		}
		if math.IsNaN(r.Proportionated) {
			continue
		}
		byCountry[r.Country] = append(byCountry[r.Country], r.Proportionated)
	}

	countries := make([]string, 0, len(byCountry))
	for c := range byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	out := make([]datatypes.CountryLandUse, 0, len(countries))
	for _, c := range countries {
		out = append(out, datatypes.CountryLandUse{Country: c, LandUse: floats.Sum(byCountry[c])})
	}
	return out, nil
}

// TotalProportionated sums the non-NaN proportionated values of rows.
func TotalProportionated(rows []datatypes.ProportionatedRow) float64 {
	xs := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.Proportionated) {
			xs = append(xs, r.Proportionated)
		}
	}
	return floats.Sum(xs)
}
