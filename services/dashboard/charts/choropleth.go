// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package charts

import (
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	geojson "github.com/paulmach/go.geojson"
)

const (
	transparent       = "rgba(0, 0, 0, 0)"
	choroplethMargin  = 10
	isoFeatureIDKey   = "properties.iso_a3"
	locationModeISO3  = "ISO-3"
	locationModeGeoID = "geojson-id"
)

// ChoroplethOptions controls BuildChoropleth.
type ChoroplethOptions struct {
	// RangeMin and RangeMax clamp the color axis.
	RangeMin float64
	RangeMax float64

	// Collection, when non-nil, is embedded in the trace and features are
	// matched on their iso_a3 property instead of Plotly's built-in map.
	Collection *geojson.FeatureCollection
}

// DefaultChoroplethOptions returns the [0, 200] display range without
// embedded geometry.
func DefaultChoroplethOptions() ChoroplethOptions {
	return ChoroplethOptions{RangeMin: 0, RangeMax: 200}
}

// JoinBoundaries left-joins every boundary with its country's land use.
//
// The join key is the boundary name against CountryLandUse.Country. Every
// boundary appears exactly once, in boundary order. A boundary with no
// land-use row gets value 0 and Matched false.
func JoinBoundaries(landUse []datatypes.CountryLandUse, boundaries []datatypes.CountryBoundary) []datatypes.CountryValue {
	byCountry := make(map[string]float64, len(landUse))
	for _, lu := range landUse {
		byCountry[lu.Country] += lu.LandUse
	}

	out := make([]datatypes.CountryValue, len(boundaries))
	for i, b := range boundaries {
		v, ok := byCountry[b.Name]
		out[i] = datatypes.CountryValue{
			Name:    b.Name,
			ISOA3:   b.ISOA3,
			Value:   finite(v),
			Matched: ok,
		}
	}
	return out
}

// BuildChoropleth builds the country land-use map.
//
// # Description
//
// Joins boundaries with landUse (see JoinBoundaries) and colors each country
// by its value on the reversed RdYlGn scale, clamped to the options' range.
// Backgrounds are transparent, margins are 10px and the color bar has no
// title. Hovering a country shows its name.
//
// # Inputs
//
//   - landUse: Output of aggregate.ComputeLandUseByCountry. Not modified.
//   - boundaries: World boundaries. Not modified.
//   - opts: Display range and optional embedded geometry.
//
// # Outputs
//
//   - Figure: A single choropleth trace keyed by ISO-A3 code.
func BuildChoropleth(landUse []datatypes.CountryLandUse, boundaries []datatypes.CountryBoundary, opts ChoroplethOptions) Figure {
	joined := JoinBoundaries(landUse, boundaries)

	trace := Trace{
		Type:          "choropleth",
		Locations:     make([]string, len(joined)),
		Z:             make([]float64, len(joined)),
		HoverText:     make([]string, len(joined)),
		LocationMode:  locationModeISO3,
		ColorAxis:     "coloraxis",
		HoverTemplate: "<b>%{hovertext}</b><br><br>iso_a3=%{location}<br>=%{z}<extra></extra>",
	}
	for i, cv := range joined {
		trace.Locations[i] = cv.ISOA3
		trace.Z[i] = cv.Value
		trace.HoverText[i] = cv.Name
	}
	if opts.Collection != nil {
		trace.GeoJSON = opts.Collection
		trace.FeatureIDKey = isoFeatureIDKey
		trace.LocationMode = locationModeGeoID
	}

	cmin, cmax := opts.RangeMin, opts.RangeMax
	geo := &Geo{ShowFrame: false, ShowLakes: false, BGColor: transparent}
	if opts.Collection != nil {
		geo.FitBounds = "locations"
	}

	return Figure{
		Data: []Trace{trace},
		Layout: Layout{
			Margin: &Margin{T: choroplethMargin, B: choroplethMargin, L: choroplethMargin, R: choroplethMargin},
			ColorAxis: &ColorAxis{
				ColorScale: RdYlGnReversed,
				CMin:       &cmin,
				CMax:       &cmax,
				ColorBar:   ColorBar{Title: ColorBarTitle{Text: ""}},
			},
			Geo:          geo,
			PaperBGColor: transparent,
			PlotBGColor:  transparent,
		},
	}
}
