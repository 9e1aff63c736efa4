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
	"encoding/json"
	"fmt"
)

// ColorStop is one (position, color) pair of a continuous colorscale.
type ColorStop struct {
	Position float64
	Color    string
}

// MarshalJSON encodes the stop as Plotly's [position, color] pair.
func (s ColorStop) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{s.Position, s.Color})
}

// UnmarshalJSON decodes a [position, color] pair.
func (s *ColorStop) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("color stop: %w", err)
	}
	if err := json.Unmarshal(pair[0], &s.Position); err != nil {
		return fmt.Errorf("color stop position: %w", err)
	}
	if err := json.Unmarshal(pair[1], &s.Color); err != nil {
		return fmt.Errorf("color stop color: %w", err)
	}
	return nil
}

// Colorscale is an ordered list of stops from 0 to 1.
type Colorscale []ColorStop

// evenScale spreads colors evenly over [0, 1].
func evenScale(colors ...string) Colorscale {
	scale := make(Colorscale, len(colors))
	last := float64(len(colors) - 1)
	for i, c := range colors {
		pos := 0.0
		if last > 0 {
			pos = float64(i) / last
		}
		scale[i] = ColorStop{Position: pos, Color: c}
	}
	return scale
}

// ImpactScale runs from dark green (low impact) through yellow to deep red.
var ImpactScale = evenScale(
	"#006837",
	"#31a354",
	"#78c679",
	"#c2e699",
	"#ffffbf",
	"#fee08b",
	"#fdae61",
	"#f46d43",
	"#d73027",
	"#a50026",
)

// RdYlGnReversed is the ColorBrewer RdYlGn scale, green first.
var RdYlGnReversed = evenScale(
	"rgb(0,104,55)",
	"rgb(26,152,80)",
	"rgb(102,189,99)",
	"rgb(166,217,106)",
	"rgb(217,239,139)",
	"rgb(255,255,191)",
	"rgb(254,224,139)",
	"rgb(253,174,97)",
	"rgb(244,109,67)",
	"rgb(215,48,39)",
	"rgb(165,0,38)",
)
