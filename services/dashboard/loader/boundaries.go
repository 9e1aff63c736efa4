// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"fmt"
	"os"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	geojson "github.com/paulmach/go.geojson"
)

// Boundary feature property keys.
const (
	propertyName  = "name"
	propertyISOA3 = "iso_a3"
)

// BoundaryResult holds the parsed boundaries and the collection they came from.
type BoundaryResult struct {
	Boundaries []datatypes.CountryBoundary
	Collection *geojson.FeatureCollection
}

// LoadBoundaries reads a GeoJSON file and parses it with ReadBoundaries.
func LoadBoundaries(path string) (BoundaryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BoundaryResult{}, fmt.Errorf("open boundaries file: %w", err)
	}
	res, err := ReadBoundaries(data)
	if err != nil {
		return BoundaryResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ReadBoundaries parses a world-boundaries FeatureCollection.
//
// Every feature must carry a non-empty "name" property; "iso_a3" may be
// empty. Features keep file order.
func ReadBoundaries(data []byte) (BoundaryResult, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return BoundaryResult{}, fmt.Errorf("%w: parse geojson: %v", ErrMalformed, err)
	}

	out := make([]datatypes.CountryBoundary, 0, len(fc.Features))
	for i, f := range fc.Features {
		name := f.PropertyMustString(propertyName, "")
		if name == "" {
			return BoundaryResult{}, fmt.Errorf("%w: feature %d has no %q property", ErrMissingColumn, i, propertyName)
		}
		out = append(out, datatypes.CountryBoundary{
			Name:     name,
			ISOA3:    f.PropertyMustString(propertyISOA3, ""),
			Geometry: f.Geometry,
		})
	}
	return BoundaryResult{Boundaries: out, Collection: fc}, nil
}
