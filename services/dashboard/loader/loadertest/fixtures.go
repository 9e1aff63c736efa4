// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loadertest writes small, known input files for tests.
//
// Expected values for the fixture set:
//
//	Vegans:      Brazil 0,  France 20, Japan unmatched (0)
//	Meat eaters: Brazil 55, France 12
//	Vegetarians: Brazil 25, France 0
//	vegan/20-29/female mean_ghgs = 15
package loadertest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// RespondentsCSV is the fixture respondent file. The extra n_participants
// column must be ignored by the loader.
const RespondentsCSV = `diet_group,age_group,sex,mean_bio,mean_land,mean_watuse,mean_ghgs,mean_eut,n_participants
vegan,20-29,female,1,2,3,10,5,100
vegan,20-29,female,3,4,5,20,7,80
meat,30-39,male,6,8,10,30,9,50
fish,20-29,male,2,2,2,2,,40
`

// SupplementaryRows is the fixture land-use sheet. The last two rows have a
// missing cell and must be dropped.
var SupplementaryRows = [][]interface{}{
	{"Country", "Category", "LandUse(m2*year)"},
	{"Brazil", "Meat", 100},
	{"Brazil", "Dairy", 50},
	{"France", "Meat", 10},
	{"France", "Cereals", 40},
	{"Spain", "", 5},
	{"Peru", "Meat"},
}

// ProportionRows is the fixture proportion sheet.
var ProportionRows = [][]interface{}{
	{"Diet", "Meat", "Dairy", "Cereals"},
	{"Vegans", 0, 0, 0.5},
	{"Meat eaters", 0.4, 0.3, 0.2},
	{"Vegetarians", 0, 0.5},
}

// Countries are the fixture boundary features as name, iso_a3 pairs.
var Countries = [][2]string{
	{"Brazil", "BRA"},
	{"France", "FRA"},
	{"Japan", "JPN"},
}

// Write writes the full fixture set into dir and returns its paths.
func Write(t testing.TB, dir string) loader.Paths {
	t.Helper()

	paths := loader.Paths{
		Respondents:   filepath.Join(dir, "data.csv"),
		Supplementary: filepath.Join(dir, "supple_agg_df.xlsx"),
		Proportions:   filepath.Join(dir, "dietary_data_proportioned.xlsx"),
		Boundaries:    filepath.Join(dir, "naturalearth_lowres.geojson"),
	}
	require.NoError(t, os.WriteFile(paths.Respondents, []byte(RespondentsCSV), 0o644))
	WriteWorkbook(t, paths.Supplementary, SupplementaryRows)
	WriteWorkbook(t, paths.Proportions, ProportionRows)
	require.NoError(t, os.WriteFile(paths.Boundaries, Boundaries(t), 0o644))
	return paths
}

// WriteWorkbook saves rows to the first sheet of a new xlsx file at path.
func WriteWorkbook(t testing.TB, path string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

// Boundaries returns the fixture FeatureCollection as GeoJSON bytes.
func Boundaries(t testing.TB) []byte {
	t.Helper()

	fc := geojson.NewFeatureCollection()
	for i, c := range Countries {
		x := float64(i * 10)
		f := geojson.NewPolygonFeature([][][]float64{{
			{x, 0}, {x + 5, 0}, {x + 5, 5}, {x, 5}, {x, 0},
		}})
		f.SetProperty("name", c[0])
		f.SetProperty("iso_a3", c[1])
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	return data
}
