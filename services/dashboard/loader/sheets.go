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
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet column names.
const (
	columnCountry  = "Country"
	columnCategory = "Category"
	columnLandUse  = "LandUse(m2*year)"
	columnDiet     = "Diet"
)

// =============================================================================
// Workbook access
// =============================================================================

// readFirstSheet returns the raw cell values of the workbook's first sheet.
// The first returned row is the header.
func readFirstSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformed, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformed, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformed, sheets[0])
	}
	return rows, nil
}

// openAndRead opens path and applies read to it.
func openAndRead[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// =============================================================================
// Supplementary land use
// =============================================================================

// SupplementaryResult is the outcome of reading the land-use workbook.
type SupplementaryResult struct {
	Rows    []datatypes.SupplementaryRow
	Dropped int
}

// LoadSupplementary opens path and parses it with ReadSupplementary.
func LoadSupplementary(path string) (SupplementaryResult, error) {
	return openAndRead(path, ReadSupplementary)
}

// ReadSupplementary parses the supplementary land-use workbook.
//
// # Description
//
// Reads Country, Category and LandUse(m2*year) from the first sheet. A row
// with an empty cell in any header column, including rows shorter than the
// header, is dropped and counted. A present but non-numeric land-use value
// is an error.
//
// # Outputs
//
//   - SupplementaryResult: Kept rows in sheet order and the dropped count.
//   - error: Wraps ErrMissingColumn or ErrMalformed.
func ReadSupplementary(r io.Reader) (SupplementaryResult, error) {
	rows, err := readFirstSheet(r)
	if err != nil {
		return SupplementaryResult{}, err
	}

	header := rows[0]
	idx, err := indexColumns(header, []string{columnCountry, columnCategory, columnLandUse})
	if err != nil {
		return SupplementaryResult{}, err
	}

	var res SupplementaryResult
	for n, record := range rows[1:] {
		if hasMissing(record, len(header)) {
			res.Dropped++
			continue
		}
		landUse, err := parseNumber(cell(record, idx[columnLandUse]))
		if err != nil {
			return SupplementaryResult{}, fmt.Errorf("%w: row %d column %s: %v", ErrMalformed, n+2, columnLandUse, err)
		}
		res.Rows = append(res.Rows, datatypes.SupplementaryRow{
			Country:  cell(record, idx[columnCountry]),
			Category: cell(record, idx[columnCategory]),
			LandUse:  landUse,
		})
	}
	return res, nil
}

// hasMissing reports whether any of the first width cells is missing.
func hasMissing(record []string, width int) bool {
	for i := 0; i < width; i++ {
		if isMissing(cell(record, i)) {
			return true
		}
	}
	return false
}

// =============================================================================
// Diet proportions
// =============================================================================

// LoadProportions opens path and parses it with ReadProportions.
func LoadProportions(path string) (*datatypes.ProportionTable, error) {
	return openAndRead(path, ReadProportions)
}

// ReadProportions parses the diet-to-category proportion workbook.
//
// # Description
//
// The Diet column names the diet; every other non-empty header is a food
// category. Diets keep first-appearance order and a repeated diet keeps its
// first row. Empty proportion cells are left out of the diet's map; any
// other non-numeric cell is an error.
//
// # Outputs
//
//   - *datatypes.ProportionTable: The parsed table.
//   - error: Wraps ErrMissingColumn or ErrMalformed.
func ReadProportions(r io.Reader) (*datatypes.ProportionTable, error) {
	rows, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	header := rows[0]
	idx, err := indexColumns(header, []string{columnDiet})
	if err != nil {
		return nil, err
	}
	dietCol := idx[columnDiet]

	table := &datatypes.ProportionTable{Values: make(map[string]map[string]float64)}
	categoryCols := make(map[int]string)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == dietCol || name == "" {
			continue
		}
		categoryCols[i] = name
		table.Categories = append(table.Categories, name)
	}

	for n, record := range rows[1:] {
		diet := cell(record, dietCol)
		if isMissing(diet) {
			continue
		}
		if _, seen := table.Values[diet]; seen {
			slog.Warn("duplicate diet row ignored", "diet", diet, "row", n+2)
			continue
		}

		shares := make(map[string]float64, len(categoryCols))
		for i, category := range categoryCols {
			raw := cell(record, i)
			if isMissing(raw) {
				continue
			}
			v, err := parseNumber(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrMalformed, n+2, category, err)
			}
			shares[category] = v
		}
		table.Diets = append(table.Diets, diet)
		table.Values[diet] = shares
	}
	return table, nil
}
