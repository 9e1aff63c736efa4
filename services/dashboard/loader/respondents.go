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
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
)

// Respondent CSV key columns.
const (
	columnDietGroup = "diet_group"
	columnAgeGroup  = "age_group"
	columnSex       = "sex"
)

// LoadRespondents opens path and parses it with ReadRespondents.
func LoadRespondents(path string) ([]datatypes.RespondentRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open respondents file: %w", err)
	}
	defer f.Close()

	rows, err := ReadRespondents(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadRespondents parses the respondent metrics CSV.
//
// # Description
//
// The header must name diet_group, age_group, sex and the five metric
// columns; other columns are ignored. Empty or NA-like metric cells load as
// NaN. Any other unparsable metric cell is an error.
//
// # Inputs
//
//   - r: CSV stream with a header row.
//
// # Outputs
//
//   - []datatypes.RespondentRow: Rows in file order.
//   - error: Wraps ErrMissingColumn or ErrMalformed.
func ReadRespondents(r io.Reader) ([]datatypes.RespondentRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty respondents file", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}

	required := append([]string{columnDietGroup, columnAgeGroup, columnSex}, datatypes.Metrics...)
	idx, err := indexColumns(header, required)
	if err != nil {
		return nil, err
	}

	var rows []datatypes.RespondentRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}

		row := datatypes.RespondentRow{
			DietGroup: keyCell(record, idx[columnDietGroup]),
			AgeGroup:  keyCell(record, idx[columnAgeGroup]),
			Sex:       keyCell(record, idx[columnSex]),
			Values:    make(map[string]float64, len(datatypes.Metrics)),
		}
		for _, m := range datatypes.Metrics {
			v, err := parseNumber(cell(record, idx[m]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrMalformed, line, m, err)
			}
			row.Values[m] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// indexColumns maps each required column name to its header position.
func indexColumns(header []string, required []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	idx := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// cell returns the trimmed value at i, or "" for short records.
func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// keyCell is cell with missing markers folded to "".
func keyCell(record []string, i int) string {
	v := cell(record, i)
	if isMissing(v) {
		return ""
	}
	return v
}

// missingMarkers are the cell spellings read as a missing value.
var missingMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// isMissing reports whether s spells a missing value.
func isMissing(s string) bool {
	return missingMarkers[strings.ToLower(strings.TrimSpace(s))]
}

// parseNumber parses a numeric cell. Missing cells give NaN.
func parseNumber(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
