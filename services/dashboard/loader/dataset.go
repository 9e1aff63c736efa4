// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader reads the dashboard's input files into a datatypes.Dataset.
//
// # Description
//
// Four inputs are read from the local filesystem:
//
//   - respondent metrics (CSV)
//   - supplementary land use by country and food category (xlsx)
//   - diet-to-category proportions (xlsx)
//   - world boundaries (GeoJSON FeatureCollection)
//
// There are no retries. Any read or parse failure is returned to the caller,
// which treats it as fatal at startup. The only tolerated defect is a
// supplementary row with a missing cell, which is dropped.
//
// # Thread Safety
//
// Load is safe to call concurrently; it shares no state. Store publishes a
// Dataset to concurrent readers.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/aggregate"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var loaderTracer = otel.Tracer("dietdash.loader")

// Paths locates the four input files.
type Paths struct {
	Respondents   string
	Supplementary string
	Proportions   string
	Boundaries    string
}

// List returns the paths in a fixed order, for watching.
func (p Paths) List() []string {
	return []string{p.Respondents, p.Supplementary, p.Proportions, p.Boundaries}
}

// Load reads every input and builds a Dataset.
//
// # Description
//
// The four files are read in parallel. The grouped means table is computed
// once here so requests only pick a metric from it.
//
// # Inputs
//
//   - ctx: Cancels outstanding reads when one fails.
//   - paths: Input file locations.
//
// # Outputs
//
//   - *datatypes.Dataset: Fully populated, immutable dataset.
//   - error: The first load failure, wrapped with the file path.
//
// # Examples
//
//	ds, err := loader.Load(ctx, loader.Paths{
//	    Respondents:   "data.csv",
//	    Supplementary: "supple_agg_df.xlsx",
//	    Proportions:   "dietary_data_proportioned.xlsx",
//	    Boundaries:    "naturalearth_lowres.geojson",
//	})
func Load(ctx context.Context, paths Paths) (*datatypes.Dataset, error) {
	ctx, span := loaderTracer.Start(ctx, "loader.Load")
	defer span.End()
	start := time.Now()

	var (
		respondents []datatypes.RespondentRow
		supp        SupplementaryResult
		proportions *datatypes.ProportionTable
		bounds      BoundaryResult
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		respondents, err = LoadRespondents(paths.Respondents)
		return err
	})
	g.Go(func() (err error) {
		supp, err = LoadSupplementary(paths.Supplementary)
		return err
	})
	g.Go(func() (err error) {
		proportions, err = LoadProportions(paths.Proportions)
		return err
	})
	g.Go(func() (err error) {
		bounds, err = LoadBoundaries(paths.Boundaries)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	ds := &datatypes.Dataset{
		Respondents:          respondents,
		Grouped:              aggregate.ComputeGroupedMeans(respondents, datatypes.Metrics),
		Supplementary:        supp.Rows,
		DroppedSupplementary: supp.Dropped,
		Proportions:          proportions,
		Boundaries:           bounds.Boundaries,
		BoundaryCollection:   bounds.Collection,
	}

	summary := ds.Summarize()
	span.SetAttributes(
		attribute.Int("respondents", summary.Respondents),
		attribute.Int("grouped_rows", summary.GroupedRows),
		attribute.Int("supplementary_rows", summary.SupplementaryRows),
		attribute.Int("dropped_supplementary_rows", summary.DroppedSupplementary),
		attribute.Int("boundaries", summary.Boundaries),
	)
	slog.Info("Dataset loaded",
		"respondents", summary.Respondents,
		"grouped_rows", summary.GroupedRows,
		"supplementary_rows", summary.SupplementaryRows,
		"dropped_supplementary_rows", summary.DroppedSupplementary,
		"diets", summary.Diets,
		"boundaries", summary.Boundaries,
		"duration", time.Since(start).String(),
	)
	return ds, nil
}
