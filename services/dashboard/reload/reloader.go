// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reload

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
)

// LoadFunc loads a complete dataset. loader.Load satisfies it.
type LoadFunc func(ctx context.Context, paths loader.Paths) (*datatypes.Dataset, error)

// Swapper publishes a dataset. loader.Store satisfies it.
type Swapper interface {
	Swap(ds *datatypes.Dataset) *datatypes.Dataset
}

// Reloader reloads the dataset after input files change.
type Reloader struct {
	paths   loader.Paths
	load    LoadFunc
	store   Swapper
	metrics *telemetry.Metrics

	// OnSwap, if set, is called with each newly published dataset.
	OnSwap func(ds *datatypes.Dataset)
}

// NewReloader returns a Reloader. metrics may be nil.
func NewReloader(paths loader.Paths, load LoadFunc, store Swapper, metrics *telemetry.Metrics) *Reloader {
	return &Reloader{paths: paths, load: load, store: store, metrics: metrics}
}

// Reload loads all inputs and swaps the result into the store.
//
// # Description
//
// On failure the current dataset stays published and the error is logged
// and returned. A reload always reads every input, not only the changed
// ones, so the published dataset is always internally consistent.
func (r *Reloader) Reload(ctx context.Context) error {
	start := time.Now()
	ds, err := r.load(ctx, r.paths)
	r.metrics.RecordLoad(ctx, telemetry.LoadReload, time.Since(start), err)
	if err != nil {
		slog.Error("dataset reload failed, keeping current dataset", "error", err)
		return err
	}

	r.store.Swap(ds)
	slog.Info("dataset reloaded", "duration", time.Since(start).String())
	if r.OnSwap != nil {
		r.OnSwap(ds)
	}
	return nil
}

// Handler adapts Reload to a ChangeHandler that reloads with ctx.
func (r *Reloader) Handler(ctx context.Context) ChangeHandler {
	return func(changes []FileChange) {
		paths := make([]string, len(changes))
		for i, c := range changes {
			paths[i] = c.Path
		}
		slog.Info("input files changed", "files", paths)
		_ = r.Reload(ctx)
	}
}
