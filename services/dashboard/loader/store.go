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
	"sync/atomic"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
)

// Store publishes the current Dataset to request handlers.
//
// # Description
//
// Readers call Current and use the returned pointer for the whole request.
// A reload builds a complete new Dataset and calls Swap; readers holding the
// old pointer finish against the old data.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	current  atomic.Pointer[datatypes.Dataset]
	loadedAt atomic.Int64
}

// NewStore returns a Store publishing ds.
func NewStore(ds *datatypes.Dataset) *Store {
	s := &Store{}
	s.Swap(ds)
	return s
}

// Current returns the published dataset. It is never nil after NewStore
// with a non-nil dataset.
func (s *Store) Current() *datatypes.Dataset {
	return s.current.Load()
}

// Swap publishes ds and returns the previous dataset.
func (s *Store) Swap(ds *datatypes.Dataset) *datatypes.Dataset {
	s.loadedAt.Store(time.Now().UnixNano())
	return s.current.Swap(ds)
}

// LoadedAt returns when the current dataset was published.
func (s *Store) LoadedAt() time.Time {
	return time.Unix(0, s.loadedAt.Load())
}
