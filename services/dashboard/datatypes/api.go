// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ErrorResponse is the JSON body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	LoadedAt string            `json:"loaded_at"`
	Dataset  Summary           `json:"dataset"`
	Panels   map[string]string `json:"panels"`
}

// SunburstQuery binds the sunburst chart request.
type SunburstQuery struct {
	Metric string `form:"metric-selector" binding:"required"`
}

// ChoroplethQuery binds the land-use map request.
type ChoroplethQuery struct {
	Diet string `form:"diet-category-selector" binding:"required"`
}
