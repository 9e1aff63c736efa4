// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware holds gin middleware for the dashboard API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key holding the request ID.
const requestIDKey = "request_id"

// RequestID assigns every request an ID.
//
// # Description
//
// A client-supplied X-Request-ID that parses as a UUID is kept; anything else
// is replaced by a fresh UUID. The ID is echoed in the response header and
// stored in the gin context for GetRequestID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs one line per request at Debug, or Warn for 5xx.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start).String(),
			"request_id", GetRequestID(c),
		}
		if status >= http.StatusInternalServerError {
			slog.Warn("request failed", attrs...)
			return
		}
		slog.Debug("request", attrs...)
	}
}

// RateLimit throttles requests with a shared token bucket.
//
// # Description
//
// perSecond tokens are added each second up to burst. A request that finds
// the bucket empty is rejected with 429 and code "rate_limited". A
// non-positive perSecond disables limiting.
//
// # Inputs
//
//   - perSecond: Sustained request rate.
//   - burst: Bucket size. Values below 1 are raised to 1.
//   - panel: Labels rejections in metrics.
//   - metrics: Optional; nil skips recording.
func RateLimit(perSecond float64, burst int, panel observability.Panel, metrics *observability.ChartMetrics) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			metrics.RecordError(panel, observability.ErrorCodeRateLimited)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
				Error: "too many requests",
				Code:  string(observability.ErrorCodeRateLimited),
			})
			return
		}
		c.Next()
	}
}
