// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the switchboard gateway:
// correlation-id propagation, per-client rate limiting, and CORS.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationHeader is the inbound and outbound correlation-id header.
const CorrelationHeader = "X-Correlation-ID"

// correlationKey is the gin context key for the request correlation id.
// Namespaced to avoid collisions with other middleware values.
const correlationKey = "switchboard_correlation_id"

// CorrelationID returns the correlation id stored by Correlation, or ""
// when the middleware did not run.
func CorrelationID(c *gin.Context) string {
	value, ok := c.Get(correlationKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

// ClientCorrelationID reports whether the correlation id on this request
// was supplied by the client rather than generated server-side.
func ClientCorrelationID(c *gin.Context) bool {
	return c.GetHeader(CorrelationHeader) != ""
}

// Correlation assigns every request a correlation id. A client-supplied
// X-Correlation-ID is honored verbatim so callers can stitch multi-turn
// conversations together; otherwise a fresh UUID is generated. The id is
// echoed on the response.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(CorrelationHeader, id)
		c.Next()
	}
}
