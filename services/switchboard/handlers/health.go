// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceName identifies the gateway in health payloads.
const ServiceName = "switchboard-gateway"

// ServiceVersion is stamped at build time via -ldflags.
var ServiceVersion = "dev"

// HealthCheck reports liveness plus uptime.
func HealthCheck(started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"service":        ServiceName,
			"version":        ServiceVersion,
			"uptime_seconds": time.Since(started).Seconds(),
		})
	}
}

// readinessCheck is one named dependency probe.
type readinessCheck struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Readiness verifies the gateway can actually serve: the document index
// must be loadable and the support store reachable. Returns 503 with the
// failing checks when not ready.
func Readiness(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := map[string]readinessCheck{}
		ready := true

		if !deps.RetrievalEnabled {
			checks["index"] = readinessCheck{OK: true, Detail: "retrieval disabled"}
		} else if _, err := deps.Index.Size(); err != nil {
			checks["index"] = readinessCheck{OK: false, Detail: err.Error()}
			ready = false
		} else {
			checks["index"] = readinessCheck{OK: true}
		}

		if _, err := deps.Support.ListTicketsByUser("readiness-probe"); err != nil {
			checks["support_store"] = readinessCheck{OK: false, Detail: err.Error()}
			ready = false
		} else {
			checks["support_store"] = readinessCheck{OK: true}
		}

		status := "ready"
		code := http.StatusOK
		if !ready {
			status = "unready"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": checks})
	}
}
