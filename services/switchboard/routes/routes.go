// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the gateway endpoints onto the gin engine.
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/Switchboard/services/switchboard/handlers"
)

// Options toggles the optional endpoint groups.
type Options struct {
	DiagnosticsEnabled bool
	TopK               int
	MaxContextChars    int
}

// SetupRoutes registers all gateway endpoints.
func SetupRoutes(router *gin.Engine, deps *handlers.Deps, opts Options) {
	started := time.Now()

	router.GET("/health", handlers.HealthCheck(started))
	router.GET("/readiness", handlers.Readiness(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/chat", handlers.HandleChat(deps))
		v1.POST("/route", handlers.HandleRoute(deps))

		support := v1.Group("/support")
		{
			support.GET("/tickets", handlers.ListSupportTickets(deps))
			support.GET("/tickets/:ticket_id", handlers.GetSupportTicket(deps))
			support.GET("/metrics", handlers.SupportMetrics(deps))
		}

		if opts.DiagnosticsEnabled {
			v1.GET("/guardrails/diagnostics", handlers.GuardrailsDiagnostics(deps))
			v1.POST("/retrieval/diagnostics", handlers.RetrievalDiagnostics(deps, opts.TopK, opts.MaxContextChars))
			v1.POST("/index/reload", handlers.IndexReload(deps))
			v1.GET("/index/stats", handlers.IndexStats(deps))
		}
	}
}
