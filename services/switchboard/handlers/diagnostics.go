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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/switchboard/agents"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
	"github.com/AleutianAI/Switchboard/services/switchboard/middleware"
)

// GuardrailsDiagnostics runs the inbound pipeline against a query without
// dispatching anything, exposing every detector's view of the text.
func GuardrailsDiagnostics(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "missing_query"})
			return
		}
		report, err := deps.Guardrails.Diagnostics(query)
		if err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid_query", Detail: err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

type retrievalDiagnosticsRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// RetrievalDiagnostics exposes the full retrieval pipeline for one query:
// raw retrieval, reranked order, guardrail-filtered selection, assembled
// context preview, and the citations that would ship.
func RetrievalDiagnostics(deps *Deps, topK, maxContextChars int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "RetrievalDiagnostics")
		defer span.End()

		var req retrievalDiagnosticsRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid_request_body"})
			return
		}
		k := req.TopK
		if k <= 0 {
			k = topK * 2
		}

		retrieved, err := deps.Index.Retrieve(ctx, req.Query, k)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "retrieve failed")
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "index_unavailable", Detail: err.Error()})
			return
		}
		reranked := deps.Reranker.Rerank(req.Query, retrieved)
		filtered := deps.Guardrails.FilterContext(retrieval.FilterChunks(reranked))
		contextText, selected := retrieval.BuildContext(filtered, maxContextChars)

		preview := contextText
		if runes := []rune(preview); len(runes) > 500 {
			preview = string(runes[:500])
		}

		c.JSON(http.StatusOK, gin.H{
			"query":           req.Query,
			"retrieved":       retrieved,
			"reranked":        reranked,
			"filtered_count":  len(selected),
			"context_preview": preview,
			"citations":       deps.Citations.Build(selected, agents.DefaultFallbackURLs, nil),
		})
	}
}

// IndexReload re-reads the index from disk, replacing the in-memory copy
// atomically. Returns the new record count.
func IndexReload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := middleware.CorrelationID(c)
		count, err := deps.Index.Reload()
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "index_reload_failed", Detail: err.Error(), CorrelationID: correlationID,
			})
			return
		}
		deps.Support.ReloadFAQ()
		deps.logger().Info("index reloaded", "correlation_id", correlationID, "records", count)
		c.JSON(http.StatusOK, gin.H{"records": count, "faq_reloaded": true})
	}
}

// IndexStats reports index size and guardrail counters for operators.
func IndexStats(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		size, err := deps.Index.Size()
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "index_unavailable", Detail: err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"records":           size,
			"guardrail_metrics": deps.Guardrails.MetricsSnapshot(),
			"support_metrics":   deps.Support.Metrics(),
			"pending_handoffs":  deps.Handoffs.Len(),
		})
	}
}
