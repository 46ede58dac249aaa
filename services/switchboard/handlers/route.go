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
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
	"github.com/AleutianAI/Switchboard/services/switchboard/middleware"
)

// HandleRoute classifies a message without executing the selected agent.
// Useful for debugging routing behavior and for frontends that show the
// predicted destination before sending.
func HandleRoute(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleRoute")
		defer span.End()

		correlationID := middleware.CorrelationID(c)

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "invalid_request_body", CorrelationID: correlationID,
			})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "invalid_request", Detail: err.Error(), CorrelationID: correlationID,
			})
			return
		}
		req.EnsureDefaults()

		pre, err := deps.Guardrails.Preprocess(req.Message, req.UserID, req.Metadata)
		if err != nil {
			var verr *guardrails.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
					Error: "invalid_message", Detail: verr.Detail, CorrelationID: correlationID,
				})
				return
			}
			span.RecordError(err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "guardrails_failed", CorrelationID: correlationID,
			})
			return
		}

		deps.logger().Info("route request",
			"correlation_id", correlationID,
			"injection_detected", pre.Flags.InjectionDetected,
			"pii_masked", pre.Flags.PIIMasked,
		)

		routing := deps.Router.Route(ctx, pre.Message)
		c.JSON(http.StatusOK, datatypes.RouteResponse{
			RequestID:     req.RequestID,
			CorrelationID: correlationID,
			Routing:       routing,
		})
	}
}

// collapseSpace folds whitespace runs into single spaces and trims.
func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func trimTrailingSpace(text string) string {
	return strings.TrimRight(text, " ")
}
