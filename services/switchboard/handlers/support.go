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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Switchboard/services/support"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
	"github.com/AleutianAI/Switchboard/services/switchboard/middleware"
)

// GetSupportTicket returns the public, PII-masked view of one ticket.
func GetSupportTicket(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := middleware.CorrelationID(c)
		ticketID := c.Param("ticket_id")

		view, err := deps.Support.GetTicketPublic(ticketID)
		if err != nil {
			if errors.Is(err, support.ErrTicketNotFound) {
				deps.logger().Info("ticket lookup miss",
					"correlation_id", correlationID, "ticket_id", ticketID)
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
					Error: "ticket_not_found", Detail: "Ticket nao encontrado.", CorrelationID: correlationID,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "ticket_lookup_failed", CorrelationID: correlationID,
			})
			return
		}
		deps.logger().Info("ticket lookup",
			"correlation_id", correlationID, "ticket_id", ticketID)
		c.JSON(http.StatusOK, view)
	}
}

// ListSupportTickets returns a user's tickets as public views, newest last.
func ListSupportTickets(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := middleware.CorrelationID(c)
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "missing_user_id", CorrelationID: correlationID,
			})
			return
		}

		tickets, err := deps.Support.ListTicketsByUser(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "ticket_list_failed", CorrelationID: correlationID,
			})
			return
		}

		views := make([]support.TicketPublicView, 0, len(tickets))
		for _, ticket := range tickets {
			view, err := deps.Support.GetTicketPublic(ticket.ID)
			if err != nil {
				continue
			}
			views = append(views, view)
		}
		c.JSON(http.StatusOK, gin.H{"tickets": views, "count": len(views)})
	}
}

// SupportMetrics exposes the support service's rolling counters.
func SupportMetrics(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Support.Metrics())
	}
}
