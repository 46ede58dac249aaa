// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/Switchboard/services/handoff"
	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/slack"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var slackTracer = otel.Tracer("switchboard.agents.slack")

// SlackAgentConfig controls the escalation agent.
type SlackAgentConfig struct {
	// AgentEnabled gates new escalation requests. When false the agent
	// acknowledges the ask but registers nothing.
	AgentEnabled bool

	// DeliveryEnabled gates the actual Slack send on confirmation.
	DeliveryEnabled bool

	// Channel is the Slack channel escalations land in.
	Channel string

	// PIIMasking masks the requesting user's identifier before it is
	// placed in a Slack message.
	PIIMasking bool

	// MaxResponseChars truncates the user-facing reply.
	MaxResponseChars int
}

var (
	slackMaskEmailRE   = regexp.MustCompile(`([\w._%+-]+)@([\w.-]+)`)
	slackMaskLongNumRE = regexp.MustCompile(`\b\d{5,}\b`)
)

// SlackAgent runs the human-escalation conversation: "request" registers a
// pending confirmation, "confirm" pops it and notifies Slack, "cancel"
// discards it. The action arrives on the request; confirm is the default
// because confirmation replies carry no explicit action of their own.
type SlackAgent struct {
	cfg     SlackAgentConfig
	client  slack.Client
	store   *handoff.Store
	metrics *deliveryMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewSlackAgent wires the escalation agent over the shared handoff store and
// a Slack delivery client.
func NewSlackAgent(cfg SlackAgentConfig, client slack.Client, store *handoff.Store, logger *slog.Logger) *SlackAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = "#support-escalations"
	}
	if cfg.MaxResponseChars <= 0 {
		cfg.MaxResponseChars = 1200
	}
	return &SlackAgent{
		cfg:     cfg,
		client:  client,
		store:   store,
		metrics: newDeliveryMetrics(),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *SlackAgent) Name() string { return "slack" }

// Metrics returns a snapshot of delivery counters and latency percentiles.
func (a *SlackAgent) Metrics() DeliverySnapshot {
	return a.metrics.snapshot()
}

// Run executes one escalation action.
func (a *SlackAgent) Run(ctx context.Context, req Request) (datatypes.AgentResponse, error) {
	ctx, span := slackTracer.Start(ctx, "slack.Run")
	defer span.End()

	action := req.HandoffAction
	if action == "" {
		action = "confirm"
	}
	span.SetAttributes(attribute.String("handoff.action", action))

	switch action {
	case "request":
		return a.handleRequest(req), nil
	case "cancel":
		a.store.Clear(handoff.LookupKeys{
			Token:         req.HandoffToken,
			CorrelationID: req.CorrelationID,
			UserID:        req.UserID,
		})
		return a.response(
			"No problem, we will keep helping you here. Let me know if you need to escalate again.",
			datatypes.ResponseMeta{HandoffStatus: "cancelled", HandoffChannel: "slack"},
		), nil
	default:
		return a.handleConfirm(ctx, req), nil
	}
}

func (a *SlackAgent) handleRequest(req Request) datatypes.AgentResponse {
	if !a.cfg.AgentEnabled {
		return a.response(
			"The human support channel is currently disabled. Our team will keep assisting you in this chat.",
			datatypes.ResponseMeta{HandoffStatus: "disabled", HandoffChannel: "slack", Channel: a.cfg.Channel},
		)
	}

	summary := req.HandoffSummary
	if summary == "" {
		summary = req.Message
	}
	details := req.HandoffDetails
	if details == "" {
		details = req.Message
	}
	source := req.HandoffSource
	if source == "" {
		source = "manual"
	}

	pending := a.store.Register(handoff.RegisterRequest{
		CorrelationID: req.CorrelationID,
		UserID:        req.UserID,
		TicketID:      req.MetadataString("ticket_id"),
		Category:      req.MetadataString("category"),
		Priority:      req.MetadataString("priority"),
		Summary:       summary,
		Details:       details,
		Source:        source,
	})

	return a.response(
		fmt.Sprintf("I have notified the human support team in channel %s. They will review the case and follow up soon.", a.cfg.Channel),
		datatypes.ResponseMeta{
			HandoffStatus:  "pending",
			HandoffChannel: "slack",
			HandoffToken:   pending.Token,
			TicketID:       pending.TicketID,
			Category:       pending.Category,
			Priority:       pending.Priority,
			Channel:        a.cfg.Channel,
			Redirected:     true,
		},
	)
}

func (a *SlackAgent) handleConfirm(ctx context.Context, req Request) datatypes.AgentResponse {
	pending := a.store.Pop(handoff.LookupKeys{
		Token:         req.HandoffToken,
		CorrelationID: req.CorrelationID,
		UserID:        req.UserID,
	})
	if pending == nil {
		return a.response(
			"I could not find a pending escalation request. If you still need assistance, let me know and I will create one.",
			datatypes.ResponseMeta{HandoffStatus: "not_found"},
		)
	}

	if !a.cfg.DeliveryEnabled {
		return a.response(
			"The human escalation channel is temporarily unavailable. Our team will keep monitoring your request here.",
			datatypes.ResponseMeta{
				HandoffStatus:  "disabled",
				HandoffChannel: "slack",
				TicketID:       pending.TicketID,
				Category:       pending.Category,
				Priority:       pending.Priority,
			},
		)
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = pending.CorrelationID
	}
	if correlationID == "" {
		correlationID = "unknown"
	}

	start := a.now()
	a.metrics.attempt()
	result := a.deliver(ctx, pending, correlationID)
	latencyMS := math.Round(float64(time.Since(start).Microseconds())/1000*100) / 100
	a.metrics.observe(latencyMS, result.OK)

	meta := datatypes.ResponseMeta{
		HandoffChannel:   "slack",
		HandoffMessageID: result.MessageID,
		TicketID:         pending.TicketID,
		Category:         pending.Category,
		Priority:         pending.Priority,
		HandoffLatencyMS: latencyMS,
	}
	var content string
	if result.OK {
		meta.HandoffStatus = "ok"
		content = "I have engaged our human support team on Slack. They will monitor the case and respond shortly."
	} else {
		meta.HandoffStatus = "failed"
		meta.HandoffError = result.Error
		content = "I could not reach the human support team right now, but I have already notified our internal staff."
	}
	return a.response(content, meta)
}

func (a *SlackAgent) deliver(ctx context.Context, pending *handoff.PendingHandoff, correlationID string) slack.Result {
	var links []string
	if pending.TicketID != "" {
		links = append(links, fmt.Sprintf("https://www.infinitepay.io/support/tickets/%s", pending.TicketID))
	}

	payload := slack.BuildMessage(slack.Context{
		Channel:       a.cfg.Channel,
		Title:         composeEscalationTitle(pending),
		Summary:       pending.Summary,
		Details:       pending.Details,
		TicketID:      pending.TicketID,
		Category:      pending.Category,
		Priority:      pending.Priority,
		CorrelationID: correlationID,
		Links:         links,
		RequestedBy:   a.maskIdentifier(pending.UserID),
	})

	a.logger.Info("slack handoff attempt",
		"channel", payload.Channel,
		"correlation_id", correlationID,
		"ticket_id", pending.TicketID,
		"category", pending.Category,
		"priority", pending.Priority,
	)

	result := a.client.SendMessage(ctx, payload)
	if result.OK {
		a.logger.Info("slack handoff delivered",
			"channel", result.Channel,
			"message_id", result.MessageID,
			"correlation_id", correlationID,
		)
	} else {
		a.logger.Error("slack handoff failed",
			"channel", payload.Channel,
			"error", result.Error,
			"correlation_id", correlationID,
		)
	}
	return result
}

func (a *SlackAgent) maskIdentifier(value string) string {
	if value == "" || !a.cfg.PIIMasking {
		return value
	}
	masked := slackMaskEmailRE.ReplaceAllString(value, "***@$2")
	return slackMaskLongNumRE.ReplaceAllString(masked, "***")
}

func (a *SlackAgent) response(content string, meta datatypes.ResponseMeta) datatypes.AgentResponse {
	if meta.HandoffChannel == "" {
		meta.HandoffChannel = "slack"
	}
	meta.Route = "slack"
	return datatypes.AgentResponse{
		Agent:   a.Name(),
		Content: truncateRunes(collapseWhitespace(content), a.cfg.MaxResponseChars),
		Citations: []retrieval.Citation{{
			Title:      "Suporte humano",
			URL:        "https://www.infinitepay.io/suporte",
			SourceType: "infinitepay",
		}},
		Meta: meta,
	}
}

func composeEscalationTitle(pending *handoff.PendingHandoff) string {
	ticket := "#SEM-TICKET"
	if pending.TicketID != "" {
		ticket = "#" + pending.TicketID
	}
	category := pending.Category
	if category == "" {
		category = "sem-categoria"
	}
	priority := pending.Priority
	if priority == "" {
		priority = "sem-prioridade"
	}
	return strings.ToUpper(fmt.Sprintf("[SUPPORT ESCALATION] %s %s/%s", ticket, category, priority))
}
