// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the switchboard gateway.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/handoff"
	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/support"
	"github.com/AleutianAI/Switchboard/services/switchboard/agents"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
	"github.com/AleutianAI/Switchboard/services/switchboard/middleware"
	"github.com/AleutianAI/Switchboard/services/switchboard/observability"
)

var chatTracer = otel.Tracer("switchboard.handlers")

// maxContentChars bounds any content returned to the user.
const maxContentChars = 2000

// maskedPreviewChars bounds the masked input preview placed in logs.
const maskedPreviewChars = 200

// Deps bundles everything the gateway endpoints need. Built once in main
// and shared; all members are safe for concurrent use.
type Deps struct {
	Guardrails *guardrails.Pipeline
	Router     *agents.Router
	Agents     map[datatypes.Route]agents.Agent
	Redirect   *handoff.RedirectEngine
	Handoffs   *handoff.Store
	Support    *support.Service
	Index      *retrieval.Index
	Reranker   *retrieval.Reranker
	Citations  *retrieval.CitationBuilder

	// RetrievalEnabled mirrors the retrieval config so readiness and the
	// diagnostics endpoints can report a deliberately disabled index as
	// healthy rather than broken.
	RetrievalEnabled bool
	Metrics          *observability.GatewayMetrics
	Logger           *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Deps) agentFor(route datatypes.Route) agents.Agent {
	if agent, ok := d.Agents[route]; ok {
		return agent
	}
	return d.Agents[datatypes.RouteCustom]
}

// HandleChat is the main conversation endpoint.
//
// Per message: guardrail preprocess, pending-handoff resolution, direct
// human-request detection, routing, redirect evaluation, agent dispatch,
// handoff registration for suggested escalations, guardrail postprocess.
func HandleChat(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		start := time.Now()
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
			span.SetStatus(codes.Error, "guardrail preprocess failed")
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "guardrails_failed", CorrelationID: correlationID,
			})
			return
		}
		recordGuardrailFindings(deps.Metrics, pre)

		deps.logger().Info("chat request",
			"correlation_id", correlationID,
			"request_id", req.RequestID,
			"user_id", maskUserRef(req.UserID),
			"injection_detected", pre.Flags.InjectionDetected,
			"pii_masked", pre.Flags.PIIMasked,
			"masked_preview", pre.MaskedPreview(maskedPreviewChars),
		)

		// A policy violation ends the turn here: the user gets a fixed
		// refusal and the message never reaches routing or an agent.
		if len(pre.Violations) > 0 {
			span.SetAttributes(attribute.Int("chat.violations", len(pre.Violations)))
			refuseViolations(c, deps, &req, pre, start, correlationID)
			return
		}

		processed := pre.Message
		span.SetAttributes(attribute.Int("chat.message_chars", len(processed)))

		// A pending escalation consumes the whole turn: the reply is a
		// yes/no and never reaches routing.
		lookup := handoff.LookupKeys{
			Token:  req.MetadataString("handoff_token"),
			UserID: req.UserID,
		}
		if middleware.ClientCorrelationID(c) {
			lookup.CorrelationID = correlationID
		}
		if pending := deps.Handoffs.Fetch(lookup); pending != nil {
			resolvePendingHandoff(ctx, c, deps, &req, pending, processed, pre, start, correlationID)
			return
		}

		if handoff.IsDirectRequest(processed) {
			dispatch(ctx, c, deps, deps.agentFor(datatypes.RouteSlack), agents.Request{
				Message:         processed,
				OriginalMessage: req.Message,
				UserID:          req.UserID,
				CorrelationID:   correlationID,
				Metadata:        req.Metadata,
				HandoffAction:   "request",
				HandoffSummary:  processed,
				HandoffDetails:  processed,
				HandoffSource:   "direct",
			}, &req, datatypes.RoutingDecision{Route: datatypes.RouteSlack, Hint: "user_requested_human"}, pre, start, correlationID)
			return
		}

		routing := deps.Router.Route(ctx, processed)
		span.SetAttributes(attribute.String("chat.route", string(routing.Route)))

		if decision := deps.Redirect.Evaluate(processed, routing, req.MetadataString("redirect_reason")); decision != nil {
			deps.Metrics.RedirectsTotal.WithLabelValues(decision.Reason).Inc()
			redirected := datatypes.AgentResponse{
				Agent:   "redirect",
				Content: decision.Content,
				Meta: datatypes.ResponseMeta{
					Redirected:     true,
					RedirectReason: decision.Reason,
					TicketID:       decision.TicketID,
					Channel:        decision.Channel,
					UserID:         req.UserID,
				},
			}
			finalize(c, deps, &req, redirected, routing, pre, start, correlationID)
			return
		}

		agentReq := agents.Request{
			Message:         processed,
			OriginalMessage: req.Message,
			UserID:          req.UserID,
			CorrelationID:   correlationID,
			Metadata:        req.Metadata,
		}
		if routing.Route == datatypes.RouteSlack {
			agentReq.HandoffAction = "request"
			agentReq.HandoffSummary = processed
			agentReq.HandoffDetails = processed
			agentReq.HandoffSource = "router"
		}
		dispatch(ctx, c, deps, deps.agentFor(routing.Route), agentReq, &req, routing, pre, start, correlationID)
	}
}

// refuseViolations answers a message the inbound scan flagged with a fixed
// refusal naming the violated categories. The violations themselves travel
// in the guardrail report of the envelope.
func refuseViolations(
	c *gin.Context,
	deps *Deps,
	req *datatypes.ChatRequest,
	pre *guardrails.PreprocessResult,
	start time.Time,
	correlationID string,
) {
	routing := datatypes.RoutingDecision{Route: datatypes.RouteGuardrails, Hint: "guardrail_violation"}
	refused := datatypes.AgentResponse{
		Agent:   "guardrails",
		Content: violationRefusal(pre.Violations),
		Meta: datatypes.ResponseMeta{
			UserID: req.UserID,
		},
	}
	finalize(c, deps, req, refused, routing, pre, start, correlationID)
}

// violationRefusal builds the refusal sentence from the distinct violated
// categories, in detection order.
func violationRefusal(violations []guardrails.Violation) string {
	seen := make(map[string]bool, len(violations))
	categories := make([]string, 0, len(violations))
	for _, v := range violations {
		name := strings.ReplaceAll(v.Category, "_", " ")
		if !seen[name] {
			seen[name] = true
			categories = append(categories, name)
		}
	}
	return fmt.Sprintf(
		"I cannot help with that request because it violates our policy on %s. Please rephrase without the flagged content.",
		strings.Join(categories, ", "),
	)
}

// resolvePendingHandoff classifies the user's reply to an outstanding
// escalation question and acts on it.
func resolvePendingHandoff(
	ctx context.Context,
	c *gin.Context,
	deps *Deps,
	req *datatypes.ChatRequest,
	pending *handoff.PendingHandoff,
	processed string,
	pre *guardrails.PreprocessResult,
	start time.Time,
	correlationID string,
) {
	routing := datatypes.RoutingDecision{Route: datatypes.RouteSlack, Hint: "pending_handoff"}
	verdict := handoff.ClassifyConfirmation(processed)
	deps.Metrics.HandoffEventsTotal.WithLabelValues(string(verdict), "classified").Inc()

	switch verdict {
	case handoff.ConfirmationConfirm:
		dispatch(ctx, c, deps, deps.agentFor(datatypes.RouteSlack), agents.Request{
			Message:         processed,
			OriginalMessage: req.Message,
			UserID:          req.UserID,
			CorrelationID:   correlationID,
			Metadata:        req.Metadata,
			HandoffAction:   "confirm",
			HandoffToken:    pending.Token,
		}, req, routing, pre, start, correlationID)

	case handoff.ConfirmationDeny:
		deps.Handoffs.Clear(handoff.LookupKeys{Token: pending.Token})
		finalize(c, deps, req, datatypes.AgentResponse{
			Agent:   "slack",
			Content: "Tudo bem, nao vou acionar suporte humano agora. Se mudar de ideia, e so me avisar.",
			Meta: datatypes.ResponseMeta{
				HandoffStatus:  "cancelled",
				HandoffChannel: "slack",
				TicketID:       pending.TicketID,
				Category:       pending.Category,
				Priority:       pending.Priority,
			},
		}, routing, pre, start, correlationID)

	default:
		finalize(c, deps, req, datatypes.AgentResponse{
			Agent:   "slack",
			Content: "Nao entendi. Responda apenas com 'sim' para acionar o time humano ou 'nao' para manter o atendimento aqui.",
			Meta: datatypes.ResponseMeta{
				HandoffStatus:  "pending",
				HandoffChannel: "slack",
				HandoffToken:   pending.Token,
				TicketID:       pending.TicketID,
				Category:       pending.Category,
				Priority:       pending.Priority,
			},
		}, routing, pre, start, correlationID)
	}
}

// dispatch runs the selected agent and finalizes its response. Support
// responses that suggest escalation additionally register a pending handoff
// so the next turn can confirm it.
func dispatch(
	ctx context.Context,
	c *gin.Context,
	deps *Deps,
	agent agents.Agent,
	agentReq agents.Request,
	req *datatypes.ChatRequest,
	routing datatypes.RoutingDecision,
	pre *guardrails.PreprocessResult,
	start time.Time,
	correlationID string,
) {
	response, err := agent.Run(ctx, agentReq)
	if err != nil {
		writeAgentError(c, deps, err, agent.Name(), routing, correlationID)
		return
	}

	if routing.Route == datatypes.RouteSupport && response.Meta.EscalationSuggested {
		registerSupportHandoff(deps, req, &response, correlationID)
	}

	finalize(c, deps, req, response, routing, pre, start, correlationID)
}

// registerSupportHandoff stores the escalation material the support agent
// produced and hands the confirmation token back to the user.
func registerSupportHandoff(deps *Deps, req *datatypes.ChatRequest, response *datatypes.AgentResponse, correlationID string) {
	summary := response.Meta.TicketSummary
	if summary == "" {
		summary = req.Message
	}
	details := response.Meta.TicketDescription
	if details == "" {
		details = req.Message
	}
	pending := deps.Handoffs.Register(handoff.RegisterRequest{
		CorrelationID: correlationID,
		UserID:        req.UserID,
		TicketID:      response.Meta.TicketID,
		Category:      response.Meta.Category,
		Priority:      response.Meta.Priority,
		Summary:       summary,
		Details:       details,
		Source:        "support",
	})
	deps.Metrics.HandoffEventsTotal.WithLabelValues("request", "pending").Inc()

	response.Meta.HandoffStatus = "pending"
	response.Meta.HandoffChannel = "slack"
	response.Meta.HandoffToken = pending.Token
	response.Meta.HandoffRequest = &datatypes.HandoffConfirmation{
		Token:     pending.Token,
		Channel:   pending.Channel,
		TicketID:  pending.TicketID,
		Category:  pending.Category,
		Priority:  pending.Priority,
		ExpiresAt: pending.ExpiresAt().UnixMilli(),
	}
}

// finalize runs outbound guardrails, assembles the response envelope, and
// records metrics. Every success path funnels through here.
func finalize(
	c *gin.Context,
	deps *Deps,
	req *datatypes.ChatRequest,
	response datatypes.AgentResponse,
	routing datatypes.RoutingDecision,
	pre *guardrails.PreprocessResult,
	start time.Time,
	correlationID string,
) {
	post := deps.Guardrails.Postprocess(response.Content)
	if post.Flags.ModerationBlocked {
		deps.Metrics.GuardrailFindingsTotal.WithLabelValues("moderation_blocked").Inc()
	}
	if post.Flags.OutputTruncated {
		deps.Metrics.GuardrailFindingsTotal.WithLabelValues("output_truncated").Inc()
	}

	response.Content = clampContent(post.Content)
	response.Meta.DurationMS = latencyMS(start)
	if response.Meta.Route == "" {
		response.Meta.Route = string(routing.Route)
	}

	envelope := datatypes.NewChatResponse(req.RequestID, correlationID)
	envelope.Response = response
	envelope.Routing = routing
	envelope.Guardrails = datatypes.GuardrailReport{
		Preprocess:         pre.Flags,
		Postprocess:        post.Flags,
		DetectedInjections: pre.DetectedInjections,
		Violations:         pre.Violations,
		PreprocessMS:       pre.LatencyMS,
		PostprocessMS:      post.LatencyMS,
	}

	deps.Metrics.RequestsTotal.WithLabelValues(string(routing.Route), response.Agent, "success").Inc()
	deps.Metrics.RequestDurationSeconds.WithLabelValues(string(routing.Route)).Observe(time.Since(start).Seconds())
	deps.Metrics.PendingHandoffs.Set(float64(deps.Handoffs.Len()))

	deps.logger().Info("chat response",
		"correlation_id", correlationID,
		"agent", response.Agent,
		"route", routing.Route,
		"latency_ms", response.Meta.DurationMS,
		"moderation_blocked", post.Flags.ModerationBlocked,
		"output_truncated", post.Flags.OutputTruncated,
	)

	c.JSON(http.StatusOK, envelope)
}

// writeAgentError maps agent failures onto HTTP statuses. Controlled errors
// carry their own status; anything else is a 500.
func writeAgentError(c *gin.Context, deps *Deps, err error, agentName string, routing datatypes.RoutingDecision, correlationID string) {
	deps.Metrics.RequestsTotal.WithLabelValues(string(routing.Route), agentName, "error").Inc()

	var controlled *agents.ControlledError
	if errors.As(err, &controlled) {
		deps.logger().Warn("agent controlled error",
			"correlation_id", correlationID,
			"agent", agentName,
			"error", controlled.Code,
		)
		c.JSON(controlled.StatusCode, datatypes.ErrorResponse{
			Error:         controlled.Code,
			Detail:        controlled.Details,
			CorrelationID: correlationID,
		})
		return
	}

	deps.logger().Error("agent unexpected error",
		"correlation_id", correlationID,
		"agent", agentName,
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
		Error:         "internal_error",
		Detail:        "Unexpected error while processing the request.",
		CorrelationID: correlationID,
	})
}

func recordGuardrailFindings(metrics *observability.GatewayMetrics, pre *guardrails.PreprocessResult) {
	if pre.Flags.InjectionDetected {
		metrics.GuardrailFindingsTotal.WithLabelValues("injection").Inc()
	}
	if pre.Flags.PIIMasked {
		metrics.GuardrailFindingsTotal.WithLabelValues("pii_masked").Inc()
	}
	if len(pre.Violations) > 0 {
		metrics.GuardrailFindingsTotal.WithLabelValues("violation").Inc()
	}
}

// clampContent folds whitespace and hard-caps the outbound content length.
func clampContent(text string) string {
	collapsed := collapseSpace(text)
	runes := []rune(collapsed)
	if len(runes) <= maxContentChars {
		return collapsed
	}
	return trimTrailingSpace(string(runes[:maxContentChars]))
}

// maskUserRef keeps the first three characters of a user id for logs.
func maskUserRef(userID string) string {
	if userID == "" {
		return ""
	}
	runes := []rune(userID)
	if len(runes) <= 3 {
		return string(runes) + "***"
	}
	return string(runes[:3]) + "***"
}

func latencyMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
