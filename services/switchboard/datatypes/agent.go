// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the request, response, and routing structures
// shared by the switchboard gateway and its agents.
package datatypes

import (
	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/retrieval"
)

// Route names a downstream response strategy.
type Route string

const (
	// RouteKnowledge answers from the document index.
	RouteKnowledge Route = "knowledge"

	// RouteSupport handles FAQ lookups and support tickets.
	RouteSupport Route = "support"

	// RouteCustom is the generic persona fallback.
	RouteCustom Route = "custom"

	// RouteSlack escalates to a human operator.
	RouteSlack Route = "slack"

	// RouteGuardrails marks a turn refused by the inbound policy scan.
	// Response-only; the router never produces it and ValidRoute
	// excludes it.
	RouteGuardrails Route = "guardrails"
)

// ValidRoute reports whether value names a known dispatchable route.
func ValidRoute(value string) bool {
	switch Route(value) {
	case RouteKnowledge, RouteSupport, RouteCustom, RouteSlack:
		return true
	}
	return false
}

// RoutingDecision is the router agent's verdict for one message.
// Confidence is nil when the classifier could not estimate one; a nil
// confidence never triggers the low-confidence redirect.
type RoutingDecision struct {
	Route      Route    `json:"route"`
	Hint       string   `json:"hint,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ResponseMeta is the typed response-metadata record. Each pipeline stage
// reports into explicit fields; nothing accumulates in loose key bags.
type ResponseMeta struct {
	RAGUsed                   bool    `json:"rag_used"`
	TopKSelected              int     `json:"top_k_selected"`
	AvgScore                  float64 `json:"avg_score"`
	CacheHit                  bool    `json:"cache_hit"`
	FallbackUsed              bool    `json:"fallback_used"`
	WebSearchUsed             bool    `json:"web_search_used"`
	DurationMS                float64 `json:"duration_ms"`
	PreviousMessageRemembered bool    `json:"previous_message_remembered,omitempty"`

	Redirected     bool   `json:"redirected,omitempty"`
	RedirectReason string `json:"redirect_reason,omitempty"`
	TicketID       string `json:"ticket_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
	UserID         string `json:"user_id,omitempty"`

	// Support agent fields.
	FAQHit              bool              `json:"faq_hit,omitempty"`
	FAQScore            *float64          `json:"faq_score,omitempty"`
	FAQExplanation      string            `json:"faq_explanation,omitempty"`
	Category            string            `json:"category,omitempty"`
	Priority            string            `json:"priority,omitempty"`
	EscalationSuggested bool              `json:"escalation_suggested,omitempty"`
	SupportLatencyMS    float64           `json:"support_latency_ms,omitempty"`
	ToolsUsed           []string          `json:"tools_used,omitempty"`
	AccountStatus       string            `json:"account_status,omitempty"`
	UserProfile         map[string]string `json:"user_profile,omitempty"`
	UserProfileFields   []string          `json:"user_profile_fields,omitempty"`

	// Handoff/slack fields. TicketSummary and TicketDescription hold the
	// material for a pending handoff registration; the gateway consumes
	// them before the response leaves the process.
	HandoffStatus     string               `json:"handoff_status,omitempty"`
	HandoffChannel    string               `json:"handoff_channel,omitempty"`
	HandoffSource     string               `json:"handoff_source,omitempty"`
	HandoffToken      string               `json:"handoff_token,omitempty"`
	HandoffMessageID  string               `json:"handoff_message_id,omitempty"`
	HandoffLatencyMS  float64              `json:"handoff_latency_ms,omitempty"`
	HandoffError      string               `json:"handoff_error,omitempty"`
	HandoffRequest    *HandoffConfirmation `json:"handoff_request,omitempty"`
	TicketSummary     string               `json:"-"`
	TicketDescription string               `json:"-"`

	Route string `json:"route,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// HandoffConfirmation describes a pending escalation awaiting the user's
// yes/no reply.
type HandoffConfirmation struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	TicketID  string `json:"ticket_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Priority  string `json:"priority,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
}

// AgentResponse is what any agent (or the redirect short-circuit) returns.
type AgentResponse struct {
	Agent     string               `json:"agent"`
	Content   string               `json:"content"`
	Citations []retrieval.Citation `json:"citations"`
	Meta      ResponseMeta         `json:"meta"`
}

// GuardrailReport merges the typed per-stage guardrail results for one
// request. The gateway fills it from the pre- and post-process passes.
type GuardrailReport struct {
	Preprocess         guardrails.PreprocessFlags  `json:"preprocess"`
	Postprocess        guardrails.PostprocessFlags `json:"postprocess"`
	DetectedInjections []string                    `json:"detected_injections,omitempty"`
	Violations         []guardrails.Violation      `json:"violations,omitempty"`
	PreprocessMS       float64                     `json:"preprocess_ms"`
	PostprocessMS      float64                     `json:"postprocess_ms"`
}
