// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handoff

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

// Redirect reasons, in evaluation order.
const (
	ReasonManual          = "manual"
	ReasonLowConfidence   = "low_confidence"
	ReasonExplicitRequest = "explicit_request"
)

// AcknowledgementContent is the fixed reply sent when a redirect fires.
// It promises a follow-up by a human operator and is never generated by
// an LLM, so it cannot leak model output into an escalation.
const AcknowledgementContent = "I've forwarded your request to our support team. " +
	"A human agent will follow up with you shortly. " +
	"Your ticket reference is included below for tracking."

// humanRequestPatterns match explicit asks for a human operator. They run
// against the normalized (lowercased, accent-folded) message.
var humanRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(falar|conversar|atendimento)\s+com\s+(um\s+)?(humano|atendente|pessoa|gente)\b`),
	regexp.MustCompile(`\b(talk|speak|chat)\s+(to|with)\s+(a\s+)?(human|person|agent|representative|someone)\b`),
	regexp.MustCompile(`\b(quero|preciso)\s+(um\s+)?(humano|atendente)\b`),
	regexp.MustCompile(`\bhuman\s+(support|agent|help)\b`),
	regexp.MustCompile(`\breal\s+person\b`),
}

// RedirectConfig controls the redirect decision engine.
type RedirectConfig struct {
	// Enabled gates the whole engine. When false, Evaluate never fires.
	Enabled bool

	// AlwaysRedirect escalates every message regardless of routing.
	AlwaysRedirect bool

	// ConfidenceThreshold is the routing-confidence floor. Decisions with
	// a confidence strictly below it redirect. A routing decision with no
	// confidence at all never trips this check.
	ConfidenceThreshold float64

	// Channel names the delivery target recorded on the decision.
	Channel string
}

// DefaultRedirectConfig returns the engine defaults.
func DefaultRedirectConfig() RedirectConfig {
	return RedirectConfig{
		Enabled:             true,
		ConfidenceThreshold: 0.3,
		Channel:             "slack",
	}
}

// RedirectDecision is a fired redirect: why it fired and the ticket
// issued for it.
type RedirectDecision struct {
	Reason   string `json:"reason"`
	TicketID string `json:"ticket_id"`
	Content  string `json:"content"`
	Channel  string `json:"channel"`
}

// RedirectEngine decides, per message, whether to short-circuit agent
// execution and escalate to a human. Safe for concurrent use.
type RedirectEngine struct {
	cfg RedirectConfig
	seq atomic.Uint64
	now func() time.Time
}

// NewRedirectEngine creates a RedirectEngine with the given config.
func NewRedirectEngine(cfg RedirectConfig) *RedirectEngine {
	if cfg.Channel == "" {
		cfg.Channel = "slack"
	}
	return &RedirectEngine{cfg: cfg, now: time.Now}
}

// Evaluate checks the redirect rules in priority order and returns a
// decision when one fires, or nil when the message should proceed to its
// routed agent.
//
// Rule order:
//  1. always-redirect config flag, reason "manual"
//  2. routing confidence below threshold, reason "low_confidence"
//  3. explicit human-request phrasing, reason "explicit_request"
//  4. caller-forced metadata reason, passed through verbatim
//
// A message already routed to the human channel never redirects; the
// escalation is the route itself, not a short-circuit of it.
func (e *RedirectEngine) Evaluate(message string, routing datatypes.RoutingDecision, metadataReason string) *RedirectDecision {
	if !e.cfg.Enabled {
		return nil
	}
	if routing.Route == datatypes.RouteSlack {
		return nil
	}

	if e.cfg.AlwaysRedirect {
		return e.decision(ReasonManual)
	}
	if routing.Confidence != nil && *routing.Confidence < e.cfg.ConfidenceThreshold {
		return e.decision(ReasonLowConfidence)
	}
	if matchesHumanRequest(message) {
		return e.decision(ReasonExplicitRequest)
	}
	if metadataReason != "" {
		return e.decision(metadataReason)
	}
	return nil
}

// NextTicketID issues a ticket identifier of the form HUM-<yyyymmdd>-<nnn>.
// The sequence is monotonic per process and wraps modulo 1000; the date
// component keeps identifiers unique enough across restarts for human
// correlation, not for storage keys.
func (e *RedirectEngine) NextTicketID() string {
	seq := e.seq.Add(1) % 1000
	return fmt.Sprintf("HUM-%s-%03d", e.now().UTC().Format("20060102"), seq)
}

func (e *RedirectEngine) decision(reason string) *RedirectDecision {
	return &RedirectDecision{
		Reason:   reason,
		TicketID: e.NextTicketID(),
		Content:  AcknowledgementContent,
		Channel:  e.cfg.Channel,
	}
}

func matchesHumanRequest(message string) bool {
	normalized := normalizeReply(message)
	for _, re := range humanRequestPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
