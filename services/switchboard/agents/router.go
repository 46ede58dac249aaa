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
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
	"github.com/AleutianAI/Switchboard/services/llm"
	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var routerTracer = otel.Tracer("switchboard.agents.router")

// directRequestPhrases short-circuit classification entirely: a user asking
// for a person goes to the slack route with full confidence, no model call.
var directRequestPhrases = []string{
	"falar com humano",
	"quero humano",
	"quero um humano",
	"atendimento humano",
	"suporte humano",
	"pessoa de verdade",
	"falar com atendente",
	"preciso de humano",
	"talk to a human",
	"talk to someone",
	"human agent",
}

var (
	supportKeywords   = []string{"pagamento", "pagamentos", "fraude", "cobranca", "chargeback", "suporte"}
	knowledgeKeywords = []string{"politica", "privacidade", "privacy", "documentacao"}
)

const routerSystemPrompt = "You classify user intents for a multi-agent system." +
	" Return a JSON object with keys 'route' (knowledge, support, custom, slack)," +
	" optional 'hint', and optional 'confidence' (0-1)." +
	" Use 'slack' when the user explicitly requests human assistance or escalation." +
	" Respond with strict JSON."

// Router classifies messages into a route. With a language model configured
// it asks for a strict-JSON verdict; without one (or when the model output
// is unusable) it falls back to keyword heuristics.
type Router struct {
	client llm.Client
	logger *slog.Logger
}

// NewRouter creates a Router. client may be nil, which forces the keyword
// fallback for every message.
func NewRouter(client llm.Client, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{client: client, logger: logger}
}

type routerVerdict struct {
	Route      string   `json:"route"`
	Hint       string   `json:"hint"`
	Confidence *float64 `json:"confidence"`
}

// Route classifies one message.
func (r *Router) Route(ctx context.Context, message string) datatypes.RoutingDecision {
	ctx, span := routerTracer.Start(ctx, "router.Route")
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return datatypes.RoutingDecision{Route: datatypes.RouteCustom, Hint: "empty_message"}
	}

	if matchesDirectRequest(message) {
		return datatypes.RoutingDecision{
			Route:      datatypes.RouteSlack,
			Hint:       "user_requested_human",
			Confidence: ptrFloat(1.0),
		}
	}

	if r.client == nil {
		return r.fallbackRoute(message)
	}

	zero := float32(0)
	raw, err := r.client.Generate(ctx, routerSystemPrompt, message, llm.GenerationParams{Temperature: &zero})
	if err != nil {
		r.logger.Warn("router llm classification failed, using keyword fallback", "error", err)
		return r.fallbackRoute(message)
	}

	decision, ok := parseVerdict(raw)
	if !ok {
		return r.fallbackRoute(message)
	}
	return decision
}

// parseVerdict decodes the model's JSON reply. A reply that is not JSON is
// scanned for a bare route name; anything else is rejected so the caller
// falls back to keywords.
func parseVerdict(raw string) (datatypes.RoutingDecision, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return datatypes.RoutingDecision{}, false
	}

	var verdict routerVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		lowered := strings.ToLower(raw)
		for _, candidate := range []datatypes.Route{
			datatypes.RouteKnowledge, datatypes.RouteSupport, datatypes.RouteCustom, datatypes.RouteSlack,
		} {
			if strings.Contains(lowered, string(candidate)) {
				return datatypes.RoutingDecision{Route: candidate, Hint: "recovered_from_plain_text"}, true
			}
		}
		return datatypes.RoutingDecision{}, false
	}

	decision := datatypes.RoutingDecision{Hint: verdict.Hint}
	if datatypes.ValidRoute(verdict.Route) {
		decision.Route = datatypes.Route(verdict.Route)
	} else {
		decision.Route = datatypes.RouteCustom
		if decision.Hint == "" {
			decision.Hint = "model_returned_unsupported_route"
		}
	}
	if verdict.Confidence != nil && *verdict.Confidence >= 0.0 && *verdict.Confidence <= 1.0 {
		decision.Confidence = verdict.Confidence
	}
	return decision, true
}

func (r *Router) fallbackRoute(message string) datatypes.RoutingDecision {
	text := normalizeRouting(message)
	if text == "" {
		return datatypes.RoutingDecision{Route: datatypes.RouteCustom, Hint: "fallback_empty"}
	}
	for _, keyword := range supportKeywords {
		if strings.Contains(text, keyword) {
			return datatypes.RoutingDecision{Route: datatypes.RouteSupport, Hint: "fallback_support", Confidence: ptrFloat(0.4)}
		}
	}
	for _, keyword := range knowledgeKeywords {
		if strings.Contains(text, keyword) {
			return datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Hint: "fallback_knowledge", Confidence: ptrFloat(0.4)}
		}
	}
	return datatypes.RoutingDecision{Route: datatypes.RouteCustom, Hint: "fallback_custom", Confidence: ptrFloat(0.3)}
}

// matchesDirectRequest detects an explicit ask for a human. Phrase match
// first, then a looser word-pair check (a human/attendant noun plus a
// want/need/talk verb anywhere in the message).
func matchesDirectRequest(message string) bool {
	text := normalizeRouting(message)
	if text == "" {
		return false
	}
	for _, phrase := range directRequestPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	hasNoun := false
	for _, word := range strings.Fields(text) {
		if word == "humano" || word == "atendente" {
			hasNoun = true
			break
		}
	}
	if !hasNoun {
		return false
	}
	return strings.Contains(text, "quero") || strings.Contains(text, "preciso") || strings.Contains(text, "falar")
}

func normalizeRouting(message string) string {
	return textutil.FoldAccents(strings.ToLower(collapseWhitespace(message)))
}

func ptrFloat(v float64) *float64 {
	return &v
}
