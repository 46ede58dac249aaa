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
	"regexp"
	"testing"
	"time"

	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

func floatPtr(v float64) *float64 { return &v }

// TestRedirectEngine_Evaluate_LowConfidence tests the confidence-floor rule.
func TestRedirectEngine_Evaluate_LowConfidence(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.2)}
	decision := e.Evaluate("how do fees work", routing, "")
	if decision == nil {
		t.Fatal("confidence below threshold should redirect")
	}
	if decision.Reason != ReasonLowConfidence {
		t.Errorf("reason = %q", decision.Reason)
	}
	if decision.Content != AcknowledgementContent {
		t.Errorf("content = %q", decision.Content)
	}
}

// TestRedirectEngine_Evaluate_NilConfidenceNeverLowConfidence tests that a
// missing confidence cannot trip the threshold rule.
func TestRedirectEngine_Evaluate_NilConfidenceNeverLowConfidence(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge}
	if decision := e.Evaluate("how do fees work", routing, ""); decision != nil {
		t.Errorf("nil confidence redirected: %+v", decision)
	}
}

// TestRedirectEngine_Evaluate_ConfidenceAtThreshold tests the boundary:
// exactly at the threshold does not redirect.
func TestRedirectEngine_Evaluate_ConfidenceAtThreshold(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.3)}
	if decision := e.Evaluate("how do fees work", routing, ""); decision != nil {
		t.Errorf("threshold confidence redirected: %+v", decision)
	}
}

// TestRedirectEngine_Evaluate_ExplicitHumanRequest tests phrase detection in
// both languages, including accented forms.
func TestRedirectEngine_Evaluate_ExplicitHumanRequest(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())
	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.9)}

	for _, message := range []string{
		"quero falar com um humano",
		"I want to talk to a person about this",
		"can I speak with a representative",
		"preciso de atendimento com atendente",
		"give me a real person",
	} {
		decision := e.Evaluate(message, routing, "")
		if decision == nil {
			t.Errorf("Evaluate(%q) = nil, want explicit_request", message)
			continue
		}
		if decision.Reason != ReasonExplicitRequest {
			t.Errorf("Evaluate(%q) reason = %q", message, decision.Reason)
		}
	}
}

// TestRedirectEngine_Evaluate_MetadataReason tests the caller-forced path:
// it fires when no built-in rule does, passing the reason through verbatim,
// and yields to the low-confidence rule when both apply.
func TestRedirectEngine_Evaluate_MetadataReason(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.9)}
	decision := e.Evaluate("anything", routing, "vip_customer")
	if decision == nil || decision.Reason != "vip_customer" {
		t.Fatalf("decision = %+v", decision)
	}

	routing.Confidence = floatPtr(0.1)
	decision = e.Evaluate("anything", routing, "vip_customer")
	if decision == nil || decision.Reason != ReasonLowConfidence {
		t.Fatalf("decision = %+v, want low_confidence to outrank metadata", decision)
	}
}

// TestRedirectEngine_Evaluate_AlwaysRedirect tests the manual override.
func TestRedirectEngine_Evaluate_AlwaysRedirect(t *testing.T) {
	cfg := DefaultRedirectConfig()
	cfg.AlwaysRedirect = true
	e := NewRedirectEngine(cfg)

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.99)}
	decision := e.Evaluate("ordinary question", routing, "")
	if decision == nil || decision.Reason != ReasonManual {
		t.Fatalf("decision = %+v", decision)
	}
}

// TestRedirectEngine_Evaluate_NeverOnHumanRoute tests that a message headed
// for the human channel is never short-circuited again.
func TestRedirectEngine_Evaluate_NeverOnHumanRoute(t *testing.T) {
	cfg := DefaultRedirectConfig()
	cfg.AlwaysRedirect = true
	e := NewRedirectEngine(cfg)

	routing := datatypes.RoutingDecision{Route: datatypes.RouteSlack, Confidence: floatPtr(0.1)}
	if decision := e.Evaluate("quero falar com um humano", routing, "forced"); decision != nil {
		t.Errorf("human route redirected: %+v", decision)
	}
}

// TestRedirectEngine_Evaluate_Disabled tests the global off switch.
func TestRedirectEngine_Evaluate_Disabled(t *testing.T) {
	cfg := DefaultRedirectConfig()
	cfg.Enabled = false
	e := NewRedirectEngine(cfg)

	routing := datatypes.RoutingDecision{Route: datatypes.RouteKnowledge, Confidence: floatPtr(0.0)}
	if decision := e.Evaluate("quero falar com um humano", routing, "forced"); decision != nil {
		t.Errorf("disabled engine redirected: %+v", decision)
	}
}

// TestRedirectEngine_NextTicketID tests the HUM-yyyymmdd-nnn shape and the
// monotonic sequence.
func TestRedirectEngine_NextTicketID(t *testing.T) {
	e := NewRedirectEngine(DefaultRedirectConfig())
	e.now = func() time.Time { return time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC) }

	first := e.NextTicketID()
	second := e.NextTicketID()

	pattern := regexp.MustCompile(`^HUM-20250601-\d{3}$`)
	if !pattern.MatchString(first) {
		t.Errorf("ticket id = %q", first)
	}
	if first != "HUM-20250601-001" || second != "HUM-20250601-002" {
		t.Errorf("sequence = %q, %q", first, second)
	}
}
