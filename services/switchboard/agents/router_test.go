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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

func TestRouter_DirectHumanRequest(t *testing.T) {
	router := NewRouter(nil, nil)

	for _, message := range []string{
		"quero falar com atendente agora",
		"preciso de humano",
		"Por favor, atendimento humano!",
		"quero um humano para resolver isso",
	} {
		decision := router.Route(context.Background(), message)
		assert.Equal(t, datatypes.RouteSlack, decision.Route, "message %q", message)
		assert.Equal(t, "user_requested_human", decision.Hint)
		require.NotNil(t, decision.Confidence)
		assert.Equal(t, 1.0, *decision.Confidence)
	}
}

func TestRouter_DirectRequestNeedsIntentVerb(t *testing.T) {
	router := NewRouter(nil, nil)

	// "atendente" alone, without a want/need/talk verb, is not a direct ask.
	decision := router.Route(context.Background(), "o atendente foi muito bom ontem")
	assert.NotEqual(t, datatypes.RouteSlack, decision.Route)
}

func TestRouter_KeywordFallback(t *testing.T) {
	router := NewRouter(nil, nil)

	tests := []struct {
		message    string
		route      datatypes.Route
		hint       string
		confidence float64
	}{
		{"problema com pagamento na maquininha", datatypes.RouteSupport, "fallback_support", 0.4},
		{"suspeita de fraude no cartao", datatypes.RouteSupport, "fallback_support", 0.4},
		{"qual a politica de privacidade?", datatypes.RouteKnowledge, "fallback_knowledge", 0.4},
		{"me fale sobre a documentacao", datatypes.RouteKnowledge, "fallback_knowledge", 0.4},
		{"oi tudo bem", datatypes.RouteCustom, "fallback_custom", 0.3},
	}
	for _, tc := range tests {
		decision := router.Route(context.Background(), tc.message)
		assert.Equal(t, tc.route, decision.Route, "message %q", tc.message)
		assert.Equal(t, tc.hint, decision.Hint)
		require.NotNil(t, decision.Confidence)
		assert.Equal(t, tc.confidence, *decision.Confidence)
	}
}

func TestRouter_FallbackFoldsAccents(t *testing.T) {
	router := NewRouter(nil, nil)

	decision := router.Route(context.Background(), "qual a política de privacidade?")
	assert.Equal(t, datatypes.RouteKnowledge, decision.Route)
}

func TestRouter_EmptyMessage(t *testing.T) {
	router := NewRouter(nil, nil)

	decision := router.Route(context.Background(), "   ")
	assert.Equal(t, datatypes.RouteCustom, decision.Route)
	assert.Equal(t, "empty_message", decision.Hint)
	assert.Nil(t, decision.Confidence)
}

func TestParseVerdict_StrictJSON(t *testing.T) {
	decision, ok := parseVerdict(`{"route": "support", "hint": "billing", "confidence": 0.9}`)
	require.True(t, ok)
	assert.Equal(t, datatypes.RouteSupport, decision.Route)
	assert.Equal(t, "billing", decision.Hint)
	require.NotNil(t, decision.Confidence)
	assert.Equal(t, 0.9, *decision.Confidence)
}

func TestParseVerdict_FencedJSON(t *testing.T) {
	decision, ok := parseVerdict("```json\n{\"route\": \"knowledge\"}\n```")
	require.True(t, ok)
	assert.Equal(t, datatypes.RouteKnowledge, decision.Route)
}

func TestParseVerdict_UnsupportedRoute(t *testing.T) {
	decision, ok := parseVerdict(`{"route": "billing"}`)
	require.True(t, ok)
	assert.Equal(t, datatypes.RouteCustom, decision.Route)
	assert.Equal(t, "model_returned_unsupported_route", decision.Hint)
}

func TestParseVerdict_ConfidenceOutOfRange(t *testing.T) {
	decision, ok := parseVerdict(`{"route": "support", "confidence": 1.7}`)
	require.True(t, ok)
	assert.Nil(t, decision.Confidence)
}

func TestParseVerdict_PlainTextRecovery(t *testing.T) {
	decision, ok := parseVerdict("The best route here is knowledge.")
	require.True(t, ok)
	assert.Equal(t, datatypes.RouteKnowledge, decision.Route)
	assert.Equal(t, "recovered_from_plain_text", decision.Hint)
}

func TestParseVerdict_Garbage(t *testing.T) {
	_, ok := parseVerdict("I cannot help with that.")
	assert.False(t, ok)

	_, ok = parseVerdict("")
	assert.False(t, ok)
}
