// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package support

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Decide_Categories(t *testing.T) {
	p := NewPolicy("", "", false)

	tests := []struct {
		message string
		want    string
	}{
		{"o pagamento nao caiu na conta", "pagamentos"},
		{"esqueci minha senha de novo", "acesso"},
		{"a maquininha nao liga", "dispositivo"},
		{"quero atualizar meu cadastro", "conta"},
		{"qual o horario de funcionamento", "outros"},
	}
	for _, tt := range tests {
		got := p.Decide(tt.message)
		assert.Equal(t, tt.want, got.Category, "message %q", tt.message)
	}
}

// Category matching folds accents, so the accented spelling of a term table
// entry still matches.
func TestPolicy_Decide_AccentedMessage(t *testing.T) {
	p := NewPolicy("", "", false)

	got := p.Decide("recebi uma cobrança estranha")
	assert.Equal(t, "pagamentos", got.Category)
}

func TestPolicy_Decide_Priorities(t *testing.T) {
	p := NewPolicy("", "", false)

	tests := []struct {
		message        string
		wantPriority   string
		wantEscalation bool
	}{
		{"o sistema esta fora do ar", PriorityCritical, true},
		{"suspeita de fraude no meu cartao", PriorityCritical, true},
		{"nao consigo acessar minha conta", PriorityHigh, true},
		{"o aplicativo nao funciona direito", PriorityMedium, false},
		{"como emito uma nota fiscal", PriorityLow, false},
	}
	for _, tt := range tests {
		got := p.Decide(tt.message)
		assert.Equal(t, tt.wantPriority, got.Priority, "message %q", tt.message)
		assert.Equal(t, tt.wantEscalation, got.Escalation, "message %q", tt.message)
	}
}

// A request for a human or a repeat-issue complaint escalates even a
// low-priority message.
func TestPolicy_Decide_EscalationOverrides(t *testing.T) {
	p := NewPolicy("", "", false)

	got := p.Decide("quero falar com humano sobre isso")
	assert.Equal(t, PriorityLow, got.Priority)
	assert.True(t, got.Escalation)

	got = p.Decide("o mesmo problema acontece novamente")
	assert.True(t, got.Escalation)
}

// EscalationAuto promotes every critical and high priority decision.
func TestPolicy_Decide_EscalationAuto(t *testing.T) {
	p := NewPolicy("", "", true)

	got := p.Decide("nao recebi o repasse")
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.True(t, got.Escalation)
}

// Category overrides replace an existing bucket's terms; severity overrides
// extend the level's list.
func TestPolicy_Overrides(t *testing.T) {
	p := NewPolicy("pagamentos:pix;fiscal:nota fiscal", "critical:incidente grave", false)

	got := p.Decide("problema com pix")
	assert.Equal(t, "pagamentos", got.Category)

	// the old pagamentos terms were replaced, so "boleto" no longer matches
	got = p.Decide("problema com boleto")
	assert.Equal(t, "outros", got.Category)

	got = p.Decide("preciso de nota fiscal")
	assert.Equal(t, "fiscal", got.Category)

	got = p.Decide("incidente grave em producao")
	assert.Equal(t, PriorityCritical, got.Priority)
}

func TestParseTermOverrides(t *testing.T) {
	got := ParseTermOverrides("a: x , y ;; malformed ;B:z,")
	assert.Equal(t, map[string][]string{
		"a": {"x", "y"},
		"b": {"z"},
	}, got)

	assert.Empty(t, ParseTermOverrides(""))
}
