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

import "testing"

// TestClassifyConfirmation covers the confirm, deny, and ambiguous buckets
// across both supported languages.
func TestClassifyConfirmation(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Confirmation
	}{
		{"portuguese yes", "sim", ConfirmationConfirm},
		{"portuguese go ahead", "pode escalar por favor", ConfirmationConfirm},
		{"english yes please", "yes please", ConfirmationConfirm},
		{"english ok", "ok", ConfirmationConfirm},
		{"accented claro", "clÁro", ConfirmationConfirm},
		{"human plus intent", "quero falar com um humano", ConfirmationConfirm},
		{"english human intent", "I want to talk to a human", ConfirmationConfirm},

		{"portuguese no", "nao", ConfirmationDeny},
		{"accented nao", "não, obrigado", ConfirmationDeny},
		{"deny phrase", "nao precisa, resolvi", ConfirmationDeny},
		{"english no", "no thanks", ConfirmationDeny},
		{"not now", "not now", ConfirmationDeny},

		{"unrelated question", "qual a taxa da maquininha?", ConfirmationAmbiguous},
		{"empty", "   ", ConfirmationAmbiguous},
		{"emoji only", "👍👍", ConfirmationAmbiguous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyConfirmation(tc.message); got != tc.want {
				t.Errorf("ClassifyConfirmation(%q) = %q, want %q", tc.message, got, tc.want)
			}
		})
	}
}

// TestClassifyConfirmation_DenyOutranksConfirm tests that a message carrying
// both signals reads as a denial.
func TestClassifyConfirmation_DenyOutranksConfirm(t *testing.T) {
	if got := ClassifyConfirmation("nao precisa, pode deixar, obrigado"); got != ConfirmationDeny {
		t.Errorf("got %q, want deny", got)
	}
	if got := ClassifyConfirmation("no, yes is wrong here"); got != ConfirmationDeny {
		t.Errorf("got %q, want deny", got)
	}
}

// TestIsDirectRequest tests unprompted human-escalation detection.
func TestIsDirectRequest(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    bool
	}{
		{"portuguese direct", "quero falar com um atendente humano", true},
		{"english direct", "I need to speak with a person", true},
		{"confirm phrase form", "connect me to a human right now", true},
		{"plain faq", "como funciona o pagamento?", false},
		{"deny suppresses", "no, I do not want to talk to a human", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDirectRequest(tc.message); got != tc.want {
				t.Errorf("IsDirectRequest(%q) = %v, want %v", tc.message, got, tc.want)
			}
		})
	}
}
