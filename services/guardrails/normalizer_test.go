// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardrails

import "testing"

// TestNormalizer_Normalize_FoldsAccents tests that Portuguese accented
// characters fold to their ASCII equivalents.
func TestNormalizer_Normalize_FoldsAccents(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	got, changed := n.Normalize("Olá, informação não está disponível")
	want := "Ola, informacao nao esta disponivel"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
	if !changed {
		t.Error("Normalize() should report changed for accented input")
	}
}

// TestNormalizer_Normalize_Idempotent tests that normalizing
// already-normalized text is a no-op with changed == false.
func TestNormalizer_Normalize_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	first, _ := n.Normalize("Olá!   Como   posso ajudar?")
	second, changed := n.Normalize(first)
	if second != first {
		t.Errorf("second pass changed text: %q -> %q", first, second)
	}
	if changed {
		t.Error("second pass should report changed == false")
	}
}

// TestNormalizer_Normalize_StripsConfiguredSymbols tests that configured
// symbols are replaced and the resulting whitespace collapsed.
func TestNormalizer_Normalize_StripsConfiguredSymbols(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	got, changed := n.Normalize("weird ~ input ^ here")
	if got != "weird input here" {
		t.Errorf("Normalize() = %q, want %q", got, "weird input here")
	}
	if !changed {
		t.Error("Normalize() should report changed when symbols are stripped")
	}
}

// TestNormalizer_Normalize_CollapsesWhitespace tests that runs of
// whitespace collapse to a single space and edges are trimmed.
func TestNormalizer_Normalize_CollapsesWhitespace(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	got, _ := n.Normalize("  hello\t\t world  \n ")
	if got != "hello world" {
		t.Errorf("Normalize() = %q, want %q", got, "hello world")
	}
}

// TestNormalizer_Normalize_AccentsDisabled tests that accent folding can be
// switched off while whitespace handling stays active.
func TestNormalizer_Normalize_AccentsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoveAccents = false
	n := NewNormalizer(cfg)

	got, _ := n.Normalize("olá  mundo")
	if got != "olá mundo" {
		t.Errorf("Normalize() = %q, want accents preserved", got)
	}
}

// TestNormalizer_Normalize_Empty tests the empty-input edge case.
func TestNormalizer_Normalize_Empty(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	got, changed := n.Normalize("")
	if got != "" || changed {
		t.Errorf("Normalize(\"\") = (%q, %v), want (\"\", false)", got, changed)
	}
}
