// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guardrails applies content policy to every message crossing the
// switchboard, in both directions.
//
// The pipeline normalizes inbound text, strips prompt-injection attempts,
// masks PII for logging, and scans for policy violations; outbound text is
// checked against the moderation blocklist, masked, and truncated to budget.
// Detection here is deliberately rule- and lexicon-based: every heuristic is
// a deterministic table lookup, not a statistical model.
package guardrails

import "strings"

// Mode selects how aggressively the moderation blocklist is applied.
const (
	ModeOff      = "off"
	ModeBalanced = "balanced"
	ModeStrict   = "strict"
)

// Config holds the flat guardrails options. Values are read once at startup
// and passed by value; the pipeline never re-reads configuration mid-request.
type Config struct {
	// Enabled gates normalization, injection stripping, and moderation.
	// PII masking stays active even when false.
	Enabled bool

	// Mode is one of off, balanced, strict.
	Mode string

	// MaxInputChars rejects oversized inbound messages with a ValidationError.
	MaxInputChars int

	// MaxOutputChars hard-truncates outbound text; 0 disables truncation.
	MaxOutputChars int

	// RemoveAccents enables accent folding during normalization.
	RemoveAccents bool

	// StripSymbols is a comma-delimited list of symbol tokens replaced by
	// spaces during normalization.
	StripSymbols string

	// AntiInjectionEnabled gates injection-pattern stripping.
	AntiInjectionEnabled bool

	// InjectionPatternOverrides is a semicolon-delimited list of extra
	// literal patterns merged with the embedded defaults.
	InjectionPatternOverrides string

	// ModerationEnabled gates the outbound blocklist check.
	ModerationEnabled bool

	// BlocklistOverrides is a semicolon-delimited list of extra blocked
	// terms, registered under the "custom" category.
	BlocklistOverrides string

	// PIIMaskingEnabled gates all PII masking.
	PIIMaskingEnabled bool

	// MaskEmail and MaskPhone toggle the individual maskers. Card and SSN
	// masking are always on while PIIMaskingEnabled is set.
	MaskEmail bool
	MaskPhone bool

	// TicketPrefixes overrides the embedded ticket-prefix allowlist that
	// exempts ticket identifiers from phone masking. Empty keeps defaults.
	TicketPrefixes []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		Mode:                 ModeBalanced,
		MaxInputChars:        4000,
		MaxOutputChars:       3000,
		RemoveAccents:        true,
		StripSymbols:         "~,^,´,¸,`,\\",
		AntiInjectionEnabled: true,
		ModerationEnabled:    true,
		PIIMaskingEnabled:    true,
		MaskEmail:            true,
		MaskPhone:            true,
	}
}

// splitList splits a delimited override list, trimming blanks.
func splitList(raw, sep string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
