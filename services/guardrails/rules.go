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

import (
	"fmt"

	"github.com/AleutianAI/Switchboard/services/guardrails/enforcement"
	"gopkg.in/yaml.v3"
)

// RuleFile mirrors the structure of the embedded guardrail_rules.yaml.
//
// The file is the single declarative source for every heuristic the pipeline
// evaluates: anti-injection patterns, the moderation blocklist, the keyword
// violation rules, and the PII ticket-prefix allowlist. Keeping the heuristics
// in data keeps the matching engines generic and independently testable.
type RuleFile struct {
	InjectionPatterns []string            `yaml:"injection_patterns"`
	Moderation        []ModerationCategory `yaml:"moderation"`
	StrictModeration  []ModerationCategory `yaml:"strict_moderation"`
	ViolationRules    []KeywordRule        `yaml:"violation_rules"`
	PII               PIIRules             `yaml:"pii"`
}

// ModerationCategory groups blocklist terms sharing a category, priority, and
// refusal description.
type ModerationCategory struct {
	Category    string   `yaml:"category"`
	Priority    int      `yaml:"priority"`
	Description string   `yaml:"description"`
	Terms       []string `yaml:"terms"`
}

// KeywordRule declares a policy-violation category detected by keyword scan.
type KeywordRule struct {
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// PIIRules carries PII-masking knobs that live in the rule file rather than in
// the flat configuration, currently only the ticket-prefix allowlist that
// exempts ticket identifiers from phone masking.
type PIIRules struct {
	TicketPrefixes []string `yaml:"ticket_prefixes"`
}

// loadEmbeddedRules unmarshals the compiled-in rule file.
func loadEmbeddedRules() (*RuleFile, error) {
	var rules RuleFile
	if err := yaml.Unmarshal(enforcement.GuardrailRules, &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded guardrail rules: %w", err)
	}
	return &rules, nil
}
