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
	"sort"
	"strings"
)

// ModerationRule is one blocklist entry. Exactly one rule fires per
// moderation pass; the reported rule is always the one that matched.
type ModerationRule struct {
	Term        string `json:"trigger"`
	Category    string `json:"category"`
	Description string `json:"description"`
	priority    int
}

// Moderator checks outbound text against the blocklist. Rules are evaluated
// in a fixed order: ascending category priority, then descending term length
// so that a longer, more specific term is never shadowed by a shorter
// substring of itself, then the term itself for determinism.
type Moderator struct {
	enabled bool
	mode    string
	rules   []ModerationRule
}

const customCategoryPriority = 5

// NewModerator assembles the rule order from the embedded categories, the
// strict-mode extras when applicable, and the custom overrides.
func NewModerator(cfg Config, rules *RuleFile) *Moderator {
	categories := append([]ModerationCategory{}, rules.Moderation...)
	if cfg.Mode == ModeStrict {
		categories = append(categories, rules.StrictModeration...)
	}

	var flat []ModerationRule
	for _, category := range categories {
		for _, term := range category.Terms {
			flat = append(flat, ModerationRule{
				Term:        strings.ToLower(term),
				Category:    category.Category,
				Description: category.Description,
				priority:    category.Priority,
			})
		}
	}
	for _, term := range splitList(cfg.BlocklistOverrides, ";") {
		lowered := strings.ToLower(term)
		flat = append(flat, ModerationRule{
			Term:        lowered,
			Category:    "custom",
			Description: fmt.Sprintf("Detected blocked term '%s'.", lowered),
			priority:    customCategoryPriority,
		})
	}

	seen := make(map[string]struct{}, len(flat))
	unique := flat[:0]
	for _, rule := range flat {
		if _, dup := seen[rule.Term]; dup {
			continue
		}
		seen[rule.Term] = struct{}{}
		unique = append(unique, rule)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].priority != unique[j].priority {
			return unique[i].priority < unique[j].priority
		}
		if len(unique[i].Term) != len(unique[j].Term) {
			return len(unique[i].Term) > len(unique[j].Term)
		}
		return unique[i].Term < unique[j].Term
	})

	return &Moderator{
		enabled: cfg.ModerationEnabled && cfg.Mode != ModeOff,
		mode:    cfg.Mode,
		rules:   unique,
	}
}

// Moderate returns the (possibly replaced) text, whether a rule fired, and
// the matched rule. On a match the entire content is replaced with a safe
// refusal naming the violated category.
func (m *Moderator) Moderate(text string) (string, bool, *ModerationRule) {
	if !m.enabled {
		return text, false, nil
	}

	lowered := strings.ToLower(text)
	for i := range m.rules {
		rule := &m.rules[i]
		if rule.Term != "" && strings.Contains(lowered, rule.Term) {
			return safeRefusal(rule), true, rule
		}
	}
	return text, false, nil
}

func safeRefusal(rule *ModerationRule) string {
	category := strings.ReplaceAll(rule.Category, "_", " ")
	return fmt.Sprintf(
		"I cannot comply with that request because it violates our policy on %s. %s",
		category, rule.Description,
	)
}
