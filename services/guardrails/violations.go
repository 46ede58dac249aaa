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
	"sort"
	"strings"
)

// Violation is a detected breach of content policy. Violations are structured
// results, never errors: the caller decides to refuse, the pipeline only
// reports.
type Violation struct {
	Category    string `json:"category"`
	Trigger     string `json:"trigger"`
	Description string `json:"description"`
}

// ViolationScanner evaluates the keyword rule table plus two pattern rules
// (card numbers and SSNs) against normalized inbound text.
type ViolationScanner struct {
	rules []KeywordRule
}

// NewViolationScanner builds a scanner over the embedded keyword rules.
func NewViolationScanner(rules *RuleFile) *ViolationScanner {
	return &ViolationScanner{rules: rules.ViolationRules}
}

// Scan returns the deduplicated, deterministically ordered violation list.
// Each keyword rule contributes at most one violation (the first keyword
// found); uniqueness is on (category, trigger).
func (s *ViolationScanner) Scan(text string) []Violation {
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	seen := make(map[string]struct{})
	var violations []Violation

	add := func(v Violation) {
		key := v.Category + "\x00" + v.Trigger
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		violations = append(violations, v)
	}

	for _, rule := range s.rules {
		for _, keyword := range rule.Keywords {
			if keyword != "" && strings.Contains(lowered, keyword) {
				add(Violation{
					Category:    rule.Category,
					Trigger:     keyword,
					Description: rule.Description,
				})
				break
			}
		}
	}

	if cardRE.MatchString(text) {
		add(Violation{
			Category:    "payment_data",
			Trigger:     "potential_card_number",
			Description: "Detected a sequence resembling a payment card number.",
		})
	}
	if ssnRE.MatchString(text) {
		add(Violation{
			Category:    "personal_identifiers",
			Trigger:     "ssn_format",
			Description: "Detected a pattern that matches a Social Security Number.",
		})
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Category != violations[j].Category {
			return violations[i].Category < violations[j].Category
		}
		return violations[i].Trigger < violations[j].Trigger
	})
	return violations
}

var piiReasonDescriptions = map[string]string{
	"payment_data":         "Detected sensitive payment information.",
	"personal_identifiers": "Detected sensitive personal identifiers.",
}

// ViolationsFromPIIReasons converts masker "category:trigger" reasons into
// structured violations for diagnostics and logging.
func ViolationsFromPIIReasons(reasons []string) []Violation {
	var violations []Violation
	for _, reason := range reasons {
		if reason == "" {
			continue
		}
		category, trigger, found := strings.Cut(reason, ":")
		if !found || trigger == "" {
			trigger = category
		}
		if category == "" {
			category = "pii"
		}
		description, ok := piiReasonDescriptions[category]
		if !ok {
			description = "Detected sensitive information."
		}
		violations = append(violations, Violation{
			Category:    category,
			Trigger:     trigger,
			Description: description,
		})
	}
	return violations
}
