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
	"regexp"
	"strings"
)

// injectionPattern is a literal pattern matched case-insensitively. Patterns
// are literals, not free-form regexes, so operator overrides cannot break the
// matcher with invalid syntax.
type injectionPattern struct {
	value string
	re    *regexp.Regexp
}

// InjectionFilter strips prompt-injection attempts from inbound text and from
// retrieved document chunks (defense against document poisoning).
type InjectionFilter struct {
	patterns []injectionPattern
}

// NewInjectionFilter merges the embedded default patterns with the
// semicolon-delimited overrides and deduplicates case-insensitively.
func NewInjectionFilter(defaults []string, overrides string) *InjectionFilter {
	merged := append([]string{}, defaults...)
	merged = append(merged, splitList(overrides, ";")...)

	seen := make(map[string]struct{}, len(merged))
	var patterns []injectionPattern
	for _, raw := range merged {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		patterns = append(patterns, injectionPattern{
			value: value,
			re:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(value)),
		})
	}
	return &InjectionFilter{patterns: patterns}
}

// Cleanse removes every occurrence of every configured pattern from text.
// It returns the cleansed text, whether anything was detected, and the list
// of pattern strings that matched. Whitespace opened up by the removals is
// re-collapsed.
func (f *InjectionFilter) Cleanse(text string) (string, bool, []string) {
	if text == "" {
		return "", false, nil
	}

	var detected []string
	cleaned := text
	for _, pattern := range f.patterns {
		if pattern.re.MatchString(cleaned) {
			detected = append(detected, pattern.value)
			cleaned = pattern.re.ReplaceAllString(cleaned, "")
		}
	}

	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	return cleaned, len(detected) > 0, detected
}

// Matches reports whether any configured pattern occurs in text, without
// modifying it. Used when filtering retrieved context chunks.
func (f *InjectionFilter) Matches(text string) bool {
	for _, pattern := range f.patterns {
		if pattern.re.MatchString(text) {
			return true
		}
	}
	return false
}
