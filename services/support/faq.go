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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
	"github.com/AleutianAI/Switchboard/services/support/datasets"
)

// DefaultFAQScoreThreshold is the minimum normalized match score an FAQ
// entry needs to answer a message.
const DefaultFAQScoreThreshold = 0.65

// Relative weight of a token hit in the question vs the answer body. A tag
// hit counts a flat 1.0 on top.
const (
	faqQuestionWeight = 0.6
	faqAnswerWeight   = 0.4
)

var faqTokenRE = regexp.MustCompile(`[^a-z0-9 ]+`)

// FAQTool answers support messages from a static question dataset by token
// overlap. Safe for concurrent use; Reload swaps the dataset atomically.
type FAQTool struct {
	path      string
	threshold float64
	logger    *slog.Logger

	mu    sync.RWMutex
	items []FAQItem
}

// NewFAQTool loads the FAQ dataset and returns a ready tool.
//
// When path is empty the embedded default dataset is used. A missing file
// logs a warning and leaves the tool empty rather than failing: a support
// deployment without an FAQ still creates tickets.
func NewFAQTool(path string, threshold float64, logger *slog.Logger) *FAQTool {
	if threshold <= 0 {
		threshold = DefaultFAQScoreThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &FAQTool{path: path, threshold: threshold, logger: logger}
	t.Reload()
	return t
}

// Reload re-reads the dataset from disk (or the embedded default) and swaps
// it in. Parse failures keep the previous dataset out and log the error.
func (t *FAQTool) Reload() {
	items := t.loadDataset()
	t.mu.Lock()
	t.items = items
	t.mu.Unlock()
}

// Len reports how many FAQ entries are loaded.
func (t *FAQTool) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Search returns the best FAQ entry at or above the score threshold, or nil
// when nothing matches well enough.
func (t *FAQTool) Search(query FAQQuery) *FAQResult {
	t.mu.RLock()
	items := t.items
	t.mu.RUnlock()
	if len(items) == 0 {
		return nil
	}

	tokens := faqTokens(query.Message)
	if len(tokens) == 0 {
		return nil
	}

	var best *FAQResult
	for _, item := range items {
		score := scoreFAQItem(item, tokens)
		if score < t.threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &FAQResult{
				Item:        item,
				Score:       score,
				Explanation: explainFAQMatch(item, tokens, score),
			}
		}
	}
	return best
}

func (t *FAQTool) loadDataset() []FAQItem {
	raw := datasets.FAQ
	source := "embedded"
	if t.path != "" {
		data, err := os.ReadFile(t.path)
		switch {
		case err == nil:
			raw = data
			source = t.path
		case errors.Is(err, fs.ErrNotExist):
			t.logger.Warn("faq dataset missing, using embedded default", slog.String("path", t.path))
		default:
			t.logger.Error("faq dataset unreadable, using embedded default",
				slog.String("path", t.path), slog.String("error", err.Error()))
		}
	}

	var items []FAQItem
	if err := json.Unmarshal(raw, &items); err != nil {
		t.logger.Error("faq dataset invalid", slog.String("source", source), slog.String("error", err.Error()))
		return nil
	}
	for i := range items {
		tags := items[i].Tags[:0]
		for _, tag := range items[i].Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				tags = append(tags, tag)
			}
		}
		items[i].Tags = tags
		if items[i].Category == "" {
			items[i].Category = CategoryOther
		}
	}
	return items
}

// faqTokens normalizes to lowercase ASCII words and drops single-character
// tokens, which match everywhere and carry no signal.
func faqTokens(message string) []string {
	normalized := normalizeFAQText(message)
	var tokens []string
	for _, token := range strings.Fields(normalized) {
		if len(token) > 1 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func normalizeFAQText(text string) string {
	text = textutil.FoldAccents(strings.ToLower(text))
	text = faqTokenRE.ReplaceAllString(text, " ")
	return textutil.Collapse(text)
}

// scoreFAQItem sums weighted token occurrences over the entry, capped and
// normalized to [0, 1] so the threshold is dataset-independent.
func scoreFAQItem(item FAQItem, tokens []string) float64 {
	question := normalizeFAQText(item.Question)
	answer := normalizeFAQText(item.Answer)
	if question == "" && answer == "" {
		return 0
	}

	var total float64
	matched := 0
	for _, token := range tokens {
		hit := false
		occurrences := float64(strings.Count(question, token))*faqQuestionWeight +
			float64(strings.Count(answer, token))*faqAnswerWeight
		if occurrences > 0 {
			total += occurrences
			hit = true
		}
		if containsTag(item.Tags, token) {
			total += 1.0
			hit = true
		}
		if hit {
			matched++
		}
	}
	if total <= 0 {
		return 0
	}

	denominator := len(tokens)
	if matched > denominator {
		denominator = matched
	}
	maxScore := float64(denominator) * 1.5
	if total > maxScore {
		total = maxScore
	}
	return total / maxScore
}

func explainFAQMatch(item FAQItem, tokens []string, score float64) string {
	question := normalizeFAQText(item.Question)
	var matched []string
	for _, token := range tokens {
		if strings.Contains(question, token) || containsTag(item.Tags, token) {
			matched = append(matched, token)
		}
	}
	return fmt.Sprintf("tokens=%s score=%.2f", strings.Join(matched, ","), score)
}

func containsTag(tags []string, token string) bool {
	for _, tag := range tags {
		if tag == token {
			return true
		}
	}
	return false
}
