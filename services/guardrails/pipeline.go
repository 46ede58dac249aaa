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
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/Switchboard/services/retrieval"
)

// ValidationError reports malformed or oversized input. It is the only
// condition under which the pipeline refuses to process at all; every policy
// finding is a structured result instead.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// PreprocessFlags are the typed stage flags for inbound processing.
type PreprocessFlags struct {
	AccentsStripped   bool `json:"accents_stripped"`
	InjectionDetected bool `json:"injection_detected"`
	PIIMasked         bool `json:"pii_masked"`
}

// PreprocessResult is the outcome of one inbound pass.
//
// Message is the normalized, injection-stripped text handed to routing and
// agents. MaskedForLog is a separately masked copy for diagnostics only; the
// routed text is never masked.
type PreprocessResult struct {
	Message            string
	MaskedForLog       string
	Flags              PreprocessFlags
	DetectedInjections []string
	Violations         []Violation
	LatencyMS          float64
}

// MaskedPreview returns at most limit runes of the masked copy.
func (r *PreprocessResult) MaskedPreview(limit int) string {
	runes := []rune(r.MaskedForLog)
	if len(runes) <= limit {
		return r.MaskedForLog
	}
	return string(runes[:limit])
}

// PostprocessFlags are the typed stage flags for outbound processing.
type PostprocessFlags struct {
	ModerationBlocked bool            `json:"moderation_blocked"`
	ModerationReason  *ModerationRule `json:"moderation_reason,omitempty"`
	PIIMaskedResponse bool            `json:"pii_masked_response"`
	OutputTruncated   bool            `json:"output_truncated"`
}

// PostprocessResult is the outcome of one outbound pass.
type PostprocessResult struct {
	Content   string
	Flags     PostprocessFlags
	LatencyMS float64
}

// DiagnosticsReport is the read-only introspection payload.
type DiagnosticsReport struct {
	NormalizedText     string          `json:"normalized_text"`
	MaskedPreview      string          `json:"masked_preview"`
	Flags              PreprocessFlags `json:"flags"`
	DetectedInjections []string        `json:"detected_injections"`
	Violations         []Violation     `json:"violations"`
	Mode               string          `json:"mode"`
	Metrics            MetricsSnapshot `json:"metrics_snapshot"`
}

// Pipeline orchestrates the detectors. Construct one at process start and
// share it; all methods are safe for concurrent use.
type Pipeline struct {
	cfg        Config
	normalizer *Normalizer
	injection  *InjectionFilter
	masker     *Masker
	moderator  *Moderator
	scanner    *ViolationScanner
	metrics    *metricsStore
}

// NewPipeline loads the embedded rule tables and wires every detector.
func NewPipeline(cfg Config) (*Pipeline, error) {
	rules, err := loadEmbeddedRules()
	if err != nil {
		return nil, fmt.Errorf("guardrails pipeline init: %w", err)
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg),
		injection:  NewInjectionFilter(rules.InjectionPatterns, cfg.InjectionPatternOverrides),
		masker:     NewMasker(cfg, rules.PII.TicketPrefixes),
		moderator:  NewModerator(cfg, rules),
		scanner:    NewViolationScanner(rules),
		metrics:    &metricsStore{},
	}, nil
}

// Preprocess validates and sanitizes one inbound message.
//
// Order of operations: validation, normalization, injection stripping, PII
// masking for the log copy, violation scan. A non-empty Violations slice is a
// policy signal the caller must act on by refusing to route; the pipeline
// itself never blocks inbound text.
func (p *Pipeline) Preprocess(message, userID string, metadata map[string]any) (*PreprocessResult, error) {
	start := time.Now()
	if err := p.validate(message); err != nil {
		return nil, err
	}
	p.metrics.incInputs()

	result := &PreprocessResult{}
	processed := message

	if p.cfg.Enabled {
		var stripped bool
		processed, stripped = p.normalizer.Normalize(processed)
		result.Flags.AccentsStripped = stripped
		if stripped {
			p.metrics.incAccentsStripped()
		}

		if p.cfg.AntiInjectionEnabled {
			var detected bool
			processed, detected, result.DetectedInjections = p.injection.Cleanse(processed)
			result.Flags.InjectionDetected = detected
			if detected {
				p.metrics.incInjectionDetected()
			}
		}
	} else {
		processed = strings.TrimSpace(message)
	}

	maskedForLog, maskedFlag, _ := p.masker.Mask(processed)
	if maskedFlag {
		result.Flags.PIIMasked = true
		p.metrics.incPIIMasked()
	}

	result.Message = processed
	result.MaskedForLog = strings.TrimSpace(maskedForLog)
	result.Violations = p.scanner.Scan(processed)
	result.LatencyMS = latencyMS(start)
	return result, nil
}

func (p *Pipeline) validate(message string) error {
	if strings.TrimSpace(message) == "" {
		return &ValidationError{Detail: "field 'message' must be a non-empty string"}
	}
	if utf8.RuneCountInString(message) > p.cfg.MaxInputChars {
		return &ValidationError{Detail: "field 'message' exceeds the allowed length"}
	}
	return nil
}

// Postprocess applies moderation, masking, and truncation to outbound text.
func (p *Pipeline) Postprocess(content string) *PostprocessResult {
	start := time.Now()
	result := &PostprocessResult{}
	processed := content

	if p.cfg.Enabled {
		replaced, blocked, reason := p.moderator.Moderate(processed)
		if blocked {
			processed = replaced
			result.Flags.ModerationBlocked = true
			result.Flags.ModerationReason = reason
			p.metrics.incModerationBlocked()
		}
	}

	masked, maskedFlag, _ := p.masker.Mask(processed)
	if maskedFlag {
		result.Flags.PIIMaskedResponse = true
		p.metrics.incPIIMasked()
	}
	processed = masked

	if p.cfg.MaxOutputChars > 0 {
		runes := []rune(processed)
		if len(runes) > p.cfg.MaxOutputChars {
			keep := p.cfg.MaxOutputChars - 3
			if keep < 0 {
				keep = 0
			}
			processed = strings.TrimRight(string(runes[:keep]), " \t\n") + "..."
			result.Flags.OutputTruncated = true
			p.metrics.incOutputsTruncated()
		}
	}

	result.Content = processed
	result.LatencyMS = latencyMS(start)
	return result
}

// FilterContext drops retrieved chunks whose text trips an injection pattern.
// Poisoned documents must never reach context assembly.
func (p *Pipeline) FilterContext(chunks []retrieval.Chunk) []retrieval.Chunk {
	if !p.cfg.Enabled || !p.cfg.AntiInjectionEnabled {
		return chunks
	}
	filtered := chunks[:0]
	for _, chunk := range chunks {
		if p.injection.Matches(chunk.Text) {
			p.metrics.incContextFiltered()
			continue
		}
		filtered = append(filtered, chunk)
	}
	return filtered
}

// Diagnostics runs a read-only inspection of query through the inbound path.
// It touches nothing but the pipeline's own counters.
func (p *Pipeline) Diagnostics(query string) (*DiagnosticsReport, error) {
	pre, err := p.Preprocess(query, "", nil)
	if err != nil {
		return nil, err
	}
	maskedNormalized, _, reasons := p.masker.Mask(pre.Message)
	violations := append(append([]Violation(nil), pre.Violations...),
		ViolationsFromPIIReasons(reasons)...)
	return &DiagnosticsReport{
		NormalizedText:     maskedNormalized,
		MaskedPreview:      pre.MaskedPreview(200),
		Flags:              pre.Flags,
		DetectedInjections: pre.DetectedInjections,
		Violations:         violations,
		Mode:               p.cfg.Mode,
		Metrics:            p.metrics.snapshot(),
	}, nil
}

// MetricsSnapshot exposes the counters for the diagnostics surface.
func (p *Pipeline) MetricsSnapshot() MetricsSnapshot {
	return p.metrics.snapshot()
}

// ResetMetrics zeroes the counters. Test helper.
func (p *Pipeline) ResetMetrics() {
	p.metrics.reset()
}

func latencyMS(start time.Time) float64 {
	return math.Round(float64(time.Since(start).Microseconds())) / 1000
}
