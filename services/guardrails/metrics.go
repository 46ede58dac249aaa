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

import "sync"

// MetricsSnapshot is a consistent copy of the pipeline counters.
type MetricsSnapshot struct {
	InputsTotal            int64 `json:"inputs_total"`
	AccentsStrippedTotal   int64 `json:"accents_stripped_total"`
	InjectionDetectedTotal int64 `json:"injection_detected_total"`
	PIIMaskedTotal         int64 `json:"pii_masked_total"`
	ModerationBlockedTotal int64 `json:"moderation_blocked_total"`
	OutputsTruncatedTotal  int64 `json:"outputs_truncated_total"`
	ContextFilteredTotal   int64 `json:"context_filtered_total"`
}

// metricsStore holds the pipeline counters behind a single mutex. Increments
// arrive from many in-flight requests; Snapshot copies all fields under the
// same lock so a reader never observes a torn update.
type metricsStore struct {
	mu      sync.Mutex
	metrics MetricsSnapshot
}

func (s *metricsStore) incInputs()            { s.inc(func(m *MetricsSnapshot) { m.InputsTotal++ }) }
func (s *metricsStore) incAccentsStripped()   { s.inc(func(m *MetricsSnapshot) { m.AccentsStrippedTotal++ }) }
func (s *metricsStore) incInjectionDetected() { s.inc(func(m *MetricsSnapshot) { m.InjectionDetectedTotal++ }) }
func (s *metricsStore) incPIIMasked()         { s.inc(func(m *MetricsSnapshot) { m.PIIMaskedTotal++ }) }
func (s *metricsStore) incModerationBlocked() { s.inc(func(m *MetricsSnapshot) { m.ModerationBlockedTotal++ }) }
func (s *metricsStore) incOutputsTruncated()  { s.inc(func(m *MetricsSnapshot) { m.OutputsTruncatedTotal++ }) }
func (s *metricsStore) incContextFiltered()   { s.inc(func(m *MetricsSnapshot) { m.ContextFilteredTotal++ }) }

func (s *metricsStore) inc(apply func(*MetricsSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.metrics)
}

func (s *metricsStore) snapshot() MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *metricsStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = MetricsSnapshot{}
}
