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
	"math"
	"sort"
	"sync"
)

// maxLatencySamples bounds the latency window used for the average and p95.
const maxLatencySamples = 2000

// Metrics tracks support-service counters and a sliding latency window.
// Safe for concurrent use.
type Metrics struct {
	mu             sync.Mutex
	totalRequests  int64
	faqHits        int64
	ticketsCreated int64
	escalations    int64
	latenciesMS    []float64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	FAQHits          int64   `json:"faq_hits"`
	TicketsCreated   int64   `json:"tickets_created"`
	Escalations      int64   `json:"escalations"`
	AverageLatencyMS float64 `json:"avg_latency_ms"`
	P95LatencyMS     float64 `json:"p95_latency_ms"`
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) requestStarted() {
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
}

func (m *Metrics) faqHit() {
	m.mu.Lock()
	m.faqHits++
	m.mu.Unlock()
}

func (m *Metrics) ticketCreated(escalation bool) {
	m.mu.Lock()
	m.ticketsCreated++
	if escalation {
		m.escalations++
	}
	m.mu.Unlock()
}

func (m *Metrics) requestFinished(latencyMS float64) MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latenciesMS = append(m.latenciesMS, latencyMS)
	if len(m.latenciesMS) > maxLatencySamples {
		m.latenciesMS = m.latenciesMS[1:]
	}
	return m.snapshotLocked()
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Metrics) snapshotLocked() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:    m.totalRequests,
		FAQHits:          m.faqHits,
		TicketsCreated:   m.ticketsCreated,
		Escalations:      m.escalations,
		AverageLatencyMS: round2(average(m.latenciesMS)),
		P95LatencyMS:     round2(percentile95(m.latenciesMS)),
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	index := int(float64(len(sorted))*0.95) - 1
	if index < 0 {
		index = 0
	}
	return sorted[index]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
