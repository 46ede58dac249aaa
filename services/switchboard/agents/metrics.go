// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"math"
	"sort"
	"sync"
)

const maxDeliverySamples = 2000

// deliveryMetrics tracks Slack delivery outcomes with a bounded latency
// window. Mutex-guarded; snapshot reads are cheap.
type deliveryMetrics struct {
	mu          sync.Mutex
	attempts    int64
	success     int64
	failed      int64
	latenciesMS []float64
}

// DeliverySnapshot is the read-only view of the delivery counters.
type DeliverySnapshot struct {
	Attempts     int64   `json:"attempts"`
	Success      int64   `json:"success"`
	Failed       int64   `json:"failed"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
}

func newDeliveryMetrics() *deliveryMetrics {
	return &deliveryMetrics{}
}

func (m *deliveryMetrics) attempt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
}

func (m *deliveryMetrics) observe(latencyMS float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.success++
	} else {
		m.failed++
	}
	m.latenciesMS = append(m.latenciesMS, latencyMS)
	if len(m.latenciesMS) > maxDeliverySamples {
		m.latenciesMS = m.latenciesMS[1:]
	}
}

func (m *deliveryMetrics) snapshot() DeliverySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := DeliverySnapshot{Attempts: m.attempts, Success: m.success, Failed: m.failed}
	if len(m.latenciesMS) == 0 {
		return snap
	}

	var sum float64
	for _, v := range m.latenciesMS {
		sum += v
	}
	snap.AvgLatencyMS = math.Round(sum/float64(len(m.latenciesMS))*100) / 100

	ordered := append([]float64(nil), m.latenciesMS...)
	sort.Float64s(ordered)
	index := int(float64(len(ordered))*0.95) - 1
	if index < 0 {
		index = 0
	}
	snap.P95LatencyMS = math.Round(ordered[index]*100) / 100
	return snap
}
