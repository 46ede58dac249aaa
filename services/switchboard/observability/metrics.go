// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the switchboard
// gateway.
//
// # Description
//
// This package implements Prometheus metrics for monitoring message routing
// and agent dispatch. Metrics include:
//   - Request counters (by route, agent, status)
//   - Latency histograms (end-to-end and guardrail stages)
//   - Redirect and handoff counters
//   - Pending-escalation gauge
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "switchboard"

// Subsystem for gateway metrics
const gatewaySubsystem = "gateway"

// GatewayMetrics holds all Prometheus metrics for the chat gateway.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring routing outcomes,
// guardrail activity, and human handoffs. Initialize once at startup via
// InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type GatewayMetrics struct {
	// RequestsTotal counts chat requests by route, agent, and status.
	// Labels: route (knowledge, support, custom, slack, redirect),
	// agent, status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end chat latency.
	// Labels: route
	RequestDurationSeconds *prometheus.HistogramVec

	// GuardrailFindingsTotal counts guardrail detections by kind.
	// Labels: kind (injection, pii_masked, moderation_blocked,
	// output_truncated)
	GuardrailFindingsTotal *prometheus.CounterVec

	// RedirectsTotal counts redirect short-circuits by reason.
	// Labels: reason (manual, low_confidence, explicit_request, or a
	// caller-supplied metadata reason)
	RedirectsTotal *prometheus.CounterVec

	// HandoffEventsTotal counts handoff lifecycle events.
	// Labels: action (request, confirm, deny, ambiguous, cancel),
	// status (pending, ok, failed, cancelled, not_found, disabled)
	HandoffEventsTotal *prometheus.CounterVec

	// SlackDeliveriesTotal counts Slack notification outcomes.
	// Labels: outcome (ok, failed)
	SlackDeliveriesTotal *prometheus.CounterVec

	// PendingHandoffs tracks escalations awaiting confirmation.
	PendingHandoffs prometheus.Gauge

	// RetrievalCacheHitsTotal counts query-cache hits and misses.
	// Labels: result (hit, miss)
	RetrievalCacheHitsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of GatewayMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GatewayMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *GatewayMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *GatewayMetrics {
	DefaultMetrics = &GatewayMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total chat requests by route, agent, and status",
			},
			[]string{"route", "agent", "status"},
		),
		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat request latency",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
		GuardrailFindingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "guardrail_findings_total",
				Help:      "Guardrail detections by kind",
			},
			[]string{"kind"},
		),
		RedirectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "redirects_total",
				Help:      "Redirect short-circuits by reason",
			},
			[]string{"reason"},
		),
		HandoffEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "handoff_events_total",
				Help:      "Handoff lifecycle events by action and status",
			},
			[]string{"action", "status"},
		),
		SlackDeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "slack_deliveries_total",
				Help:      "Slack notification outcomes",
			},
			[]string{"outcome"},
		),
		PendingHandoffs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "pending_handoffs",
				Help:      "Escalations awaiting user confirmation",
			},
		),
		RetrievalCacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "retrieval_cache_total",
				Help:      "Query-cache hits and misses",
			},
			[]string{"result"},
		),
	}
	return DefaultMetrics
}
