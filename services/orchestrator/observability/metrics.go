// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover chat streaming (request counts, stream duration, active
// streams) and the courtroom game endpoints. All metrics are exposed via
// the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "courtroom"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for the service.
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status.
//   - StreamDurationSeconds: Histogram of total stream duration.
//   - ActiveStreams: Gauge of currently active streams.
//   - ErrorsTotal: Counter of errors by endpoint and error code.
//   - ClientDisconnectsTotal: Counter of mid-stream client disconnects.
//   - HistoryTurns: Histogram of history length at turn start.
type ChatMetrics struct {
	RequestsTotal          *prometheus.CounterVec
	StreamDurationSeconds  *prometheus.HistogramVec
	ActiveStreams          *prometheus.GaugeVec
	ErrorsTotal            *prometheus.CounterVec
	ClientDisconnectsTotal *prometheus.CounterVec
	HistoryTurns           *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance, initialized by InitMetrics().
// Handlers treat a nil DefaultMetrics as "metrics disabled".
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all metrics. Call once at startup;
// a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		ClientDisconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client disconnections during streaming",
			},
			[]string{"endpoint"},
		),

		HistoryTurns: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "history_turns",
				Help:      "Stored conversation turns at the start of each chat turn",
				Buckets:   []float64{0, 2, 4, 8, 16, 32, 64},
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates an LLM API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeRetrieval indicates a vector store failure.
	ErrorCodeRetrieval ErrorCode = "retrieval_error"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates the client went away.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Endpoint represents an endpoint for metrics labeling.
type Endpoint string

const (
	EndpointChat        Endpoint = "chat"
	EndpointChatStream  Endpoint = "chat_stream"
	EndpointCase        Endpoint = "case"
	EndpointWitnesses   Endpoint = "case_witnesses"
	EndpointInterrogate Endpoint = "case_interrogate"
	EndpointVerdict     Endpoint = "case_verdict"
	EndpointIngest      Endpoint = "documents"
)

// RecordRequest records a completed request.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
func (m *ChatMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *ChatMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *ChatMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordStreamDuration records the total stream duration.
func (m *ChatMetrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// RecordClientDisconnect increments the client disconnect counter.
func (m *ChatMetrics) RecordClientDisconnect(endpoint Endpoint) {
	m.ClientDisconnectsTotal.WithLabelValues(string(endpoint)).Inc()
}

// RecordHistoryTurns records the stored history length for a turn.
func (m *ChatMetrics) RecordHistoryTurns(endpoint Endpoint, turns int) {
	m.HistoryTurns.WithLabelValues(string(endpoint)).Observe(float64(turns))
}
