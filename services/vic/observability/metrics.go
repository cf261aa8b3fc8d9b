// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the answer
// pipeline.
//
// Metrics cover answer outcomes, cache effectiveness, grounding
// validation failures, retrieval latency, and background task errors.
// All metric operations are thread-safe via Prometheus's internal
// locking. Exposed on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vic"

// Outcome labels the terminal state of an answer request.
type Outcome string

const (
	// OutcomeAnswered means a grounded answer was returned.
	OutcomeAnswered Outcome = "answered"

	// OutcomeCached means a previously validated answer was served.
	OutcomeCached Outcome = "cached"

	// OutcomeCorrection means the message was recorded as a correction.
	OutcomeCorrection Outcome = "correction"

	// OutcomeNoEvidence means retrieval found nothing and a decline was
	// returned.
	OutcomeNoEvidence Outcome = "no_evidence"

	// OutcomeUpstreamError means generation or storage failed and an
	// apologetic decline was returned.
	OutcomeUpstreamError Outcome = "upstream_error"
)

// PipelineMetrics holds all Prometheus metrics for the answer pipeline.
// Initialize once at startup via InitMetrics().
type PipelineMetrics struct {
	// AnswersTotal counts answer requests by terminal outcome.
	AnswersTotal *prometheus.CounterVec

	// CacheLookupsTotal counts cache lookups by result (hit, miss).
	CacheLookupsTotal *prometheus.CounterVec

	// ValidationFailuresTotal counts grounding substitutions by reason.
	ValidationFailuresTotal *prometheus.CounterVec

	// RetrievalDurationSeconds measures hybrid search latency.
	RetrievalDurationSeconds prometheus.Histogram

	// GenerationDurationSeconds measures LLM call latency by backend.
	GenerationDurationSeconds *prometheus.HistogramVec

	// AnswerConfidence observes the confidence attached to each answer.
	AnswerConfidence prometheus.Histogram

	// BackgroundFailuresTotal counts failed fire-and-forget tasks by
	// task name.
	BackgroundFailuresTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		AnswersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "answers_total",
				Help:      "Answer requests by terminal outcome",
			},
			[]string{"outcome"},
		),

		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),

		ValidationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "validation_failures_total",
				Help:      "Grounding validation substitutions by reason",
			},
			[]string{"reason"},
		),

		RetrievalDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "retrieval_duration_seconds",
				Help:      "Hybrid search latency in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),

		GenerationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "generation_duration_seconds",
				Help:      "LLM generation latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0, 30.0},
			},
			[]string{"backend"},
		),

		AnswerConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "answer_confidence",
				Help:      "Confidence score attached to returned answers",
				Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),

		BackgroundFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "background_failures_total",
				Help:      "Failed background tasks by task name",
			},
			[]string{"task"},
		),
	}
	return DefaultMetrics
}

// RecordAnswer records an answer request's terminal outcome.
func (m *PipelineMetrics) RecordAnswer(outcome Outcome) {
	m.AnswersTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (m *PipelineMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordValidationFailure records a grounding substitution.
func (m *PipelineMetrics) RecordValidationFailure(reason string) {
	m.ValidationFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordRetrieval records hybrid search latency.
func (m *PipelineMetrics) RecordRetrieval(seconds float64) {
	m.RetrievalDurationSeconds.Observe(seconds)
}

// RecordGeneration records LLM call latency for a backend.
func (m *PipelineMetrics) RecordGeneration(backend string, seconds float64) {
	m.GenerationDurationSeconds.WithLabelValues(backend).Observe(seconds)
}

// RecordConfidence observes an answer's confidence score.
func (m *PipelineMetrics) RecordConfidence(score float64) {
	m.AnswerConfidence.Observe(score)
}

// RecordBackgroundFailure records a failed background task.
func (m *PipelineMetrics) RecordBackgroundFailure(task string) {
	m.BackgroundFailuresTotal.WithLabelValues(task).Inc()
}
