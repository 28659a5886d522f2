// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome label values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var (
	pipelineQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlq",
			Subsystem: "pipeline",
			Name:      "query_duration_seconds",
			Help:      "End-to-end duration of one question pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlq",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	pipelineQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Total pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	pipelineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Total pipeline failures by stage and error code.",
		},
		[]string{"stage", "code"},
	)

	schemaResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Subsystem: "pipeline",
			Name:      "schema_resolutions_total",
			Help:      "Schema description resolutions by source.",
		},
		[]string{"source"},
	)
)

// recordPipelineOutcome records one finished pipeline run.
func recordPipelineOutcome(outcome string, duration time.Duration) {
	pipelineQueryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	pipelineQueriesTotal.WithLabelValues(outcome).Inc()
}

// recordStageDuration records one completed stage, successful or not.
func recordStageDuration(stage Stage, duration time.Duration) {
	pipelineStageDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// recordPipelineFailure records a terminal stage failure.
func recordPipelineFailure(stage Stage, code string) {
	pipelineFailuresTotal.WithLabelValues(string(stage), code).Inc()
}

// recordSchemaResolution records a schema cache fill and its source.
func recordSchemaResolution(source SchemaSource) {
	schemaResolutionsTotal.WithLabelValues(string(source)).Inc()
}
