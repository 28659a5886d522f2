// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphql

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level Prometheus metrics for upstream GraphQL calls.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// graphqlRequestDuration measures the duration of upstream GraphQL calls.
	//
	// Labels:
	//   - operation: "execute" or "introspect"
	//   - status: "success", "api_error", or "transport_error"
	graphqlRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlq",
			Subsystem: "graphql",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream GraphQL requests in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation", "status"},
	)

	// graphqlRequestsTotal counts upstream GraphQL requests.
	//
	// Labels:
	//   - operation: "execute" or "introspect"
	//   - status: "success", "api_error", or "transport_error"
	graphqlRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Subsystem: "graphql",
			Name:      "requests_total",
			Help:      "Total upstream GraphQL requests.",
		},
		[]string{"operation", "status"},
	)
)

// recordGraphQLMetrics records one completed upstream request.
//
// Inputs:
//
//	operation - "execute" or "introspect".
//	status - Label-safe outcome: "success", "api_error", "transport_error".
//	duration - How long the request took.
//
// Thread Safety: Safe for concurrent use.
func recordGraphQLMetrics(operation, status string, duration time.Duration) {
	graphqlRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	graphqlRequestsTotal.WithLabelValues(operation, status).Inc()
}
