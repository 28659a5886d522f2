// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nlq is the HTTP serving layer for the natural-language query
// agent: request/response types, gin handlers, routes, and the
// environment-driven configuration the server boots from.
package nlq

import (
	"context"

	"github.com/AleutianAI/AleutianNLQ/services/nlq/agent"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/history"
)

// QueryPipeline is the agent surface the handlers depend on.
//
// Description:
//
//	Query runs one question through the pipeline and never returns an
//	error; failures come back inside the Result. SchemaDescription
//	returns the active schema description and its source, filling the
//	schema lazily on first call.
type QueryPipeline interface {
	Query(ctx context.Context, question string) agent.Result
	SchemaDescription(ctx context.Context) (string, agent.SchemaSource)
}

// Service bundles the pipeline and the optional history store for the
// handlers.
//
// Thread Safety: Service is safe for concurrent use. It is immutable after
// construction; concurrency is handled by the pipeline and the store.
type Service struct {
	pipeline QueryPipeline
	history  history.Store
}

// NewService creates a Service over the given pipeline.
//
// Inputs:
//   - pipeline: The question pipeline. Must not be nil.
//   - hist: The history store, or nil when history is disabled.
//
// Outputs:
//   - *Service: The ready service.
func NewService(pipeline QueryPipeline, hist history.Store) *Service {
	if pipeline == nil {
		panic("nlq.NewService: pipeline must not be nil")
	}
	return &Service{
		pipeline: pipeline,
		history:  hist,
	}
}

// HistoryEnabled reports whether a history store is attached.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}
