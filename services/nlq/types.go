// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlq

import "github.com/AleutianAI/AleutianNLQ/services/nlq/history"

// QueryRequest is the body of POST /v1/nlq/query.
type QueryRequest struct {
	// Q is the natural-language question.
	Q string `json:"q"`
}

// QueryResponse is the body of a completed query, success or failure.
//
// Description:
//
//	Pipeline failures are still 200 responses shaped like this, with Error
//	set and Answer carrying the error-shaped sentence. The pipeline's raw
//	API result is intentionally not exposed over HTTP.
type QueryResponse struct {
	// Answer is the natural-language answer.
	Answer string `json:"answer"`

	// GraphQLQuery is the generated query, when one was produced.
	GraphQLQuery string `json:"graphql_query,omitempty"`

	// Error is the failure text; empty on success.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the standard error body for non-200 responses.
type ErrorResponse struct {
	// Error is the human-readable message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}

// WelcomeResponse is the body of GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /v1/nlq/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body of GET /v1/nlq/ready.
type ReadyResponse struct {
	Status string `json:"status"`

	// Reason explains a not-ready status; empty when ready.
	Reason string `json:"reason,omitempty"`
}

// SchemaResponse is the body of GET /v1/nlq/schema.
type SchemaResponse struct {
	// Description is the formatted schema description the agent prompts
	// with.
	Description string `json:"description"`

	// Source is "live" or "fallback".
	Source string `json:"source"`
}

// HistoryResponse is the body of GET /v1/nlq/history.
type HistoryResponse struct {
	// Records are recent pipeline runs, newest first.
	Records []history.Record `json:"records"`

	// Count is len(Records).
	Count int `json:"count"`
}
