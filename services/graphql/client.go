// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphql is the transport layer for the upstream GraphQL data API.
//
// It deliberately separates two failure planes. API-level problems (non-2xx
// statuses, an errors list in the response) are returned AS DATA from Execute
// so the pipeline can show them to the model and the user. Only
// transport-level faults (network, unreadable or unparseable bodies) surface
// as Go errors.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianNLQ/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var graphqlTracer = otel.Tracer("aleutian.nlq.graphql")

// =============================================================================
// Wire Types
// =============================================================================

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlProbe is a partial decode used to detect an errors list without
// committing to a full response shape.
type graphqlProbe struct {
	Errors json.RawMessage `json:"errors"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// Client talks to a single GraphQL endpoint using raw net/http.
//
// Description:
//
//	Sends queries as POST {query, variables} JSON bodies and returns parsed
//	results. Used both for generated queries (Execute) and for schema
//	introspection (IntrospectSchema).
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a Client for the given endpoint URL.
//
// Inputs:
//   - endpoint: The GraphQL endpoint, e.g. "https://api.example.com/graphql".
//
// Outputs:
//   - *Client: The configured client with a 30 second request timeout.
func NewClient(endpoint string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
	}
}

// NewClientWithHTTPClient creates a Client with an explicit HTTP client.
//
// Description:
//
//	Useful for testing with mock servers or when the caller needs custom
//	transport settings.
func NewClientWithHTTPClient(endpoint string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

// Endpoint returns the endpoint URL this client targets.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute sends a GraphQL query and returns the structured result.
//
// Description:
//
//	POSTs {query, variables} to the endpoint. API-level failures are
//	returned as data, never as Go errors:
//	  - a non-200 status yields {"error": "GraphQL request failed with status <code>"}
//	  - a response containing an errors list yields {"error": <errors value>}
//	Everything else returns the parsed response body unchanged. Only
//	transport-level faults (request construction, network, body read, JSON
//	parse) produce a non-nil error.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - query: The executable GraphQL query text.
//   - variables: Query variables. Nil is sent as an empty object.
//
// Outputs:
//   - map[string]any: The structured result or error payload.
//   - error: Non-nil only for transport-level faults.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	ctx, span := graphqlTracer.Start(ctx, "graphql.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("graphql.operation", "execute"),
		attribute.Int("graphql.query_len", len(query)),
	)

	startTime := time.Now()
	status, bodyBytes, err := c.post(ctx, query, variables)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		recordGraphQLMetrics("execute", "transport_error", duration)
		return nil, err
	}

	if status != http.StatusOK {
		slog.Warn("GraphQL endpoint returned non-OK status",
			slog.Int("status", status),
			slog.String("body", llm.SafeLogString(truncateForLog(string(bodyBytes)))),
		)
		span.SetAttributes(attribute.Int("graphql.status_code", status))
		recordGraphQLMetrics("execute", "api_error", duration)
		return map[string]any{
			"error": fmt.Sprintf("GraphQL request failed with status %d", status),
		}, nil
	}

	var result map[string]any
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		wrapped := fmt.Errorf("graphql: parsing response JSON: %w", err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "unparseable response")
		recordGraphQLMetrics("execute", "transport_error", duration)
		return nil, wrapped
	}

	if errsValue, ok := result["errors"]; ok {
		slog.Debug("GraphQL response contains errors", slog.Duration("duration", duration))
		recordGraphQLMetrics("execute", "api_error", duration)
		return map[string]any{"error": errsValue}, nil
	}

	recordGraphQLMetrics("execute", "success", duration)
	return result, nil
}

// IntrospectSchema fetches the raw introspection document for the endpoint.
//
// Description:
//
//	Runs the standard introspection query (wrapped-type chains bounded to
//	four levels) and returns the raw response body. Unlike Execute, API-level
//	failures here ARE errors: the caller treats any failure as a signal to
//	fall back to the static schema description, so there is no value in an
//	error-shaped payload.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//
// Outputs:
//   - []byte: The raw introspection response body.
//   - error: Non-nil on transport faults, non-200 statuses, or responses
//     carrying an errors list.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Client) IntrospectSchema(ctx context.Context) ([]byte, error) {
	ctx, span := graphqlTracer.Start(ctx, "graphql.introspect")
	defer span.End()
	span.SetAttributes(attribute.String("graphql.operation", "introspect"))

	startTime := time.Now()
	status, bodyBytes, err := c.post(ctx, introspectionQuery, nil)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		recordGraphQLMetrics("introspect", "transport_error", duration)
		return nil, err
	}

	if status != http.StatusOK {
		wrapped := fmt.Errorf("graphql: introspection request failed with status %d", status)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "introspection non-OK status")
		recordGraphQLMetrics("introspect", "api_error", duration)
		return nil, wrapped
	}

	var probe graphqlProbe
	if err := json.Unmarshal(bodyBytes, &probe); err != nil {
		wrapped := fmt.Errorf("graphql: parsing introspection response: %w", err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "unparseable introspection response")
		recordGraphQLMetrics("introspect", "transport_error", duration)
		return nil, wrapped
	}
	if len(probe.Errors) > 0 && string(probe.Errors) != "null" {
		wrapped := fmt.Errorf("graphql: introspection returned errors: %s", llm.SafeLogString(truncateForLog(string(probe.Errors))))
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "introspection errors")
		recordGraphQLMetrics("introspect", "api_error", duration)
		return nil, wrapped
	}

	recordGraphQLMetrics("introspect", "success", duration)
	slog.Debug("Fetched introspection document",
		slog.Int("bytes", len(bodyBytes)),
		slog.Duration("duration", duration),
	)
	return bodyBytes, nil
}

// post sends one GraphQL request and returns the status code and body.
// Transport-level faults come back as errors; status interpretation is left
// to the caller.
func (c *Client) post(ctx context.Context, query string, variables map[string]any) (int, []byte, error) {
	if variables == nil {
		variables = map[string]any{}
	}

	reqBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: reading response body: %w", err)
	}

	return resp.StatusCode, bodyBytes, nil
}

// truncateForLog caps response bodies logged on error paths.
func truncateForLog(s string) string {
	const maxLen = 512
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...(truncated)"
}
