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

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianNLQ/services/nlq/agent"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/history"
	"github.com/gin-gonic/gin"
)

// Handlers holds the HTTP handlers for the NLQ service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the handlers over a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleQuery handles POST /v1/nlq/query.
//
// Description:
//
//	Runs one natural-language question through the agent pipeline and
//	returns the answer. Pipeline failures are still 200 responses with
//	the error fields set; the pipeline never raises past this handler.
//	Completed runs are appended to the history store when one is
//	attached, and append failures only warn.
//
// Request:
//
//	{"q": "show me the last 3 jobs"}
//
// Response:
//
//	200 OK: QueryResponse
//	400 Bad Request: Empty or unparseable question
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Rejected unparseable query request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if strings.TrimSpace(req.Q) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Query cannot be empty",
			Code:  "EMPTY_QUERY",
		})
		return
	}

	start := time.Now()
	result := h.svc.pipeline.Query(c.Request.Context(), req.Q)
	elapsed := time.Since(start)

	h.appendHistory(c, logger, requestID, req.Q, result, elapsed)

	logger.Info("Query handled",
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Bool("failed", result.ErrorMessage != ""),
	)

	c.JSON(http.StatusOK, QueryResponse{
		Answer:       result.Answer,
		GraphQLQuery: result.GeneratedQuery,
		Error:        result.ErrorMessage,
	})
}

// appendHistory records a completed run in the history store, when enabled.
// Failures warn and never affect the response: the answer has already been
// produced and is not withheld over a diagnostic write.
func (h *Handlers) appendHistory(c *gin.Context, logger *slog.Logger, requestID, question string, result agent.Result, elapsed time.Duration) {
	if !h.svc.HistoryEnabled() {
		return
	}

	_, source := h.svc.pipeline.SchemaDescription(c.Request.Context())

	rec := history.Record{
		ID:             requestID,
		Question:       question,
		Answer:         result.Answer,
		GeneratedQuery: result.GeneratedQuery,
		ErrorMessage:   result.ErrorMessage,
		SchemaSource:   string(source),
		DurationMillis: elapsed.Milliseconds(),
	}

	if err := h.svc.history.Append(c.Request.Context(), rec); err != nil {
		logger.Warn("Failed to append history record", slog.String("error", err.Error()))
	}
}

// HandleWelcome handles GET /.
//
// Response:
//
//	200 OK: WelcomeResponse pointing at the query endpoint.
func (h *Handlers) HandleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, WelcomeResponse{
		Message: "Welcome to the Aleutian NLQ Agent. Use POST /v1/nlq/query to ask questions.",
	})
}

// HandleHealth handles GET /v1/nlq/health.
//
// Response:
//
//	200 OK: {"status": "healthy"}
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// HandleReady handles GET /v1/nlq/ready.
//
// Description:
//
//	Readiness means the service is constructed with a pipeline. The
//	schema fill is lazy and not part of readiness: a server with an
//	unreachable data API still serves, on the fallback schema.
//
// Response:
//
//	200 OK: {"status": "ready"}
//	503 Service Unavailable: {"status": "not_ready", "reason": ...}
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.svc == nil || h.svc.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Reason: "pipeline not constructed",
		})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Status: "ready"})
}

// HandleSchema handles GET /v1/nlq/schema.
//
// Description:
//
//	Returns the schema description the agent prompts with and whether it
//	came from live introspection or the embedded fallback. Triggers the
//	lazy schema fill when no question has arrived yet, so operators can
//	warm and inspect the schema before traffic.
//
// Response:
//
//	200 OK: SchemaResponse
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleSchema(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSchema")

	description, source := h.svc.pipeline.SchemaDescription(c.Request.Context())

	logger.Info("Schema description served",
		slog.String("source", string(source)),
		slog.Int("length", len(description)),
	)

	c.JSON(http.StatusOK, SchemaResponse{
		Description: description,
		Source:      string(source),
	})
}

// HandleHistory handles GET /v1/nlq/history.
//
// Query Parameters:
//
//	limit: Maximum records to return, newest first (optional)
//
// Response:
//
//	200 OK: HistoryResponse
//	404 Not Found: History store disabled
//	500 Internal Server Error: Store read failure
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistory")

	if !h.svc.HistoryEnabled() {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "History store is disabled",
			Code:  "HISTORY_DISABLED",
		})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.svc.history.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to read history", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read history",
			Code:  "HISTORY_READ_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Records: records,
		Count:   len(records),
	})
}
