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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianNLQ/services/nlq/agent"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/history"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockPipeline implements QueryPipeline for testing.
type mockPipeline struct {
	queryFunc  func(ctx context.Context, question string) agent.Result
	schemaFunc func(ctx context.Context) (string, agent.SchemaSource)

	mu         sync.Mutex
	queryCalls int
}

func (m *mockPipeline) Query(ctx context.Context, question string) agent.Result {
	m.mu.Lock()
	m.queryCalls++
	m.mu.Unlock()

	if m.queryFunc != nil {
		return m.queryFunc(ctx, question)
	}
	return agent.Result{
		Answer:         "There are 3 open jobs.",
		GeneratedQuery: "query { jobs { totalCount } }",
		RawResult:      map[string]any{"data": map[string]any{"jobs": map[string]any{"totalCount": 3}}},
	}
}

func (m *mockPipeline) SchemaDescription(ctx context.Context) (string, agent.SchemaSource) {
	if m.schemaFunc != nil {
		return m.schemaFunc(ctx)
	}
	return "GraphQL Schema Types:\n\n", agent.SchemaSourceLive
}

func (m *mockPipeline) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// memoryHistory implements history.Store in memory for testing.
type memoryHistory struct {
	mu        sync.Mutex
	records   []history.Record
	appendErr error
}

func (s *memoryHistory) Append(ctx context.Context, rec history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryHistory) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]history.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware())

	handlers := NewHandlers(svc)
	router.GET("/", handlers.HandleWelcome)

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func postQuery(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", "/v1/nlq/query", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleQuery_Success(t *testing.T) {
	pipeline := &mockPipeline{}
	router := setupTestRouter(NewService(pipeline, nil))

	w := postQuery(t, router, `{"q": "how many open jobs are there?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "There are 3 open jobs.", resp.Answer)
	require.Equal(t, "query { jobs { totalCount } }", resp.GraphQLQuery)
	require.Empty(t, resp.Error)

	// The raw API result stays pipeline-internal.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.NotContains(t, raw, "raw_result")
	require.NotContains(t, raw, "error")
	require.Equal(t, 1, pipeline.calls())
}

func TestHandleQuery_PipelineFailureIsStill200(t *testing.T) {
	pipeline := &mockPipeline{
		queryFunc: func(ctx context.Context, question string) agent.Result {
			return agent.Result{
				Answer:         "I encountered an error: [execute_query:QUERY_EXECUTION_ERROR] failed to execute the generated query: connection refused",
				GeneratedQuery: "query { jobs { totalCount } }",
				ErrorMessage:   "[execute_query:QUERY_EXECUTION_ERROR] failed to execute the generated query: connection refused",
			}
		},
	}
	router := setupTestRouter(NewService(pipeline, nil))

	w := postQuery(t, router, `{"q": "how many open jobs are there?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Answer, "I encountered an error: "))
	require.Equal(t, "query { jobs { totalCount } }", resp.GraphQLQuery)
	require.NotEmpty(t, resp.Error)
}

func TestHandleQuery_EmptyQuestion(t *testing.T) {
	for name, body := range map[string]string{
		"Empty":          `{"q": ""}`,
		"WhitespaceOnly": `{"q": "   \n\t"}`,
		"MissingField":   `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			pipeline := &mockPipeline{}
			router := setupTestRouter(NewService(pipeline, nil))

			w := postQuery(t, router, body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, "Query cannot be empty", resp.Error)
			require.Equal(t, "EMPTY_QUERY", resp.Code)
			require.Zero(t, pipeline.calls(), "pipeline must not run for an empty question")
		})
	}
}

func TestHandleQuery_MalformedBody(t *testing.T) {
	pipeline := &mockPipeline{}
	router := setupTestRouter(NewService(pipeline, nil))

	w := postQuery(t, router, `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "INVALID_REQUEST", resp.Code)
	require.Zero(t, pipeline.calls())
}

func TestHandleQuery_AppendsHistoryRecord(t *testing.T) {
	pipeline := &mockPipeline{
		schemaFunc: func(ctx context.Context) (string, agent.SchemaSource) {
			return "desc", agent.SchemaSourceFallback
		},
	}
	store := &memoryHistory{}
	router := setupTestRouter(NewService(pipeline, store))

	req, err := http.NewRequest("POST", "/v1/nlq/query", strings.NewReader(`{"q": "list jobs"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.records, 1)
	rec := store.records[0]
	require.Equal(t, "req-123", rec.ID)
	require.Equal(t, "list jobs", rec.Question)
	require.Equal(t, "There are 3 open jobs.", rec.Answer)
	require.Equal(t, "query { jobs { totalCount } }", rec.GeneratedQuery)
	require.Equal(t, string(agent.SchemaSourceFallback), rec.SchemaSource)
}

func TestHandleQuery_HistoryAppendFailureDoesNotFailRequest(t *testing.T) {
	store := &memoryHistory{appendErr: context.DeadlineExceeded}
	router := setupTestRouter(NewService(&mockPipeline{}, store))

	w := postQuery(t, router, `{"q": "list jobs"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "There are 3 open jobs.", resp.Answer)
}

func TestHandleWelcome(t *testing.T) {
	router := setupTestRouter(NewService(&mockPipeline{}, nil))

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp WelcomeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "POST /v1/nlq/query")
}

func TestHandleHealthAndReady(t *testing.T) {
	router := setupTestRouter(NewService(&mockPipeline{}, nil))

	for _, path := range []string{"/v1/nlq/health", "/v1/nlq/ready"} {
		req, err := http.NewRequest("GET", path, nil)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHandleSchema(t *testing.T) {
	pipeline := &mockPipeline{
		schemaFunc: func(ctx context.Context) (string, agent.SchemaSource) {
			return "GraphQL Schema Types:\n\nType: Job (OBJECT)\n", agent.SchemaSourceFallback
		},
	}
	router := setupTestRouter(NewService(pipeline, nil))

	req, err := http.NewRequest("GET", "/v1/nlq/schema", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "fallback", resp.Source)
	require.Contains(t, resp.Description, "Type: Job (OBJECT)")
}

func TestHandleHistory_DisabledReturns404(t *testing.T) {
	router := setupTestRouter(NewService(&mockPipeline{}, nil))

	req, err := http.NewRequest("GET", "/v1/nlq/history", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "HISTORY_DISABLED", resp.Code)
}

func TestHandleHistory_ReturnsRecordsNewestFirst(t *testing.T) {
	store := &memoryHistory{}
	require.NoError(t, store.Append(context.Background(), history.Record{ID: "a", Question: "first"}))
	require.NoError(t, store.Append(context.Background(), history.Record{ID: "b", Question: "second"}))
	require.NoError(t, store.Append(context.Background(), history.Record{ID: "c", Question: "third"}))

	router := setupTestRouter(NewService(&mockPipeline{}, store))

	req, err := http.NewRequest("GET", "/v1/nlq/history?limit=2", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	require.Len(t, resp.Records, 2)
	require.Equal(t, "c", resp.Records[0].ID)
	require.Equal(t, "b", resp.Records[1].ID)
}

func TestRequestID_EchoedAndGenerated(t *testing.T) {
	router := setupTestRouter(NewService(&mockPipeline{}, nil))

	// Client-supplied ID is honored.
	req, err := http.NewRequest("GET", "/v1/nlq/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "client-id-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, "client-id-1", w.Header().Get("X-Request-ID"))

	// A missing ID is generated.
	req, err = http.NewRequest("GET", "/v1/nlq/health", nil)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewService_NilPipelinePanics(t *testing.T) {
	require.Panics(t, func() { NewService(nil, nil) })
}
