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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClientWithHTTPClient(server.URL, server.Client())
}

func TestExecute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Query != "{ jobs { title } }" {
			t.Errorf("query = %q, want %q", req.Query, "{ jobs { title } }")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"jobs": [{"title": "Software Engineer"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	result, err := client.Execute(context.Background(), "{ jobs { title } }", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"data": map[string]any{
			"jobs": []any{map[string]any{"title": "Software Engineer"}},
		},
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("result = %#v, want %#v", result, want)
	}
}

func TestExecute_NilVariablesSentAsEmptyObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if string(raw["variables"]) != "{}" {
			t.Errorf("variables = %s, want {}", raw["variables"])
		}
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	if _, err := client.Execute(context.Background(), "{ jobs { title } }", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_VariablesPassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Variables["customerId"] != float64(42) {
			t.Errorf("variables[customerId] = %v, want 42", req.Variables["customerId"])
		}
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	vars := map[string]any{"customerId": 42}
	if _, err := client.Execute(context.Background(), "query ($customerId: Int) { jobs(customerId: $customerId) { title } }", vars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_Non200ReturnsErrorPayloadNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := newTestClient(server)

	result, err := client.Execute(context.Background(), "{ jobs { title } }", nil)
	if err != nil {
		t.Fatalf("API-level failures must not be Go errors, got: %v", err)
	}

	want := "GraphQL request failed with status 500"
	if result["error"] != want {
		t.Errorf("result[error] = %v, want %q", result["error"], want)
	}
}

func TestExecute_ErrorsListReturnedAsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "Cannot query field \"titl\" on type \"Job\"."}]}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	result, err := client.Execute(context.Background(), "{ jobs { titl } }", nil)
	if err != nil {
		t.Fatalf("API-level failures must not be Go errors, got: %v", err)
	}

	errsValue, ok := result["error"].([]any)
	if !ok {
		t.Fatalf("result[error] = %#v, want the errors list", result["error"])
	}
	first, ok := errsValue[0].(map[string]any)
	if !ok || !strings.Contains(first["message"].(string), "Cannot query field") {
		t.Errorf("errors list not passed through: %#v", errsValue)
	}
}

func TestExecute_TransportFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.Execute(context.Background(), "{ jobs { title } }", nil)
	if err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
	if !strings.Contains(err.Error(), "graphql:") {
		t.Errorf("error should include 'graphql:' prefix, got: %s", err.Error())
	}
}

func TestExecute_UnparseableBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.Execute(context.Background(), "{ jobs { title } }", nil)
	if err == nil {
		t.Fatal("expected error for unparseable 200 body")
	}
	if !strings.Contains(err.Error(), "parsing response JSON") {
		t.Errorf("error = %q, want JSON parse failure", err.Error())
	}
}

func TestIntrospectSchema_ReturnsRawBody(t *testing.T) {
	const body = `{"data": {"__schema": {"types": []}}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Query, "__schema") {
			t.Error("introspection request should query __schema")
		}
		if !strings.Contains(req.Query, "enumValues") {
			t.Error("introspection request should include enumValues")
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := newTestClient(server)

	raw, err := client.IntrospectSchema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != body {
		t.Errorf("raw = %q, want %q", raw, body)
	}
}

func TestIntrospectSchema_Non200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.IntrospectSchema(context.Background())
	if err == nil {
		t.Fatal("expected error for 502 introspection response")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error = %q, want status in message", err.Error())
	}
}

func TestIntrospectSchema_ErrorsListIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "introspection is disabled"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.IntrospectSchema(context.Background())
	if err == nil {
		t.Fatal("expected error for errors list in introspection response")
	}
	if !strings.Contains(err.Error(), "introspection returned errors") {
		t.Errorf("error = %q, want introspection errors message", err.Error())
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient("https://api.example.com/graphql")
	if client.httpClient.Timeout == 0 {
		t.Error("default client should carry a request timeout")
	}
	if client.Endpoint() != "https://api.example.com/graphql" {
		t.Errorf("Endpoint() = %q, want the configured URL", client.Endpoint())
	}
}
