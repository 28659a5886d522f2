// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent orchestrates the natural-language query pipeline: resolve a
// schema description, generate an executable GraphQL query from the user's
// question, run it against the data API, and compose a prose answer from the
// structured result.
//
// Every remote failure terminates the current question and converts into an
// error-shaped Result; nothing escapes Query as a panic or an error return.
// The one exception to termination is schema resolution, which absorbs all
// introspection failures into a static fallback description.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianNLQ/services/llm"
	"github.com/AleutianAI/AleutianNLQ/services/nlq/schema"
)

var agentTracer = otel.Tracer("aleutian.nlq.agent")

// SchemaSource identifies where the active schema description came from.
type SchemaSource string

const (
	// SchemaSourceLive means the description was formatted from a successful
	// introspection of the data API.
	SchemaSourceLive SchemaSource = "live"

	// SchemaSourceFallback means introspection failed and the embedded
	// fallback description is in use.
	SchemaSourceFallback SchemaSource = "fallback"
)

// QueryAPI is the data-API surface the agent depends on.
//
// Description:
//
//	Execute returns API-level errors as data (an "error" key in the result
//	map) and reserves its error return for transport-level failures.
//	IntrospectSchema returns the raw introspection response body or an
//	error for any failure, transport or API-level.
type QueryAPI interface {
	Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error)
	IntrospectSchema(ctx context.Context) ([]byte, error)
}

// Result is the outcome of one pipeline run.
//
// On success, Answer, GeneratedQuery, and RawResult are set. On failure,
// Answer carries an error-shaped sentence, ErrorMessage the failure text,
// and GeneratedQuery the query when one was produced before the failure.
type Result struct {
	// Answer is the natural-language answer shown to the user.
	Answer string `json:"answer"`

	// GeneratedQuery is the executable query the model produced.
	GeneratedQuery string `json:"graphql_query,omitempty"`

	// RawResult is the structured result the data API returned.
	RawResult map[string]any `json:"raw_result,omitempty"`

	// ErrorMessage is the failure text; empty on success.
	ErrorMessage string `json:"error,omitempty"`
}

// schemaResolution is the cached outcome of the one schema fill.
type schemaResolution struct {
	description string
	source      SchemaSource
}

// Agent runs the question pipeline against one data API and one model.
//
// Description:
//
//	The agent's only mutable state is the lazily-filled schema description,
//	which is computed at most once per instance and held for the instance's
//	lifetime. Everything else is per-call, so one agent serves concurrent
//	questions.
//
// Thread Safety: Safe for concurrent use.
type Agent struct {
	chat    llm.ChatClient
	api     QueryAPI
	prompts *PromptRegistry

	schemaMu     sync.RWMutex
	schema       *schemaResolution
	schemaFlight singleflight.Group
}

// New creates an Agent over the given model client and data API.
//
// Inputs:
//   - chat: The chat-completion client. Must not be nil.
//   - api: The data-API client. Must not be nil.
//
// Outputs:
//   - *Agent: The ready agent.
//   - error: Non-nil if a dependency is nil or the prompt registry fails
//     to load.
func New(chat llm.ChatClient, api QueryAPI) (*Agent, error) {
	if chat == nil {
		return nil, fmt.Errorf("agent: chat client must not be nil")
	}
	if api == nil {
		return nil, fmt.Errorf("agent: query API must not be nil")
	}
	prompts, err := GetPromptRegistry()
	if err != nil {
		return nil, fmt.Errorf("agent: loading prompts: %w", err)
	}
	return &Agent{
		chat:    chat,
		api:     api,
		prompts: prompts,
	}, nil
}

// Query answers one natural-language question.
//
// Description:
//
//	Drives the pipeline state machine through its four stages. Any stage
//	failure (other than schema resolution, which falls back) terminates
//	the run and produces an error-shaped Result; Query itself never
//	returns an error. No stage is retried.
//
// Inputs:
//   - ctx: Context for cancellation and tracing. A cancellation surfaces
//     as a transport-level failure at the next remote call.
//   - question: The user's natural-language question.
//
// Outputs:
//   - Result: The pipeline outcome, success- or error-shaped.
//
// Thread Safety: Safe for concurrent use.
func (a *Agent) Query(ctx context.Context, question string) Result {
	ctx, span := agentTracer.Start(ctx, "nlq.agent.query",
		trace.WithAttributes(attribute.Int("question_length", len(question))),
	)
	defer span.End()

	pc := newPipelineContext(question)

	stageStart := time.Now()
	description, source := a.SchemaDescription(ctx)
	recordStageDuration(StageResolveSchema, time.Since(stageStart))
	pc.SchemaDescription = description
	pc.SchemaSource = source
	pc.advance(StateSchemaResolved)
	span.SetAttributes(attribute.String("schema.source", string(source)))

	stageStart = time.Now()
	query, err := a.generateQuery(ctx, description, question)
	recordStageDuration(StageGenerateQuery, time.Since(stageStart))
	if err != nil {
		return failPipeline(span, pc, NewGenerationError(err))
	}
	pc.GeneratedQuery = query
	pc.advance(StateQueryGenerated)
	slog.Info("Generated GraphQL query", slog.Int("query_length", len(query)))
	slog.Debug("Generated GraphQL query text", slog.String("query", llm.SafeLogString(query)))

	stageStart = time.Now()
	rawResult, err := a.executeQuery(ctx, query)
	recordStageDuration(StageExecuteQuery, time.Since(stageStart))
	if err != nil {
		return failPipeline(span, pc, NewExecutionError(err))
	}
	pc.RawResult = rawResult
	pc.advance(StateResultObtained)

	stageStart = time.Now()
	answer, err := a.composeAnswer(ctx, question, query, rawResult)
	recordStageDuration(StageComposeAnswer, time.Since(stageStart))
	if err != nil {
		return failPipeline(span, pc, NewCompositionError(err))
	}
	pc.Answer = answer
	pc.advance(StateAnswerComposed)

	recordPipelineOutcome(outcomeSuccess, time.Since(pc.StartTime))
	span.SetStatus(codes.Ok, "")
	return pc.result()
}

// failPipeline finalizes a failed run: transitions the context, records
// metrics and trace status, logs, and assembles the error-shaped Result.
func failPipeline(span trace.Span, pc *pipelineContext, perr *PipelineError) Result {
	pc.fail(perr.Stage, perr)
	recordPipelineFailure(perr.Stage, perr.Code)
	recordPipelineOutcome(outcomeFailure, time.Since(pc.StartTime))
	span.RecordError(perr)
	span.SetStatus(codes.Error, string(perr.Stage))
	slog.Error("NLQ pipeline failed",
		slog.String("stage", string(perr.Stage)),
		slog.String("code", perr.Code),
		slog.String("error", llm.SafeLogString(perr.Error())),
	)
	return pc.result()
}

// SchemaDescription returns the schema description the pipeline embeds in
// generation prompts, filling the per-instance cache on first use.
//
// Description:
//
//	The first call introspects the data API and formats the result; any
//	failure substitutes the embedded fallback text. Whatever the first
//	resolution produced, live or fallback, is cached for the instance's
//	lifetime and returned on every later call without re-introspecting.
//	Concurrent first calls collapse onto a single introspection.
//
// Outputs:
//   - string: The schema description. Never empty.
//   - SchemaSource: Whether the description is live or the fallback.
//
// Thread Safety: Safe for concurrent use.
func (a *Agent) SchemaDescription(ctx context.Context) (string, SchemaSource) {
	a.schemaMu.RLock()
	if cached := a.schema; cached != nil {
		a.schemaMu.RUnlock()
		return cached.description, cached.source
	}
	a.schemaMu.RUnlock()

	v, _, _ := a.schemaFlight.Do("schema", func() (any, error) {
		a.schemaMu.RLock()
		if cached := a.schema; cached != nil {
			a.schemaMu.RUnlock()
			return cached, nil
		}
		a.schemaMu.RUnlock()

		res := a.resolveSchema(ctx)
		a.schemaMu.Lock()
		a.schema = res
		a.schemaMu.Unlock()
		return res, nil
	})

	res := v.(*schemaResolution)
	return res.description, res.source
}

// resolveSchema performs the one introspect-and-format pass. It never fails:
// every error path lands on the fallback description.
func (a *Agent) resolveSchema(ctx context.Context) *schemaResolution {
	ctx, span := agentTracer.Start(ctx, "nlq.agent.resolve_schema")
	defer span.End()

	raw, err := a.api.IntrospectSchema(ctx)
	if err != nil {
		slog.Warn("Schema introspection failed, using fallback schema",
			slog.String("error", llm.SafeLogString(err.Error())),
		)
		span.RecordError(err)
		return fallbackResolution(span)
	}

	doc, err := schema.Parse(raw)
	if err != nil {
		slog.Warn("Schema document rejected, using fallback schema",
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		return fallbackResolution(span)
	}

	description, err := schema.Format(doc)
	if err != nil {
		slog.Warn("Schema formatting failed, using fallback schema",
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		return fallbackResolution(span)
	}

	span.SetAttributes(
		attribute.String("schema.source", string(SchemaSourceLive)),
		attribute.Int("schema.description_length", len(description)),
	)
	recordSchemaResolution(SchemaSourceLive)
	slog.Info("Schema description resolved from live introspection",
		slog.Int("description_length", len(description)),
	)
	return &schemaResolution{description: description, source: SchemaSourceLive}
}

func fallbackResolution(span trace.Span) *schemaResolution {
	span.SetAttributes(attribute.String("schema.source", string(SchemaSourceFallback)))
	recordSchemaResolution(SchemaSourceFallback)
	return &schemaResolution{
		description: schema.FallbackDescription(),
		source:      SchemaSourceFallback,
	}
}

// generateQuery renders the generation prompt, invokes the model, and strips
// fence markup from the completion.
func (a *Agent) generateQuery(ctx context.Context, schemaDescription, question string) (string, error) {
	ctx, span := agentTracer.Start(ctx, "nlq.agent.generate_query")
	defer span.End()

	prompt, err := a.prompts.RenderNLToGraphQL(schemaDescription, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		return "", err
	}

	completion, err := a.chat.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, pinnedParams())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model invocation failed")
		return "", err
	}

	query := CleanGeneratedQuery(completion)
	span.SetAttributes(attribute.Int("query_length", len(query)))
	return query, nil
}

// executeQuery runs the generated query with empty variables. API-level
// errors come back inside the result map, not as an error.
func (a *Agent) executeQuery(ctx context.Context, query string) (map[string]any, error) {
	ctx, span := agentTracer.Start(ctx, "nlq.agent.execute_query")
	defer span.End()

	result, err := a.api.Execute(ctx, query, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query execution failed")
		return nil, err
	}
	return result, nil
}

// composeAnswer serializes the structured result and asks the model for a
// prose answer.
func (a *Agent) composeAnswer(ctx context.Context, question, query string, result map[string]any) (string, error) {
	ctx, span := agentTracer.Start(ctx, "nlq.agent.compose_answer")
	defer span.End()

	serialized, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		err = fmt.Errorf("agent: serializing query result: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result serialization failed")
		return "", err
	}

	prompt, err := a.prompts.RenderAnswer(question, query, string(serialized))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		return "", err
	}

	answer, err := a.chat.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, pinnedParams())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model invocation failed")
		return "", err
	}
	return answer, nil
}

// pinnedParams returns generation parameters with temperature pinned to 0.
// Query generation must be reproducible; answer composition uses the same
// setting so the two calls behave consistently.
func pinnedParams() llm.GenerationParams {
	temperature := float32(0)
	return llm.GenerationParams{Temperature: &temperature}
}
