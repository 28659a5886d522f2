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

import "time"

// Stage identifies one step of the question pipeline. Stage values appear in
// span names, metric labels, and PipelineError text.
type Stage string

const (
	// StageResolveSchema obtains the schema description (live or fallback).
	StageResolveSchema Stage = "resolve_schema"
	// StageGenerateQuery turns the question into an executable query.
	StageGenerateQuery Stage = "generate_query"
	// StageExecuteQuery runs the generated query against the data API.
	StageExecuteQuery Stage = "execute_query"
	// StageComposeAnswer turns the structured result into prose.
	StageComposeAnswer Stage = "compose_answer"
)

// State is the pipeline position for one question.
//
// The success path is linear: Idle, SchemaResolved, QueryGenerated,
// ResultObtained, AnswerComposed. Failed is terminal and reachable from any
// non-terminal state.
type State string

const (
	StateIdle           State = "idle"
	StateSchemaResolved State = "schema_resolved"
	StateQueryGenerated State = "query_generated"
	StateResultObtained State = "result_obtained"
	StateAnswerComposed State = "answer_composed"
	StateFailed         State = "failed"
)

// pipelineContext is the tape for one question: inputs, intermediate
// products, and the current state. One context serves exactly one Query call
// and is never shared.
type pipelineContext struct {
	Question          string
	SchemaDescription string
	SchemaSource      SchemaSource
	GeneratedQuery    string
	RawResult         map[string]any
	Answer            string

	State       State
	FailedStage Stage
	Err         *PipelineError

	StartTime time.Time
}

func newPipelineContext(question string) *pipelineContext {
	return &pipelineContext{
		Question:  question,
		State:     StateIdle,
		StartTime: time.Now(),
	}
}

// advance moves the pipeline to the next success-path state. Calls after a
// failure are ignored so a stage helper cannot resurrect a dead pipeline.
func (pc *pipelineContext) advance(next State) {
	if pc.State == StateFailed {
		return
	}
	pc.State = next
}

// fail transitions to the terminal Failed state, recording the stage and
// error. The first failure wins; later calls are ignored.
func (pc *pipelineContext) fail(stage Stage, err *PipelineError) {
	if pc.State == StateFailed {
		return
	}
	pc.State = StateFailed
	pc.FailedStage = stage
	pc.Err = err
}

// result assembles the caller-facing Result.
//
// On success: the composed answer, the executed query, and the raw result.
// On failure: an error-shaped answer embedding the failure text, the failure
// text itself, and the generated query when one was produced before the
// failure. A failed run never carries a raw result.
func (pc *pipelineContext) result() Result {
	if pc.State == StateFailed {
		msg := pc.Err.Error()
		return Result{
			Answer:         "I encountered an error: " + msg,
			GeneratedQuery: pc.GeneratedQuery,
			ErrorMessage:   msg,
		}
	}
	return Result{
		Answer:         pc.Answer,
		GeneratedQuery: pc.GeneratedQuery,
		RawResult:      pc.RawResult,
	}
}
