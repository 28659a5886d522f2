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

import "fmt"

// Error codes for pipeline failure kinds.
//
// SCHEMA_FETCH_ERROR exists for completeness but never reaches a caller:
// schema resolution absorbs every introspection failure into the fallback
// description instead of failing the pipeline.
const (
	ErrCodeSchemaFetch = "SCHEMA_FETCH_ERROR"
	ErrCodeGeneration  = "QUERY_GENERATION_ERROR"
	ErrCodeExecution   = "QUERY_EXECUTION_ERROR"
	ErrCodeComposition = "ANSWER_COMPOSITION_ERROR"
)

// PipelineError describes a terminal failure of one question's pipeline run.
//
// Description:
//
//	Carries the machine-readable code, the stage that failed, a
//	human-readable message, and the underlying cause. The formatted string
//	doubles as the errorMessage field of the pipeline result, so it must
//	stay meaningful to an end user reading the error-shaped answer.
type PipelineError struct {
	// Code is a machine-readable failure code (e.g. ErrCodeGeneration).
	Code string

	// Stage is the pipeline stage where the failure occurred.
	Stage Stage

	// Message is a human-readable description of the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause, allowing errors.Is / errors.As
// matching through the pipeline boundary.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError creates a PipelineError with explicit fields.
func NewPipelineError(code string, stage Stage, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// NewGenerationError wraps a model-invocation failure during query generation.
func NewGenerationError(cause error) *PipelineError {
	return NewPipelineError(ErrCodeGeneration, StageGenerateQuery, "failed to generate a query from the question", cause)
}

// NewExecutionError wraps a transport-level failure while executing the
// generated query. API-level errors never take this path; the executor
// returns those as data.
func NewExecutionError(cause error) *PipelineError {
	return NewPipelineError(ErrCodeExecution, StageExecuteQuery, "failed to execute the generated query", cause)
}

// NewCompositionError wraps a model-invocation failure while composing the
// final answer.
func NewCompositionError(cause error) *PipelineError {
	return NewPipelineError(ErrCodeComposition, StageComposeAnswer, "failed to compose an answer from the result", cause)
}
