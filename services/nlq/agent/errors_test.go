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

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError_Error(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      *PipelineError
		expected string
	}{
		{
			name:     "WithCause",
			err:      NewExecutionError(cause),
			expected: "[execute_query:QUERY_EXECUTION_ERROR] failed to execute the generated query: connection refused",
		},
		{
			name:     "WithoutCause",
			err:      NewPipelineError(ErrCodeGeneration, StageGenerateQuery, "model unavailable", nil),
			expected: "[generate_query:QUERY_GENERATION_ERROR] model unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	sentinel := errors.New("boom")
	wrapped := fmt.Errorf("calling model: %w", sentinel)

	perr := NewGenerationError(wrapped)
	if !errors.Is(perr, sentinel) {
		t.Error("errors.Is() did not find the sentinel through the pipeline error")
	}

	var target *PipelineError
	if !errors.As(error(perr), &target) {
		t.Fatal("errors.As() failed to match *PipelineError")
	}
	if target.Code != ErrCodeGeneration {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeGeneration)
	}
	if target.Stage != StageGenerateQuery {
		t.Errorf("Stage = %q, want %q", target.Stage, StageGenerateQuery)
	}
}

func TestErrorConstructors_StageAndCode(t *testing.T) {
	cause := errors.New("x")

	tests := []struct {
		name  string
		err   *PipelineError
		stage Stage
		code  string
	}{
		{name: "Generation", err: NewGenerationError(cause), stage: StageGenerateQuery, code: ErrCodeGeneration},
		{name: "Execution", err: NewExecutionError(cause), stage: StageExecuteQuery, code: ErrCodeExecution},
		{name: "Composition", err: NewCompositionError(cause), stage: StageComposeAnswer, code: ErrCodeComposition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", tt.err.Stage, tt.stage)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
		})
	}
}
