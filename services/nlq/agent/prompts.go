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
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Prompt Templates
// =============================================================================

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompt template names, used for compilation errors and tests.
const (
	promptNameNLToGraphQL = "nl_to_graphql"
	promptNameAnswer      = "answer"
)

// PromptSpec is one template entry in the prompts file.
type PromptSpec struct {
	// Variables lists the placeholder names the template consumes.
	Variables []string `yaml:"variables"`

	// Template is the Go text/template body.
	Template string `yaml:"template"`
}

// promptsFile is the on-disk shape of prompts.yaml.
type promptsFile struct {
	NLToGraphQL PromptSpec `yaml:"nl_to_graphql"`
	Answer      PromptSpec `yaml:"answer"`
}

// PromptRegistry holds the compiled pipeline prompts.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type PromptRegistry struct {
	nlToGraphQL *template.Template
	answer      *template.Template
}

// =============================================================================
// Singleton Prompt Registry
// =============================================================================

var (
	promptsMu      sync.RWMutex
	promptsOnce    sync.Once
	cachedPrompts  *PromptRegistry
	promptsLoadErr error
)

// GetPromptRegistry returns the cached prompt registry.
//
// Description:
//
//	Loads the embedded prompt templates on first call and caches them for
//	subsequent calls. Uses sync.Once for thread-safe initialization.
//
// Outputs:
//   - *PromptRegistry: The loaded registry. Never nil on success.
//   - error: Non-nil if parsing or compilation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetPromptRegistry() (*PromptRegistry, error) {
	promptsMu.RLock()
	if cachedPrompts != nil || promptsLoadErr != nil {
		reg, err := cachedPrompts, promptsLoadErr
		promptsMu.RUnlock()
		return reg, err
	}
	promptsMu.RUnlock()

	promptsMu.Lock()
	defer promptsMu.Unlock()
	if cachedPrompts != nil || promptsLoadErr != nil {
		return cachedPrompts, promptsLoadErr
	}

	promptsOnce.Do(func() {
		cachedPrompts, promptsLoadErr = LoadPromptRegistry(defaultPromptsYAML)
	})

	return cachedPrompts, promptsLoadErr
}

// ResetPromptRegistry resets the cached registry for testing.
//
// Thread Safety: Safe for concurrent use.
func ResetPromptRegistry() {
	promptsMu.Lock()
	defer promptsMu.Unlock()
	cachedPrompts = nil
	promptsLoadErr = nil
	promptsOnce = sync.Once{}
}

// LoadPromptRegistry parses and compiles a prompt registry from YAML bytes.
//
// Description:
//
//	Parses the YAML, compiles each template, and probe-renders it against
//	its declared variables. A template referencing an undeclared variable
//	fails here rather than mid-pipeline.
//
// Inputs:
//   - data: Raw YAML bytes to parse.
//
// Outputs:
//   - *PromptRegistry: The compiled registry.
//   - error: Non-nil if parsing, compilation, or probe rendering fails.
func LoadPromptRegistry(data []byte) (*PromptRegistry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadPromptRegistry: empty YAML data")
	}

	var file promptsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("LoadPromptRegistry: parsing YAML: %w", err)
	}

	nlToGraphQL, err := compilePrompt(promptNameNLToGraphQL, file.NLToGraphQL)
	if err != nil {
		return nil, fmt.Errorf("LoadPromptRegistry: %w", err)
	}
	answer, err := compilePrompt(promptNameAnswer, file.Answer)
	if err != nil {
		return nil, fmt.Errorf("LoadPromptRegistry: %w", err)
	}

	return &PromptRegistry{
		nlToGraphQL: nlToGraphQL,
		answer:      answer,
	}, nil
}

// compilePrompt compiles one template and validates it against its declared
// variables via a probe render.
func compilePrompt(name string, spec PromptSpec) (*template.Template, error) {
	if strings.TrimSpace(spec.Template) == "" {
		return nil, fmt.Errorf("prompt %q: template must not be empty", name)
	}
	if len(spec.Variables) == 0 {
		return nil, fmt.Errorf("prompt %q: variables must not be empty", name)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(spec.Template)
	if err != nil {
		return nil, fmt.Errorf("prompt %q: parsing template: %w", name, err)
	}

	probe := make(map[string]string, len(spec.Variables))
	for _, v := range spec.Variables {
		probe[v] = "probe"
	}
	var sink strings.Builder
	if err := tmpl.Execute(&sink, probe); err != nil {
		return nil, fmt.Errorf("prompt %q: template references a variable outside %v: %w", name, spec.Variables, err)
	}

	return tmpl, nil
}

// RenderNLToGraphQL renders the query-generation prompt.
//
// Inputs:
//   - schemaDescription: The formatted schema text (live or fallback).
//   - question: The user's natural-language question.
//
// Outputs:
//   - string: The rendered prompt.
//   - error: Non-nil if rendering fails.
func (r *PromptRegistry) RenderNLToGraphQL(schemaDescription, question string) (string, error) {
	var b strings.Builder
	err := r.nlToGraphQL.Execute(&b, map[string]string{
		"schema":   schemaDescription,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("agent: rendering %s prompt: %w", promptNameNLToGraphQL, err)
	}
	return b.String(), nil
}

// RenderAnswer renders the answer-composition prompt.
//
// Inputs:
//   - question: The user's natural-language question.
//   - graphqlQuery: The executable query that produced the result.
//   - serializedResult: The structured result, serialized as indented JSON.
//
// Outputs:
//   - string: The rendered prompt.
//   - error: Non-nil if rendering fails.
func (r *PromptRegistry) RenderAnswer(question, graphqlQuery, serializedResult string) (string, error) {
	var b strings.Builder
	err := r.answer.Execute(&b, map[string]string{
		"question":      question,
		"graphql_query": graphqlQuery,
		"result":        serializedResult,
	})
	if err != nil {
		return "", fmt.Errorf("agent: rendering %s prompt: %w", promptNameAnswer, err)
	}
	return b.String(), nil
}
