// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides chat-completion clients used by the NLQ pipeline.
//
// The package defines a small provider-agnostic contract (ChatClient) plus
// the Azure OpenAI implementation the service ships with, a rate-limiting
// decorator, and log-redaction helpers shared by everything that may log
// provider responses.
package llm

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat conversation.
//
// Thread Safety: Message is immutable and safe for concurrent read access.
type Message struct {
	// Role is the message role: RoleSystem, RoleUser, or RoleAssistant.
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// GenerationParams controls sampling for a single completion call.
//
// Description:
//
//	Pointer fields distinguish "not set" from zero values so callers can
//	pin temperature to 0 explicitly, which the NLQ pipeline requires for
//	reproducible query generation.
//
// Thread Safety: GenerationParams is a value type; copies are independent.
type GenerationParams struct {
	// Temperature controls sampling randomness. Nil leaves the provider default.
	Temperature *float32

	// MaxTokens caps the completion length. Nil leaves the provider default.
	MaxTokens *int

	// TopP controls nucleus sampling. Nil leaves the provider default.
	TopP *float32

	// Stop lists sequences that terminate generation.
	Stop []string

	// ModelOverride selects a different deployment for this call only.
	ModelOverride string
}

// ChatClient is the completion contract the NLQ pipeline generates and
// composes through.
//
// Description:
//
//	Implementations send the full message history to a chat-completion
//	backend and return the assistant's text. Implementations must be safe
//	for concurrent use; the serving layer shares one client across requests.
type ChatClient interface {
	// Chat sends a conversation and returns the assistant response text.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
