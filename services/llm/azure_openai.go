// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// =============================================================================
// Azure OpenAI Client
// =============================================================================

const defaultAzureDeployment = "gpt-4o"

// azureProviderLabel is the provider value used for metrics and spans.
const azureProviderLabel = "azure_openai"

var azureTracer = otel.Tracer("aleutian.nlq.llm.azure_openai")

// ErrEmptyCompletion is returned when the provider responds successfully but
// with no usable completion text.
var ErrEmptyCompletion = errors.New("azureopenai: model returned an empty completion")

// AzureOpenAIConfig holds explicit configuration for an AzureOpenAIClient.
//
// Description:
//
//	Used by NewAzureOpenAIClientWithConfig so tests can point the client at
//	a mock server and production code can construct it from validated
//	service configuration rather than re-reading the environment.
//
// Thread Safety: AzureOpenAIConfig is a value type; copies are independent.
type AzureOpenAIConfig struct {
	// APIKey is the Azure OpenAI resource key.
	APIKey string

	// Endpoint is the Azure OpenAI resource endpoint, e.g.
	// "https://myresource.openai.azure.com".
	Endpoint string

	// APIVersion is the Azure OpenAI REST API version, e.g. "2024-06-01".
	APIVersion string

	// Deployment is the deployment (model) name. Defaults to "gpt-4o".
	Deployment string

	// HTTPClient overrides the HTTP client used for requests. Nil uses a
	// client with a 120 second timeout.
	HTTPClient *http.Client
}

// AzureOpenAIClient implements ChatClient against an Azure OpenAI deployment.
//
// Description:
//
//	Wraps the langchaingo OpenAI client configured for the Azure API type,
//	which routes requests to /openai/deployments/{deployment}/chat/completions
//	with api-key authentication. Records per-call metrics and an OTel span
//	around every completion.
//
// Thread Safety: AzureOpenAIClient is safe for concurrent use.
type AzureOpenAIClient struct {
	client     *openai.LLM
	deployment string
}

// NewAzureOpenAIClientWithConfig creates an AzureOpenAIClient with explicit
// configuration.
//
// Inputs:
//   - cfg: Connection settings. APIKey, Endpoint, and APIVersion are
//     required; Deployment defaults to "gpt-4o" when empty.
//
// Outputs:
//   - *AzureOpenAIClient: The configured client.
//   - error: Non-nil if a required field is missing or the underlying client
//     cannot be constructed.
func NewAzureOpenAIClientWithConfig(cfg AzureOpenAIConfig) (*AzureOpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azureopenai: API key is missing")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azureopenai: endpoint is missing")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("azureopenai: API version is missing")
	}
	if cfg.Deployment == "" {
		cfg.Deployment = defaultAzureDeployment
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	client, err := openai.New(
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.Endpoint),
		openai.WithAPIVersion(cfg.APIVersion),
		openai.WithModel(cfg.Deployment),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("azureopenai: creating client: %w", err)
	}

	return &AzureOpenAIClient{
		client:     client,
		deployment: cfg.Deployment,
	}, nil
}

// NewAzureOpenAIClient creates a new AzureOpenAIClient from environment
// variables.
//
// Description:
//
//	Reads OPENAI_API_KEY, OPENAI_API_ENDPOINT, OPENAI_API_VERSION, and
//	OPENAI_DEPLOYMENT from the environment. OPENAI_DEPLOYMENT defaults to
//	"gpt-4o" if not set.
//
// Outputs:
//   - *AzureOpenAIClient: The configured client.
//   - error: Non-nil if a required variable is missing.
func NewAzureOpenAIClient() (*AzureOpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	endpoint := os.Getenv("OPENAI_API_ENDPOINT")
	apiVersion := os.Getenv("OPENAI_API_VERSION")
	deployment := os.Getenv("OPENAI_DEPLOYMENT")

	if apiKey == "" {
		slog.Warn("Azure OpenAI API key is empty. Azure OpenAI client will not function.")
		return nil, fmt.Errorf("azureopenai: API key is missing (OPENAI_API_KEY)")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("azureopenai: endpoint is missing (OPENAI_API_ENDPOINT)")
	}
	if apiVersion == "" {
		return nil, fmt.Errorf("azureopenai: API version is missing (OPENAI_API_VERSION)")
	}
	if deployment == "" {
		deployment = defaultAzureDeployment
		slog.Warn("OPENAI_DEPLOYMENT not set, defaulting to gpt-4o")
	}

	slog.Info("Initializing Azure OpenAI client",
		slog.String("deployment", deployment),
		slog.String("api_version", apiVersion),
	)

	return NewAzureOpenAIClientWithConfig(AzureOpenAIConfig{
		APIKey:     apiKey,
		Endpoint:   endpoint,
		APIVersion: apiVersion,
		Deployment: deployment,
	})
}

// Chat implements ChatClient using the Azure OpenAI chat completions API.
//
// Description:
//
//	Converts Message values to langchaingo content parts and sends a chat
//	completion request. Handles system, user, and assistant roles; unknown
//	roles are mapped to user with a warning, matching the other Aleutian
//	provider adapters.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - messages: Conversation history.
//   - params: Generation parameters.
//
// Outputs:
//   - string: The assistant's response text.
//   - error: Non-nil if the request fails or the completion is empty.
//
// Thread Safety: This method is safe for concurrent use.
func (a *AzureOpenAIClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	deployment := a.deployment
	if params.ModelOverride != "" {
		deployment = params.ModelOverride
	}

	ctx, span := azureTracer.Start(ctx, "llm.azure_openai.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", azureProviderLabel),
		attribute.String("llm.deployment", deployment),
		attribute.Int("llm.message_count", len(messages)),
	)

	slog.Debug("Chat via Azure OpenAI",
		slog.String("deployment", deployment),
		slog.Int("messages", len(messages)),
	)

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleUser:
			role = llms.ChatMessageTypeHuman
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			slog.Warn("Azure OpenAI: unknown message role, mapping to user",
				slog.String("unknown_role", msg.Role),
				slog.String("deployment", deployment),
			)
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	callOpts := []llms.CallOption{llms.WithModel(deployment)}
	if params.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if params.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(float64(*params.TopP)))
	}
	if len(params.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(params.Stop))
	}

	incActiveRequests(azureProviderLabel)
	defer decActiveRequests(azureProviderLabel)

	startTime := time.Now()
	resp, err := a.client.GenerateContent(ctx, content, callOpts...)
	duration := time.Since(startTime)

	if err != nil {
		wrapped := fmt.Errorf("azureopenai: completion request failed: %s", SafeLogString(err.Error()))
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "completion request failed")
		recordLLMMetrics(azureProviderLabel, duration, 0, 0, wrapped)
		return "", wrapped
	}

	if len(resp.Choices) == 0 {
		span.RecordError(ErrEmptyCompletion)
		span.SetStatus(codes.Error, "no choices returned")
		recordLLMMetrics(azureProviderLabel, duration, 0, 0, ErrEmptyCompletion)
		return "", ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	inputTokens, outputTokens := tokenUsage(choice.GenerationInfo)
	recordLLMMetrics(azureProviderLabel, duration, inputTokens, outputTokens, nil)

	slog.Debug("Received Azure OpenAI chat response",
		slog.String("stop_reason", choice.StopReason),
		slog.Int("response_len", len(choice.Content)),
		slog.Duration("duration", duration),
	)

	return choice.Content, nil
}

// tokenUsage extracts prompt and completion token counts from a choice's
// generation info. Missing or oddly typed entries count as zero.
func tokenUsage(info map[string]any) (inputTokens, outputTokens int) {
	if info == nil {
		return 0, 0
	}
	if v, ok := info["PromptTokens"].(int); ok {
		inputTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		outputTokens = v
	}
	return inputTokens, outputTokens
}
