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
	"testing"

	"github.com/stretchr/testify/require"
)

// clearConfigEnv blanks every configuration variable so tests are hermetic
// regardless of the ambient environment.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY",
		"OPENAI_API_VERSION",
		"OPENAI_API_ENDPOINT",
		"GRAPHQL_API_URL",
		"OPENAI_DEPLOYMENT",
		"NLQ_HISTORY_DIR",
		"NLQ_LLM_RPM",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_VERSION", "2024-06-01")
	t.Setenv("OPENAI_API_ENDPOINT", "https://myresource.openai.azure.com")
	t.Setenv("GRAPHQL_API_URL", "https://api.example.com/graphql")
}

func TestLoadConfig_AllMissingNamesEveryVariable(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig()
	require.Error(t, err)
	require.Equal(t,
		"Missing required environment variables: OPENAI_API_KEY, OPENAI_API_VERSION, OPENAI_API_ENDPOINT, GRAPHQL_API_URL",
		err.Error())
}

func TestLoadConfig_OneMissingNamesOnlyIt(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("GRAPHQL_API_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Equal(t, "Missing required environment variables: GRAPHQL_API_URL", err.Error())
}

func TestLoadConfig_HappyPathAppliesDefaults(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "test-key", cfg.OpenAIAPIKey)
	require.Equal(t, "https://api.example.com/graphql", cfg.GraphQLAPIURL)
	require.Equal(t, "gpt-4o", cfg.OpenAIDeployment)
	require.Zero(t, cfg.LLMRequestsPerMinute)
	require.Empty(t, cfg.HistoryDir)
}

func TestLoadConfig_ExplicitValuesWin(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("OPENAI_DEPLOYMENT", "gpt-4o-mini")
	t.Setenv("NLQ_HISTORY_DIR", "/var/lib/nlq/history")
	t.Setenv("NLQ_LLM_RPM", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIDeployment)
	require.Equal(t, "/var/lib/nlq/history", cfg.HistoryDir)
	require.Equal(t, 30, cfg.LLMRequestsPerMinute)
}

func TestLoadConfig_NonIntegerRPMFails(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("NLQ_LLM_RPM", "thirty")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "NLQ_LLM_RPM")
}

func TestLoadConfig_NegativeRPMFails(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("NLQ_LLM_RPM", "-5")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "NLQ_LLM_RPM")
}

func TestLoadConfig_MalformedURLFails(t *testing.T) {
	clearConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("GRAPHQL_API_URL", "not a url")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "GRAPHQL_API_URL")
}
