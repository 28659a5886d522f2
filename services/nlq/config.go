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
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds the environment-driven service configuration.
//
// Description:
//
//	Field order matters: validation reports missing variables in struct
//	declaration order, and the startup error lists them in that order.
//	The `env` tag names the environment variable each field is read from.
type Config struct {
	// OpenAIAPIKey is the Azure OpenAI resource key.
	OpenAIAPIKey string `env:"OPENAI_API_KEY" validate:"required"`

	// OpenAIAPIVersion is the Azure OpenAI REST API version.
	OpenAIAPIVersion string `env:"OPENAI_API_VERSION" validate:"required"`

	// OpenAIEndpoint is the Azure OpenAI resource endpoint.
	OpenAIEndpoint string `env:"OPENAI_API_ENDPOINT" validate:"required,url"`

	// GraphQLAPIURL is the upstream GraphQL endpoint questions are
	// answered against.
	GraphQLAPIURL string `env:"GRAPHQL_API_URL" validate:"required,url"`

	// OpenAIDeployment is the deployment (model) name. Defaults to
	// "gpt-4o" when unset.
	OpenAIDeployment string `env:"OPENAI_DEPLOYMENT"`

	// HistoryDir is the history store directory. Empty means the server
	// resolves a default under the user's home directory.
	HistoryDir string `env:"NLQ_HISTORY_DIR"`

	// LLMRequestsPerMinute caps client-side LLM calls per minute.
	// Zero disables the cap.
	LLMRequestsPerMinute int `env:"NLQ_LLM_RPM" validate:"min=0"`

	// OTLPEndpoint enables OTLP/gRPC span export when non-empty. Read
	// from the standard OTel variable so collector setups work unchanged.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

const defaultDeployment = "gpt-4o"

var configValidate = validator.New()

// LoadConfig reads the service configuration from the environment and
// validates it.
//
// Description:
//
//	Reads every Config field from its environment variable, applies
//	defaults, and validates. Missing required variables produce a single
//	error naming all of them, so an operator fixes the environment in one
//	pass instead of one variable per restart.
//
// Outputs:
//   - Config: The validated configuration.
//   - error: Non-nil when a required variable is missing or a value is
//     malformed.
func LoadConfig() (Config, error) {
	cfg := Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIAPIVersion: os.Getenv("OPENAI_API_VERSION"),
		OpenAIEndpoint:   os.Getenv("OPENAI_API_ENDPOINT"),
		GraphQLAPIURL:    os.Getenv("GRAPHQL_API_URL"),
		OpenAIDeployment: os.Getenv("OPENAI_DEPLOYMENT"),
		HistoryDir:       os.Getenv("NLQ_HISTORY_DIR"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if raw := os.Getenv("NLQ_LLM_RPM"); raw != "" {
		rpm, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("nlq: NLQ_LLM_RPM must be an integer, got %q", raw)
		}
		cfg.LLMRequestsPerMinute = rpm
	}

	if cfg.OpenAIDeployment == "" {
		cfg.OpenAIDeployment = defaultDeployment
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
//
// Outputs:
//   - error: Non-nil when validation fails. Missing required variables are
//     reported together as "Missing required environment variables: ...",
//     matching the message operators already alert on.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("nlq: validating config: %w", err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		name := envVarName(fe.StructField())
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", name, fe.Tag()))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("Missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
}

// envVarName maps a Config struct field name to its environment variable.
func envVarName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	if tag := f.Tag.Get("env"); tag != "" {
		return tag
	}
	return field
}
