// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema description the agent prompts with",
	Run:   runSchemaCommand,
}

// schemaResponse mirrors the server's SchemaResponse body.
type schemaResponse struct {
	Description string `json:"description"`
	Source      string `json:"source"`
}

func runSchemaCommand(_ *cobra.Command, _ []string) {
	resp, err := fetchSchema()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("Schema source: %s\n", resp.Source)
	fmt.Println("---")
	fmt.Println(resp.Description)
}

// fetchSchema retrieves the active schema description from the server.
// The first call after server start triggers introspection, so the
// timeout allows for a slow upstream.
func fetchSchema() (schemaResponse, error) {
	var sr schemaResponse

	schemaURL := fmt.Sprintf("%s/v1/nlq/schema", getServerBaseURL())

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Get(schemaURL)
	if err != nil {
		return sr, fmt.Errorf("failed to reach the NLQ server at %s: %w", schemaURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return sr, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return sr, fmt.Errorf("server returned an error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, &sr); err != nil {
		return sr, fmt.Errorf("failed to parse server response: %w", err)
	}
	return sr, nil
}
