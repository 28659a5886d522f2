// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command nlqcli is the terminal client for the Aleutian NLQ server.
//
// Usage:
//
//	nlqcli ask "show me the last 3 jobs"
//	nlqcli schema
//	nlqcli history --limit 10
//
// The server address defaults to http://localhost:8080 and can be
// overridden with ALEUTIAN_NLQ_URL.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nlqcli",
	Short: "Aleutian NLQ - ask your GraphQL API questions in plain language",
	Long: `nlqcli talks to a running Aleutian NLQ server.

Ask natural-language questions, inspect the schema description the
agent prompts with, and list recent query history.

Server address comes from ALEUTIAN_NLQ_URL (default http://localhost:8080).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getServerBaseURL resolves the NLQ server address.
func getServerBaseURL() string {
	if url := os.Getenv("ALEUTIAN_NLQ_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}
