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

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent query records",
	Run:   runHistoryCommand,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to list")
}

// historyRecord mirrors the server's history record shape.
type historyRecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	GeneratedQuery string    `json:"graphql_query,omitempty"`
	ErrorMessage   string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	DurationMillis int64     `json:"duration_ms"`
}

// historyResponse mirrors the server's HistoryResponse body.
type historyResponse struct {
	Records []historyRecord `json:"records"`
	Count   int             `json:"count"`
}

func runHistoryCommand(_ *cobra.Command, _ []string) {
	resp, err := fetchHistory(historyLimit)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if resp.Count == 0 {
		fmt.Println("No history records.")
		return
	}

	fmt.Printf("Last %d record(s), newest first:\n", resp.Count)
	for i, rec := range resp.Records {
		fmt.Printf("\n%d. [%s] %s (%dms)\n", i+1, rec.CreatedAt.Local().Format(time.RFC3339), rec.ID, rec.DurationMillis)
		fmt.Printf("   Q: %s\n", rec.Question)
		if rec.ErrorMessage != "" {
			fmt.Printf("   Error: %s\n", rec.ErrorMessage)
		} else {
			fmt.Printf("   A: %s\n", rec.Answer)
		}
		if rec.GeneratedQuery != "" {
			fmt.Printf("   GraphQL: %s\n", rec.GeneratedQuery)
		}
	}
}

// fetchHistory retrieves recent records from the server.
func fetchHistory(limit int) (historyResponse, error) {
	var hr historyResponse

	historyURL := fmt.Sprintf("%s/v1/nlq/history?limit=%d", getServerBaseURL(), limit)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(historyURL)
	if err != nil {
		return hr, fmt.Errorf("failed to reach the NLQ server at %s: %w", historyURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return hr, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return hr, fmt.Errorf("the server has history disabled: %s", string(bodyBytes))
	}
	if resp.StatusCode != http.StatusOK {
		return hr, fmt.Errorf("server returned an error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, &hr); err != nil {
		return hr, fmt.Errorf("failed to parse server response: %w", err)
	}
	return hr, nil
}
