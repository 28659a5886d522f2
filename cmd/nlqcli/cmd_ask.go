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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a natural-language question",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAskCommand,
}

// queryResponse mirrors the server's QueryResponse body.
type queryResponse struct {
	Answer       string `json:"answer"`
	GraphQLQuery string `json:"graphql_query,omitempty"`
	Error        string `json:"error,omitempty"`
}

func runAskCommand(_ *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	fmt.Printf("Asking: %s\n", question)
	fmt.Println("---")

	done := make(chan bool)
	go showSpinner("Thinking", done)

	resp, err := sendQueryRequest(question)
	done <- true
	fmt.Print("\r                                                \r")

	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("\nAnswer:\n%s\n", resp.Answer)
	if resp.GraphQLQuery != "" {
		fmt.Println("\nGenerated GraphQL:")
		fmt.Println(resp.GraphQLQuery)
	}
	if resp.Error != "" {
		fmt.Printf("\n(The pipeline reported an error: %s)\n", resp.Error)
	}
	fmt.Println("\n---")
}

// sendQueryRequest posts one question to the server and decodes the answer.
func sendQueryRequest(question string) (queryResponse, error) {
	var qr queryResponse

	postBody, err := json.Marshal(map[string]any{"q": question})
	if err != nil {
		return qr, fmt.Errorf("failed to create request body: %w", err)
	}

	queryURL := fmt.Sprintf("%s/v1/nlq/query", getServerBaseURL())

	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(queryURL, "application/json", bytes.NewBuffer(postBody))
	if err != nil {
		return qr, fmt.Errorf("failed to reach the NLQ server at %s: %w", queryURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return qr, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return qr, fmt.Errorf("server returned an error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, &qr); err != nil {
		log.Printf("Raw response from server: %s", string(bodyBytes))
		return qr, fmt.Errorf("failed to parse server response: %w", err)
	}
	return qr, nil
}

// showSpinner displays a waiting animation until done receives a value.
func showSpinner(msg string, done chan bool) {
	chars := []string{"▖", "▘", "▝", "▗"}
	i := 0

	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h")

	for {
		select {
		case <-done:
			return
		default:
			fmt.Printf("\r%s  %s... \033[K", chars[i%len(chars)], msg)
			i++
			time.Sleep(100 * time.Millisecond)
		}
	}
}
