// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// history_dump inspects the NLQ server's query history store.
//
// The history store persists completed pipeline runs (question, generated
// query, answer, error, timing) in BadgerDB with a 30-day TTL. This tool
// opens the store read-only and prints a human-readable listing, newest
// first: record IDs, timestamps, TTL remaining, and per-record question,
// answer, and generated query.
//
// Usage:
//
//	history_dump [--path /path/to/history] [--limit 20]
//
// If --path is not given, reads NLQ_HISTORY_DIR from the environment,
// falling back to ~/.aleutian/nlq/history.
//
// Exit codes:
//
//	0 - success (including "empty store" which prints a message and exits 0)
//	1 - error opening or reading the database
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// historyKeyPrefix must match history.go exactly.
const historyKeyPrefix = "nlq/history/v1/"

// record mirrors history.Record's JSON encoding exactly.
type record struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	GeneratedQuery string    `json:"graphql_query,omitempty"`
	ErrorMessage   string    `json:"error,omitempty"`
	SchemaSource   string    `json:"schema_source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	DurationMillis int64     `json:"duration_ms"`
}

func main() {
	pathFlag := flag.String("path", "", "Path to history BadgerDB directory (overrides NLQ_HISTORY_DIR env var)")
	limitFlag := flag.Int("limit", 0, "Maximum records to print, newest first (0 = all)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("NLQ_HISTORY_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".aleutian", "nlq", "history")
	}

	fmt.Printf("History store path: %s\n", dbPath)

	// Check existence before trying to open; it gives a cleaner message
	// than BadgerDB's "no such file or directory" buried in a long error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("History directory does not exist. The server has not yet recorded any queries.")
		fmt.Println("Start the NLQ server and ask a question to populate the store.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil). // suppress BadgerDB internal logs
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		key       string
		expiresAt time.Time
		hasExpiry bool
		rec       record
		decodeErr error
	}

	var entries []entry

	err = db.View(func(txn *dgbadger.Txn) error {
		iterOpts := dgbadger.DefaultIteratorOptions
		iterOpts.PrefetchValues = true
		iterOpts.Reverse = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		prefix := []byte(historyKeyPrefix)

		// Reverse iteration needs a seek key past every real key under the
		// prefix; keys are timestamp-ordered, so this walks newest first.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if *limitFlag > 0 && len(entries) >= *limitFlag {
				break
			}

			item := it.Item()
			var e entry
			e.key = string(item.Key())

			// TTL: item.ExpiresAt() returns Unix seconds, 0 = no expiry.
			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}

			if err := json.Unmarshal(raw, &e.rec); err != nil {
				e.decodeErr = fmt.Errorf("json decode: %w", err)
			}

			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo history records found.")
		fmt.Println("The store exists but every record has expired or none were written.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d record%s, newest first:\n", len(entries), plural(len(entries), "", "s"))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Key:        %s\n", i+1, e.key)

		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:        EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:        %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"),
				)
			}
		} else {
			fmt.Printf("    TTL:        no expiry set\n")
		}

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}

		fmt.Printf("    ID:         %s\n", e.rec.ID)
		fmt.Printf("    Asked:      %s (%dms)\n", e.rec.CreatedAt.Local().Format("2006-01-02 15:04:05 MST"), e.rec.DurationMillis)
		if e.rec.SchemaSource != "" {
			fmt.Printf("    Schema:     %s\n", e.rec.SchemaSource)
		}
		fmt.Printf("    Question:   %s\n", oneLine(e.rec.Question, 100))
		if e.rec.ErrorMessage != "" {
			fmt.Printf("    Error:      %s\n", oneLine(e.rec.ErrorMessage, 100))
		} else {
			fmt.Printf("    Answer:     %s\n", oneLine(e.rec.Answer, 100))
		}
		if e.rec.GeneratedQuery != "" {
			fmt.Printf("    GraphQL:    %s\n", oneLine(e.rec.GeneratedQuery, 100))
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d record%s, store path: %s\n",
		len(entries), plural(len(entries), "", "s"), dbPath)
}

// oneLine collapses a string to a single truncated line for listing.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// plural returns singular or plural suffix based on count.
func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "history_dump: "+format+"\n", args...)
	os.Exit(1)
}
