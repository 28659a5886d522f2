// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists a write-only audit log of answered questions.
package history

// =============================================================================
// HistoryStore: Query Audit Log
// =============================================================================
//
// Each answered question (successful or error-shaped) is appended as one
// record. The log is diagnostic: it exists so operators can see what was
// asked, what query the model produced, and what came back. It is never
// read on the question path, and the pipeline stays correct without it.
//
// Design choices:
//
//	1. BadgerDB (embedded): history is service-local diagnostic data, not
//	   shared state. An embedded store needs no extra deployment and keeps
//	   the append off the request critical path's failure modes: a dead
//	   store degrades to "no history", never to "no answers".
//
//	2. JSON values: records are read by humans (the history endpoint, the
//	   offline dump tool), so the on-disk encoding matches the wire shape.
//
//	3. Time-ordered keys: the key embeds a fixed-width UTC timestamp, so
//	   lexicographic key order is chronological order and "most recent N"
//	   is one reverse prefix scan. RFC3339Nano is unsuitable here because
//	   it trims trailing zeros, which breaks lexicographic ordering.
//
//	4. BadgerDB native TTL: 30-day expiry is enforced by BadgerDB's GC.
//	   Expired records simply stop appearing in scans.
//
// Storage layout:
//
//	nlq/history/v1/{2006-01-02T15:04:05.000000000Z}/{recordID}  →  JSON Record
//	                                                                TTL: 30 days

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	badgerstore "github.com/AleutianAI/AleutianNLQ/services/nlq/storage/badger"
)

// historyDefaultTTL is the lifetime of a history record. 30 days covers a
// month of "what did it answer last week" questions without growing forever.
const historyDefaultTTL = 30 * 24 * time.Hour

// historyKeyPrefix is prepended to the timestamp and record ID to form the
// BadgerDB key. Versioned (v1) to allow future format changes without
// collision.
const historyKeyPrefix = "nlq/history/v1/"

// historyKeyTimeLayout is a fixed-width UTC timestamp layout. Every rendered
// timestamp has the same length, so lexicographic order equals time order.
const historyKeyTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Recent listing bounds.
const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

// Record is one answered question.
type Record struct {
	// ID is the request identifier the serving layer assigned.
	ID string `json:"id"`

	// Question is the user's natural-language question.
	Question string `json:"question"`

	// Answer is the final answer text, error-shaped or not.
	Answer string `json:"answer"`

	// GeneratedQuery is the executable query the model produced, when one
	// was produced.
	GeneratedQuery string `json:"graphql_query,omitempty"`

	// ErrorMessage is the pipeline failure text; empty for successes.
	ErrorMessage string `json:"error,omitempty"`

	// SchemaSource records whether the live or fallback schema was in use.
	SchemaSource string `json:"schema_source,omitempty"`

	// CreatedAt is when the record was appended, UTC.
	CreatedAt time.Time `json:"created_at"`

	// DurationMillis is the end-to-end pipeline duration.
	DurationMillis int64 `json:"duration_ms"`
}

// =============================================================================
// Store Interface
// =============================================================================

// Store persists answered questions.
//
// # Description
//
// Append is called once per answered question, after the pipeline result is
// final. Recent returns the newest records first. Callers treat a nil Store
// as "history disabled" and skip both calls; the serving layer degrades the
// history endpoint rather than failing requests.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append persists one record with the store's TTL. A zero CreatedAt is
	// stamped with the current time; an empty ID gets a generated one.
	//
	// Returns non-nil error only on encode or storage failure. The caller
	// logs the error as a warning and continues; the answer has already
	// been produced and must not be withheld over a diagnostic write.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first. A non-positive
	// limit uses the default; limits above the maximum are clamped.
	//
	// A record that fails to decode is skipped, not fatal: one corrupt
	// entry must not take the whole listing down.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// =============================================================================
// BadgerHistoryStore
// =============================================================================

// BadgerHistoryStore implements Store backed by a BadgerDB instance. The DB
// is opened by the caller (typically in main) and shared; this store does
// not own the DB lifecycle.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type BadgerHistoryStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerHistoryStore creates a BadgerHistoryStore backed by the given DB.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Lifetime for each record. Pass 0 to use the default (30 days).
//   - logger: Logger for append/scan diagnostics. May be nil.
//
// # Outputs
//
//   - *BadgerHistoryStore: Ready-to-use store. Never nil.
func NewBadgerHistoryStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerHistoryStore {
	if db == nil {
		panic("NewBadgerHistoryStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = historyDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerHistoryStore{db: db, ttl: ttl, logger: logger}
}

// Append persists one record with the configured TTL.
func (s *BadgerHistoryStore) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	} else {
		rec.CreatedAt = rec.CreatedAt.UTC()
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history encode: %w", err)
	}

	key := historyKey(rec.CreatedAt, rec.ID)
	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("history append: %w", err)
	}

	s.logger.Debug("history: appended",
		slog.String("id", rec.ID),
		slog.Int("bytes", len(raw)),
	)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *BadgerHistoryStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	prefix := []byte(historyKeyPrefix)
	records := make([]Record, 0, limit)

	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last possible key in the
		// prefix range; 0xFF is greater than any byte the layout emits.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value: %w", err)
			}

			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				s.logger.Warn("history: skipping undecodable record",
					slog.String("key", string(item.Key())),
					slog.String("error", err.Error()),
				)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history scan: %w", err)
	}

	return records, nil
}

// historyKey builds the time-ordered key for one record.
func historyKey(createdAt time.Time, id string) []byte {
	return []byte(historyKeyPrefix + createdAt.UTC().Format(historyKeyTimeLayout) + "/" + id)
}
