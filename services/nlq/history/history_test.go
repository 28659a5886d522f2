// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"testing"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	badgerstore "github.com/AleutianAI/AleutianNLQ/services/nlq/storage/badger"
)

func openTestStore(t *testing.T) (*BadgerHistoryStore, *badgerstore.DB) {
	t.Helper()
	cfg := badgerstore.DefaultConfig()
	cfg.Path = t.TempDir()
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBadgerHistoryStore(db, 0, nil), db
}

func TestAppendAndRecent_NewestFirst(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		rec := Record{
			ID:        id,
			Question:  "question " + id,
			Answer:    "answer " + id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append(%s) error = %v", id, err)
		}
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Recent() returned %d records, want 3", len(records))
	}

	wantOrder := []string{"third", "second", "first"}
	for i, want := range wantOrder {
		if records[i].ID != want {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, want)
		}
	}
}

func TestRecent_LimitApplied(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	for i := range 5 {
		rec := Record{
			ID:        string(rune('a' + i)),
			Question:  "q",
			Answer:    "a",
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent(2) error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent(2) returned %d records, want 2", len(records))
	}
	if records[0].ID != "e" || records[1].ID != "d" {
		t.Errorf("Recent(2) order = %q, %q; want e, d", records[0].ID, records[1].ID)
	}

	records, err = store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(records) != 5 {
		t.Errorf("Recent(0) returned %d records, want all 5 under the default limit", len(records))
	}
}

func TestAppend_FillsDefaults(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC()
	if err := store.Append(ctx, Record{Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() returned %d records, want 1", len(records))
	}
	if records[0].ID == "" {
		t.Error("stored record has empty ID, want generated")
	}
	if records[0].CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("CreatedAt = %v, want stamped at append time", records[0].CreatedAt)
	}
}

func TestRecent_SkipsCorruptRecord(t *testing.T) {
	store, db := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, Record{ID: "good", Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Plant a value under the history prefix that is not valid JSON.
	err := db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		key := historyKey(time.Now().UTC().Add(time.Hour), "corrupt")
		return txn.Set(key, []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("planting corrupt record: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v, want nil despite corrupt entry", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() returned %d records, want the 1 decodable record", len(records))
	}
	if records[0].ID != "good" {
		t.Errorf("records[0].ID = %q, want %q", records[0].ID, "good")
	}
}

func TestRecent_EmptyStore(t *testing.T) {
	store, _ := openTestStore(t)

	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Recent() returned %d records, want 0", len(records))
	}
}

func TestNewBadgerHistoryStore_NilDBPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewBadgerHistoryStore(nil) did not panic")
		}
	}()
	NewBadgerHistoryStore(nil, 0, nil)
}
