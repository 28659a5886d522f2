// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"

	dgbadger "github.com/dgraph-io/badger/v4"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	db, err := OpenDB(cfg)
	if err != nil {
		t.Fatalf("OpenDB() error = %v, want nil", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func TestOpenDB_EmptyPath(t *testing.T) {
	if _, err := OpenDB(DefaultConfig()); err == nil {
		t.Error("OpenDB() with empty path error = nil, want error")
	}
}

func TestWithTxn_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set([]byte("k1"), []byte("v1"))
	})
	if err != nil {
		t.Fatalf("WithTxn() error = %v, want nil", err)
	}

	var got []byte
	err = db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte("k1"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		t.Fatalf("WithReadTxn() error = %v, want nil", err)
	}
	if string(got) != "v1" {
		t.Errorf("value = %q, want %q", got, "v1")
	}
}

func TestWithTxn_CancelledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		t.Error("transaction body ran despite cancelled context")
		return nil
	})
	if err == nil {
		t.Error("WithTxn() error = nil, want context error")
	}

	err = db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		t.Error("read body ran despite cancelled context")
		return nil
	})
	if err == nil {
		t.Error("WithReadTxn() error = nil, want context error")
	}
}

func TestClose_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	db, err := OpenDB(cfg)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil (idempotent)", err)
	}
}

func TestPath(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.Path = dir
	db, err := OpenDB(cfg)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	if db.Path() != dir {
		t.Errorf("Path() = %q, want %q", db.Path(), dir)
	}
}
