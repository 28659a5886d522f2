// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps a BadgerDB instance with the small lifecycle surface
// the NLQ service needs: open with sane defaults, transactional accessors,
// a background value-log GC loop, and idempotent close.
//
// The wrapper owns the GC goroutine; callers own the DB lifecycle (open in
// main, close on shutdown) and pass the wrapper to stores that borrow it.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

const (
	// defaultGCInterval is how often the value-log GC pass runs.
	defaultGCInterval = 10 * time.Minute

	// gcDiscardRatio is the minimum fraction of a value-log file that must
	// be garbage before BadgerDB rewrites it.
	gcDiscardRatio = 0.5
)

// Config controls how the database is opened.
type Config struct {
	// Path is the directory holding the BadgerDB files. Must not be empty.
	Path string

	// SyncWrites forces an fsync on every write. The NLQ stores hold
	// reconstructible diagnostic data, so this defaults to off.
	SyncWrites bool

	// GCInterval is the period of the value-log GC loop. Zero uses the
	// default.
	GCInterval time.Duration
}

// DefaultConfig returns a Config with defaults applied. The caller must
// still set Path.
func DefaultConfig() Config {
	return Config{
		SyncWrites: false,
		GCInterval: defaultGCInterval,
	}
}

// DB is an opened BadgerDB with its GC loop running.
//
// Thread Safety: Safe for concurrent use. BadgerDB transactions are
// per-goroutine; Close may be called from any goroutine and is idempotent.
type DB struct {
	db   *dgbadger.DB
	path string

	gcStop    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenDB opens (or creates) the database at cfg.Path and starts the GC loop.
//
// Description:
//
//	BadgerDB's internal logger is suppressed; anything worth surfacing is
//	logged here through slog instead. The directory is created if missing.
//
// Inputs:
//   - cfg: Open configuration. Path must not be empty.
//
// Outputs:
//   - *DB: The opened database wrapper.
//   - error: Non-nil if the path is empty or BadgerDB fails to open.
func OpenDB(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger: config path must not be empty")
	}
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = defaultGCInterval
	}

	opts := dgbadger.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithSyncWrites(cfg.SyncWrites)

	inner, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening %s: %w", cfg.Path, err)
	}

	d := &DB{
		db:     inner,
		path:   cfg.Path,
		gcStop: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	go d.runGC(interval)

	slog.Debug("BadgerDB opened", slog.String("path", cfg.Path))
	return d, nil
}

// Path returns the directory the database was opened at.
func (d *DB) Path() string {
	return d.path
}

// WithTxn runs fn inside a read-write transaction.
//
// Inputs:
//   - ctx: Checked for cancellation before the transaction starts; BadgerDB
//     transactions themselves are not context-aware.
//   - fn: The transaction body.
//
// Outputs:
//   - error: The context error, fn's error, or the commit error.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: write txn aborted: %w", err)
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: read txn aborted: %w", err)
	}
	return d.db.View(fn)
}

// Close stops the GC loop and closes the database. Safe to call more than
// once; later calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		close(d.gcStop)
		<-d.gcDone
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}

// runGC reclaims value-log space periodically. Each tick drains all
// reclaimable files; ErrNoRewrite means nothing was worth rewriting, which
// is the normal idle outcome.
func (d *DB) runGC(interval time.Duration) {
	defer close(d.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.gcStop:
			return
		case <-ticker.C:
			for {
				if err := d.db.RunValueLogGC(gcDiscardRatio); err != nil {
					break
				}
			}
		}
	}
}
