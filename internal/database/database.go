// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/metrics"
)

// Config configures the badger store.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	InMemory   bool
	SyncWrites bool
}

// DB is a badger-backed recommend.Repository.
type DB struct {
	db     *badger.DB
	logger zerolog.Logger
	closed atomic.Bool
}

// Open opens or creates the store described by cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg Config, logger zerolog.Logger) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("database path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	logger = logger.With().Str("component", "database").Logger()
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("database opened")

	return &DB{db: db, logger: logger}, nil
}

// Close flushes and closes the store. Closing twice is a no-op.
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

// Ping reports whether the store is usable.
func (d *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() || d.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// RunGC runs one round of value log garbage collection.
// badger.ErrNoRewrite means there was nothing to collect.
func (d *DB) RunGC(discardRatio float64) error {
	err := d.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// view runs fn in a read transaction and records the query metrics.
func (d *DB) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	return d.run(ctx, op, false, fn)
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (d *DB) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	return d.run(ctx, op, true, fn)
}

const maxConflictRetries = 3

func (d *DB) run(ctx context.Context, op string, write bool, fn func(txn *badger.Txn) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQuery(op, time.Since(start), err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return ErrClosed
	}

	if !write {
		return d.db.View(fn)
	}
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		d.logger.Debug().Str("op", op).Int("attempt", attempt+1).Msg("transaction conflict, retrying")
	}
	return err
}

// getJSON decodes the value at key into v. It reports false when the key
// does not exist.
func getJSON(txn *badger.Txn, key []byte, v interface{}) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// scanJSON calls fn with every value under prefix, in key order.
func scanJSON(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys returns the keys under prefix without loading values.
func scanKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// badgerLogger routes badger's internal logging to zerolog. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
