// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// badgerLogger adapts badger's logging interface onto slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// RecordStore persists CacheEntry records keyed by id in BadgerDB. The
// companion VectorIndex holds the embeddings under the same ids.
type RecordStore struct {
	db *badger.DB
}

// OpenRecordStore opens (or creates) the store directory. An empty path
// opens an in-memory store, used by tests.
func OpenRecordStore(path string) (*RecordStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create record store directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: slog.Default()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Put writes one entry.
func (s *RecordStore) Put(entry datatypes.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling cache entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(entry.ID), data)
	})
}

// Get reads one entry by id; the boolean reports presence.
func (s *RecordStore) Get(id string) (datatypes.CacheEntry, bool, error) {
	var entry datatypes.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.CacheEntry{}, false, nil
	}
	if err != nil {
		return datatypes.CacheEntry{}, false, fmt.Errorf("reading cache entry %s: %w", id, err)
	}
	return entry, true, nil
}

// Delete removes an entry; missing ids are not an error.
func (s *RecordStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(id))
	})
}

// All streams every entry to fn; returning false stops iteration.
func (s *RecordStore) All(fn func(datatypes.CacheEntry) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry datatypes.CacheEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			if !fn(entry) {
				return nil
			}
		}
		return nil
	})
}

// Close flushes and closes the underlying database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}
