// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feedback records human corrections against system verdicts and
// surfaces the nearest past corrections as prompt hints for new claims.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/orchestrator/cache"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("factlens.orchestrator.feedback")

// defaultNeighborCount is how many past corrections are injected into
// prompts for a new claim.
const defaultNeighborCount = 3

// Store persists feedback entries with an embedding index for
// nearest-neighbor retrieval. Safe for concurrent use.
type Store struct {
	embedder cache.Embedder
	index    *cache.VectorIndex
	db       *badger.DB
	mu       sync.RWMutex
}

// Open creates the feedback store under dir.
func Open(embedder cache.Embedder, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create feedback directory %s: %w", dir, err)
	}
	index, err := cache.OpenVectorIndex(dir + "/vectors.db")
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dir + "/records").WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("open feedback record store: %w", err)
	}
	return &Store{embedder: embedder, index: index, db: db}, nil
}

// OpenInMemory builds a store backed by temporary state, for tests.
func OpenInMemory(embedder cache.Embedder, indexPath string) (*Store, error) {
	index, err := cache.OpenVectorIndex(indexPath)
	if err != nil {
		return nil, err
	}
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		index.Close()
		return nil, err
	}
	return &Store{embedder: embedder, index: index, db: db}, nil
}

// Add records one human correction.
func (s *Store) Add(ctx context.Context, entry datatypes.FeedbackEntry) error {
	ctx, span := tracer.Start(ctx, "feedback.Add")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	embedding, err := s.embedder.Embed(ctx, entry.OriginalClaim)
	if err != nil {
		return fmt.Errorf("embedding feedback claim: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling feedback entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(entry.ID), data)
	})
	if err != nil {
		return err
	}
	if err := s.index.Upsert(entry.ID, embedding); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("feedback.id", entry.ID))
	return nil
}

// Nearest returns up to k past corrections closest to the claim.
func (s *Store) Nearest(ctx context.Context, claim string, k int) ([]datatypes.FeedbackEntry, error) {
	ctx, span := tracer.Start(ctx, "feedback.Nearest")
	defer span.End()

	embedding, err := s.embedder.Embed(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("embedding claim for feedback lookup: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matches, err := s.index.Search(embedding, k)
	if err != nil {
		return nil, err
	}

	var entries []datatypes.FeedbackEntry
	for _, m := range matches {
		var entry datatypes.FeedbackEntry
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(m.ID))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
		})
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	span.SetAttributes(attribute.Int("feedback.neighbors", len(entries)))
	return entries, nil
}

// Hints formats the nearest corrections for prompt injection. Returns ""
// when there is nothing relevant, so templates render cleanly.
func (s *Store) Hints(ctx context.Context, claim string) string {
	entries, err := s.Nearest(ctx, claim, defaultNeighborCount)
	if err != nil {
		slog.Warn("Feedback lookup failed, continuing without hints", "error", err)
		return ""
	}
	return FormatForPrompt(entries)
}

// FormatForPrompt renders corrections as a compact block the agents can
// weigh alongside fresh evidence.
func FormatForPrompt(entries []datatypes.FeedbackEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Past human corrections on similar claims:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- Claim: %q — system said %s, human corrected to %s",
			e.OriginalClaim, e.SystemVerdict, e.HumanCorrection)
		if e.Notes != "" {
			fmt.Fprintf(&b, " (%s)", e.Notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Close releases both stores.
func (s *Store) Close() error {
	indexErr := s.index.Close()
	dbErr := s.db.Close()
	if indexErr != nil {
		return indexErr
	}
	return dbErr
}
