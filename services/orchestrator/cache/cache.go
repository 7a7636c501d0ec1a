// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache implements the semantic verdict cache: a sentence-encoder
// embedding per claim, a SQLite ANN index over the vectors, and a Badger
// record store for the verdicts themselves, plus the staleness model and
// background refresher.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("factlens.orchestrator.cache")

// defaultSimilarityThreshold gates cache hits: top-1 cosine similarity
// must reach it before a stored verdict is reused.
const defaultSimilarityThreshold = 0.85

// categoryTTLs drive the staleness model. STALE begins at the TTL,
// EXPIRED at twice the TTL. Categories not listed use defaultTTL.
var categoryTTLs = map[string]time.Duration{
	"finance":       6 * time.Hour,
	"breaking_news": 2 * time.Hour,
	"sports":        12 * time.Hour,
	"politics":      24 * time.Hour,
}

const defaultTTL = 7 * 24 * time.Hour

// hotCategories are eligible for proactive background refresh.
var hotCategories = map[string]bool{
	"finance":       true,
	"breaking_news": true,
	"sports":        true,
	"politics":      true,
}

// SemanticCache pairs the vector index with the record store. An
// exclusive lock covers the pair during writes so a reader never sees a
// vector without its record.
type SemanticCache struct {
	embedder  Embedder
	index     *VectorIndex
	store     *RecordStore
	threshold float64
	mu        sync.RWMutex
}

// New opens the cache under dir (index file plus record subdirectory)
// and reads CACHE_SIMILARITY_THRESHOLD from the environment.
func New(embedder Embedder, dir string) (*SemanticCache, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	index, err := OpenVectorIndex(dir + "/vectors.db")
	if err != nil {
		return nil, err
	}
	store, err := OpenRecordStore(dir + "/records")
	if err != nil {
		index.Close()
		return nil, err
	}

	threshold := defaultSimilarityThreshold
	if raw := os.Getenv("CACHE_SIMILARITY_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 1 {
			threshold = v
		} else {
			slog.Warn("Invalid CACHE_SIMILARITY_THRESHOLD, using default",
				"value", raw, "default", defaultSimilarityThreshold)
		}
	}

	return &SemanticCache{
		embedder:  embedder,
		index:     index,
		store:     store,
		threshold: threshold,
	}, nil
}

// NewWithComponents is the dependency-injection constructor used by tests.
func NewWithComponents(embedder Embedder, index *VectorIndex, store *RecordStore, threshold float64) *SemanticCache {
	return &SemanticCache{embedder: embedder, index: index, store: store, threshold: threshold}
}

// Lookup embeds the claim and returns the stored verdict when the
// nearest neighbor clears the similarity threshold. A hit increments the
// entry's hit count and stamps the verdict cached=true.
func (c *SemanticCache) Lookup(ctx context.Context, claim string) (*datatypes.Verdict, error) {
	ctx, span := tracer.Start(ctx, "cache.Lookup")
	defer span.End()

	embedding, err := c.embedder.Embed(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("embedding claim for lookup: %w", err)
	}

	c.mu.RLock()
	matches, err := c.index.Search(embedding, 1)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 || matches[0].Similarity < c.threshold {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, nil
	}

	entry, ok, err := c.store.Get(matches[0].ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Vector without a record: repair by dropping the orphan.
		slog.Warn("Orphaned cache vector, deleting", "id", matches[0].ID)
		_ = c.index.Delete(matches[0].ID)
		return nil, nil
	}

	entry.HitCount++
	if err := c.store.Put(entry); err != nil {
		slog.Warn("Failed to bump cache hit count", "id", entry.ID, "error", err)
	}

	span.SetAttributes(
		attribute.Bool("cache.hit", true),
		attribute.Float64("cache.similarity", matches[0].Similarity),
	)
	verdict := entry.Verdict
	verdict.Cached = true
	return &verdict, nil
}

// Insert stores a verdict when the claim's volatility allows caching.
// The no-op on volatile claims is by contract, not an error.
func (c *SemanticCache) Insert(ctx context.Context, claim string, verdict datatypes.Verdict, volatility datatypes.Volatility, topicCategory string) error {
	ctx, span := tracer.Start(ctx, "cache.Insert")
	defer span.End()

	if !volatility.Cacheable() {
		span.SetAttributes(attribute.Bool("cache.inserted", false))
		return nil
	}

	embedding, err := c.embedder.Embed(ctx, claim)
	if err != nil {
		return fmt.Errorf("embedding claim for insert: %w", err)
	}

	now := time.Now().UTC()
	entry := datatypes.CacheEntry{
		ID:             uuid.NewString(),
		ClaimText:      claim,
		Verdict:        verdict,
		Volatility:     volatility,
		TopicCategory:  topicCategory,
		LastVerifiedAt: now,
		CreatedAt:      now,
	}
	entry.Verdict.Cached = false

	// Record first, vector second: an unreferenced record is harmless,
	// an orphaned vector would produce false hits.
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Put(entry); err != nil {
		return err
	}
	if err := c.index.Upsert(entry.ID, embedding); err != nil {
		_ = c.store.Delete(entry.ID)
		return err
	}
	span.SetAttributes(attribute.Bool("cache.inserted", true))
	return nil
}

// Refresh overwrites an entry's verdict and bumps last_verified_at.
func (c *SemanticCache) Refresh(id string, verdict datatypes.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cache entry %s not found", id)
	}
	verdict.Cached = false
	entry.Verdict = verdict
	entry.LastVerifiedAt = time.Now().UTC()
	return c.store.Put(entry)
}

// Status derives an entry's freshness from its category TTL.
func Status(entry datatypes.CacheEntry, now time.Time) datatypes.FreshnessStatus {
	ttl, ok := categoryTTLs[entry.TopicCategory]
	if !ok {
		ttl = defaultTTL
	}
	age := now.Sub(entry.LastVerifiedAt)
	switch {
	case age < ttl:
		return datatypes.FreshnessFresh
	case age < 2*ttl:
		return datatypes.FreshnessStale
	default:
		return datatypes.FreshnessExpired
	}
}

// StaleHotEntries selects refresh candidates: STALE entries in hot
// categories, ordered by hit count descending then last_verified_at
// ascending, capped at limit.
func (c *SemanticCache) StaleHotEntries(now time.Time, limit int) ([]datatypes.CacheEntry, error) {
	var candidates []datatypes.CacheEntry
	err := c.store.All(func(entry datatypes.CacheEntry) bool {
		if hotCategories[entry.TopicCategory] && Status(entry, now) == datatypes.FreshnessStale {
			candidates = append(candidates, entry)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].HitCount != candidates[j].HitCount {
			return candidates[i].HitCount > candidates[j].HitCount
		}
		return candidates[i].LastVerifiedAt.Before(candidates[j].LastVerifiedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Close releases both stores.
func (c *SemanticCache) Close() error {
	indexErr := c.index.Close()
	storeErr := c.store.Close()
	if indexErr != nil {
		return indexErr
	}
	return storeErr
}
