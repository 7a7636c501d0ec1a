// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// RefreshFunc re-runs the full verification pipeline for a cached claim
// and returns the fresh verdict.
type RefreshFunc func(ctx context.Context, claim string) (datatypes.Verdict, error)

// RefresherConfig holds configuration for the background cache refresher.
//
// # Description
//
// The refresher periodically re-verifies STALE entries in hot topic
// categories so popular claims stay current without user traffic paying
// the latency. Defaults come from DefaultRefresherConfig().
//
// # Fields
//
//   - Interval: How often to run refresh cycles. Default: 5 minutes.
//   - BatchSize: Maximum entries re-verified per cycle. Default: 10.
//   - Cooldown: Minimum spacing between pipeline re-runs inside one
//     cycle, respected via a rate limiter. Default: 5 seconds.
type RefresherConfig struct {
	Interval  time.Duration
	BatchSize int
	Cooldown  time.Duration
}

// DefaultRefresherConfig returns production defaults.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:  5 * time.Minute,
		BatchSize: 10,
		Cooldown:  5 * time.Second,
	}
}

// Refresher runs the periodic refresh loop using the ticker + done
// channel pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Refresher struct {
	cache   *SemanticCache
	refresh RefreshFunc
	config  RefresherConfig
	limiter *rate.Limiter
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRefresher creates a refresher over the given cache. refresh is
// invoked once per selected entry, rate-limited by the cooldown.
func NewRefresher(cache *SemanticCache, refresh RefreshFunc, config RefresherConfig) *Refresher {
	return &Refresher{
		cache:   cache,
		refresh: refresh,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.Cooldown), 1),
		done:    make(chan struct{}),
	}
}

// Start begins the background loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.done = make(chan struct{}) // reset for potential restart
	r.mu.Unlock()

	slog.Info("Cache refresher starting",
		"interval", r.config.Interval.String(),
		"batch_size", r.config.BatchSize,
		"cooldown", r.config.Cooldown.String(),
	)

	go r.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit. Safe to call multiple times; does not
// interrupt an in-progress cycle.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	slog.Info("Cache refresher stopping")
	close(r.done)
	r.running = false
}

func (r *Refresher) runLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			refreshed, err := r.RunNow(ctx)
			if err != nil {
				slog.Error("Cache refresh cycle failed", "error", err)
			} else if refreshed > 0 {
				slog.Info("Cache refresh cycle complete", "refreshed", refreshed)
			}
		case <-r.done:
			slog.Info("Cache refresher stopped")
			return
		case <-ctx.Done():
			slog.Info("Cache refresher context cancelled")
			return
		}
	}
}

// RunNow executes one refresh cycle immediately and reports how many
// entries were updated.
func (r *Refresher) RunNow(ctx context.Context) (int, error) {
	candidates, err := r.cache.StaleHotEntries(time.Now().UTC(), r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("selecting refresh candidates: %w", err)
	}

	refreshed := 0
	for _, entry := range candidates {
		if err := r.limiter.Wait(ctx); err != nil {
			return refreshed, err
		}
		verdict, err := r.refresh(ctx, entry.ClaimText)
		if err != nil {
			slog.Warn("Refresh pipeline run failed",
				"id", entry.ID, "claim", entry.ClaimText, "error", err)
			continue
		}
		if err := r.cache.Refresh(entry.ID, verdict); err != nil {
			slog.Warn("Failed to store refreshed verdict", "id", entry.ID, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
