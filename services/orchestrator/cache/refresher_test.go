// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

func testRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:  time.Hour, // loop never fires in tests; cycles run via RunNow
		BatchSize: 10,
		Cooldown:  time.Millisecond,
	}
}

func putStaleHot(t *testing.T, c *SemanticCache, id string, hits int64) {
	t.Helper()
	require.NoError(t, c.store.Put(datatypes.CacheEntry{
		ID:             id,
		ClaimText:      "claim " + id,
		Verdict:        datatypes.Verdict{Conclusion: datatypes.ConclusionUnverified, Reason: "old"},
		TopicCategory:  "breaking_news",
		LastVerifiedAt: time.Now().UTC().Add(-3 * time.Hour),
		HitCount:       hits,
	}))
}

func TestRunNow_RefreshesStaleHotEntries(t *testing.T) {
	c := newTestCache(t, &fakeEmbedder{vec: unitVec()})
	putStaleHot(t, c, "a", 2)
	putStaleHot(t, c, "b", 1)

	var claims []string
	refresh := func(_ context.Context, claim string) (datatypes.Verdict, error) {
		claims = append(claims, claim)
		return datatypes.Verdict{Conclusion: datatypes.ConclusionTrue, Reason: "reverified"}, nil
	}
	r := NewRefresher(c, refresh, testRefresherConfig())

	n, err := r.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"claim a", "claim b"}, claims, "hit-count order")

	entry, ok, err := c.store.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, datatypes.ConclusionTrue, entry.Verdict.Conclusion)
	assert.Equal(t, datatypes.FreshnessFresh, Status(entry, time.Now().UTC()))
}

func TestRunNow_PipelineFailureSkipsEntry(t *testing.T) {
	c := newTestCache(t, &fakeEmbedder{vec: unitVec()})
	putStaleHot(t, c, "broken", 2)
	putStaleHot(t, c, "fine", 1)

	refresh := func(_ context.Context, claim string) (datatypes.Verdict, error) {
		if claim == "claim broken" {
			return datatypes.Verdict{}, errors.New("pipeline down")
		}
		return datatypes.Verdict{Conclusion: datatypes.ConclusionFalse, Reason: "r"}, nil
	}
	r := NewRefresher(c, refresh, testRefresherConfig())

	n, err := r.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed entry skipped, sibling still refreshed")

	entry, _, err := c.store.Get("broken")
	require.NoError(t, err)
	assert.Equal(t, datatypes.ConclusionUnverified, entry.Verdict.Conclusion, "failed entry keeps its old verdict")
}

func TestRunNow_NothingStale(t *testing.T) {
	c := newTestCache(t, &fakeEmbedder{vec: unitVec()})
	r := NewRefresher(c, func(context.Context, string) (datatypes.Verdict, error) {
		t.Error("refresh must not run without candidates")
		return datatypes.Verdict{}, nil
	}, testRefresherConfig())

	n, err := r.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRefresher_StartStop(t *testing.T) {
	c := newTestCache(t, &fakeEmbedder{vec: unitVec()})
	r := NewRefresher(c, func(context.Context, string) (datatypes.Verdict, error) {
		return datatypes.Verdict{}, nil
	}, testRefresherConfig())

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	assert.Error(t, r.Start(ctx), "double start must be rejected")

	r.Stop()
	r.Stop() // idempotent

	require.NoError(t, r.Start(ctx), "restart after stop")
	r.Stop()
}
