// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// FreshnessStatus describes how current a cached verdict still is.
type FreshnessStatus string

const (
	FreshnessFresh   FreshnessStatus = "FRESH"
	FreshnessStale   FreshnessStatus = "STALE"
	FreshnessExpired FreshnessStatus = "EXPIRED"
)

// CacheEntry is one semantic cache record. The embedding itself lives in
// the vector index; the record store holds everything else keyed by ID.
type CacheEntry struct {
	ID             string     `json:"id"`
	ClaimText      string     `json:"claim_text"`
	Verdict        Verdict    `json:"verdict"`
	Volatility     Volatility `json:"volatility"`
	TopicCategory  string     `json:"topic_category"`
	LastVerifiedAt time.Time  `json:"last_verified_at"`
	HitCount       int64      `json:"hit_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// FeedbackEntry is one human correction recorded against a system verdict.
type FeedbackEntry struct {
	ID              string     `json:"id"`
	OriginalClaim   string     `json:"original_claim"`
	SystemVerdict   Conclusion `json:"system_verdict"`
	HumanCorrection Conclusion `json:"human_correction"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
