// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"sort"
	"strings"
)

// =============================================================================
// Evidence Items
// =============================================================================

// EvidenceItem is one normalized result from a search adapter.
//
// # Description
//
// Adapters create EvidenceItems; everything downstream treats them as
// read-only. RankScore is assigned by the source ranker and decides the
// trust tier; Date is a best-effort YYYY-MM-DD publication date.
type EvidenceItem struct {
	SourceDomain string  `json:"source_domain"`
	URL          string  `json:"url"`
	Title        string  `json:"title,omitempty"`
	Snippet      string  `json:"snippet"`
	Date         string  `json:"date,omitempty"`
	RankScore    float64 `json:"rank_score"`
	FullText     string  `json:"full_text,omitempty"`
}

// StructuredStatus reports the outcome of a structured (L1) tool call.
type StructuredStatus string

const (
	StructuredSuccess            StructuredStatus = "success"
	StructuredAPIError           StructuredStatus = "api_error"
	StructuredNoData             StructuredStatus = "no_data"
	StructuredInvalidLocation    StructuredStatus = "invalid_location"
	StructuredHistoricalDateReqd StructuredStatus = "historical_date_required"
)

// StructuredResult is an L1 entry: the outcome of a structured tool such
// as the weather provider, successful or not.
type StructuredResult struct {
	Tool    ToolName         `json:"tool"`
	Status  StructuredStatus `json:"status"`
	Reading *WeatherReading  `json:"reading,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

// =============================================================================
// Evidence Bundle
// =============================================================================

// EvidenceBundle is the tiered evidence container consumed by the
// synthesizer. Tiers are trust classes:
//
//	L1 — structured tool results (authoritative when present)
//	L2 — high-trust web items (rank score > 0.9)
//	L3 — general web items (0.5 < score ≤ 0.9)
//	L4 — low-trust items (score ≤ 0.5)
//
// An item appears in exactly one tier and URLs are unique across tiers;
// Add enforces both.
type EvidenceBundle struct {
	L1 []StructuredResult `json:"l1_structured"`
	L2 []EvidenceItem     `json:"l2_high_trust"`
	L3 []EvidenceItem     `json:"l3_general"`
	L4 []EvidenceItem     `json:"l4_low_trust"`

	seenURLs map[string]bool
}

// NewEvidenceBundle returns an empty bundle ready for Add calls.
func NewEvidenceBundle() *EvidenceBundle {
	return &EvidenceBundle{seenURLs: make(map[string]bool)}
}

// Add places an item into the tier matching its rank score, dropping
// duplicate URLs. Returns true if the item was accepted.
func (b *EvidenceBundle) Add(item EvidenceItem) bool {
	key := canonicalURL(item.URL)
	if key == "" {
		return false
	}
	if b.seenURLs == nil {
		b.seenURLs = make(map[string]bool)
	}
	if b.seenURLs[key] {
		return false
	}
	b.seenURLs[key] = true

	switch {
	case item.RankScore > 0.9:
		b.L2 = append(b.L2, item)
	case item.RankScore > 0.5:
		b.L3 = append(b.L3, item)
	default:
		b.L4 = append(b.L4, item)
	}
	return true
}

// AddStructured appends an L1 entry.
func (b *EvidenceBundle) AddStructured(r StructuredResult) {
	b.L1 = append(b.L1, r)
}

// IsEmpty reports whether every tier is empty.
func (b *EvidenceBundle) IsEmpty() bool {
	return len(b.L1) == 0 && len(b.L2) == 0 && len(b.L3) == 0 && len(b.L4) == 0
}

// WebItemCount counts items across the web tiers (L2–L4).
func (b *EvidenceBundle) WebItemCount() int {
	return len(b.L2) + len(b.L3) + len(b.L4)
}

// SortTiersByDate orders L2 and L3 date-descending. Items without a date
// sort after dated ones; ties keep arrival order (stable sort).
func (b *EvidenceBundle) SortTiersByDate() {
	byDateDesc := func(items []EvidenceItem) {
		sort.SliceStable(items, func(i, j int) bool {
			di, dj := items[i].Date, items[j].Date
			if di == "" {
				return false
			}
			if dj == "" {
				return true
			}
			return di > dj
		})
	}
	byDateDesc(b.L2)
	byDateDesc(b.L3)
}

// SuccessfulWeather returns the first successful L1 weather reading, or nil.
func (b *EvidenceBundle) SuccessfulWeather() *WeatherReading {
	for _, r := range b.L1 {
		if r.Tool == ToolWeather && r.Status == StructuredSuccess && r.Reading != nil {
			return r.Reading
		}
	}
	return nil
}

// canonicalURL normalizes a URL for duplicate detection: lowercased,
// scheme and trailing slash insensitive.
func canonicalURL(raw string) string {
	u := strings.TrimSpace(strings.ToLower(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}
