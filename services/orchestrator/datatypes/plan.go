// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data model of the verification
// pipeline: plans produced by the planner, evidence collected by the tool
// executor, verdicts emitted by the synthesizer, and the persisted cache
// and feedback records.
//
// Types here are plain JSON-tagged structs. Ownership rules: a Plan is
// mutable until the executor finishes enrichment; EvidenceItems are
// created by search adapters and read-only afterwards.
package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Enumerations
// =============================================================================

// ClaimType categorizes a claim for routing and cache bucketing.
type ClaimType string

const (
	ClaimTypeWeather         ClaimType = "weather"
	ClaimTypeCommonKnowledge ClaimType = "common-knowledge"
	ClaimTypeHistorical      ClaimType = "historical"
	ClaimTypeSports          ClaimType = "sports"
	ClaimTypePolitics        ClaimType = "politics"
	ClaimTypeTech            ClaimType = "tech"
	ClaimTypeGeneral         ClaimType = "general"
)

// Volatility is the rate at which the truth of a claim can change.
// It governs cacheability: only static and low volatility claims are
// eligible for semantic cache insertion.
type Volatility string

const (
	VolatilityStatic Volatility = "static"
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// Cacheable reports whether a verdict for this volatility may be stored.
func (v Volatility) Cacheable() bool {
	return v == VolatilityStatic || v == VolatilityLow
}

// TimeScope places a claim in the past, present, or future.
type TimeScope string

const (
	TimeScopePast    TimeScope = "past"
	TimeScopePresent TimeScope = "present"
	TimeScopeFuture  TimeScope = "future"
)

// PartOfDay narrows a weather query to a daypart window.
type PartOfDay string

const (
	PartOfDayMorning   PartOfDay = "morning"
	PartOfDayAfternoon PartOfDay = "afternoon"
	PartOfDayEvening   PartOfDay = "evening"
	PartOfDayNight     PartOfDay = "night"
)

// ToolName identifies the kind of a tool call.
type ToolName string

const (
	ToolSearch  ToolName = "search"
	ToolWeather ToolName = "weather"
)

// SearchType selects between a broad sweep and a targeted lookup.
type SearchType string

const (
	SearchBroad    SearchType = "broad"
	SearchTargeted SearchType = "targeted"
)

// =============================================================================
// Plan
// =============================================================================

// Entities holds the named buckets extracted from a claim. Each bucket is
// an ordered list; DataPoints carries numeric literals with units such as
// "40°C", "120mm", "85%".
type Entities struct {
	Locations     []string `json:"locations"`
	Persons       []string `json:"persons"`
	Organizations []string `json:"organizations"`
	Events        []string `json:"events"`
	DataPoints    []string `json:"data_points"`
}

// TimeReferences captures the temporal anchoring of a claim.
type TimeReferences struct {
	// ExplicitDate is an ISO-8601 date (YYYY-MM-DD) when the claim names one.
	ExplicitDate string `json:"explicit_date,omitempty"`

	// RelativeTime is the raw relative phrase ("ngày mai", "next week").
	RelativeTime string `json:"relative_time,omitempty"`

	// TimeScope is past, present, or future.
	TimeScope TimeScope `json:"time_scope"`
}

// SearchParams are the parameters of a search tool call. Queries is an
// ordered, deduplicated list; the first entry is always the raw claim.
type SearchParams struct {
	Queries    []string   `json:"queries"`
	SearchType SearchType `json:"search_type"`
}

// WeatherParams are the parameters of a weather tool call.
type WeatherParams struct {
	// CityCanonical is the geocoder-resolved English city name, or the raw
	// extracted string when resolution failed.
	CityCanonical string `json:"city_canonical"`

	// DaysAhead is the day offset from today: negative for historical,
	// 0 for today, positive for forecast. Nil when the claim gave no
	// usable relative reference.
	DaysAhead *int `json:"days_ahead,omitempty"`

	// Date is an explicit ISO-8601 target date, when present.
	Date string `json:"date,omitempty"`

	// PartOfDay narrows forecast selection to a daypart.
	PartOfDay PartOfDay `json:"part_of_day,omitempty"`
}

// ToolCall is one step of a plan. Exactly one of Search or Weather is
// populated, discriminated by Name.
type ToolCall struct {
	Name    ToolName       `json:"name"`
	Search  *SearchParams  `json:"search,omitempty"`
	Weather *WeatherParams `json:"weather,omitempty"`
}

// NewSearchCall builds a search tool call.
func NewSearchCall(queries []string, st SearchType) ToolCall {
	return ToolCall{Name: ToolSearch, Search: &SearchParams{Queries: queries, SearchType: st}}
}

// NewWeatherCall builds a weather tool call.
func NewWeatherCall(p WeatherParams) ToolCall {
	return ToolCall{Name: ToolWeather, Weather: &p}
}

// Plan is the typed action plan produced by the planner and consumed by
// the tool executor.
//
// Invariant: a weather-type plan contains exactly one weather call and no
// search calls; any other plan contains at least one search call and no
// weather calls. Validate() enforces this.
type Plan struct {
	MainClaim      string         `json:"main_claim"`
	ClaimType      ClaimType      `json:"claim_type"`
	Volatility     Volatility     `json:"volatility"`
	TopicCategory  string         `json:"topic_category,omitempty"`
	Entities       Entities       `json:"entities"`
	TimeReferences TimeReferences `json:"time_references"`
	RequiredTools  []ToolCall     `json:"required_tools"`
}

// Validate checks the plan's structural invariant.
func (p *Plan) Validate() error {
	if len(p.RequiredTools) == 0 {
		return fmt.Errorf("plan has no required tools")
	}
	var searches, weathers int
	for _, tc := range p.RequiredTools {
		switch tc.Name {
		case ToolSearch:
			if tc.Search == nil || len(tc.Search.Queries) == 0 {
				return fmt.Errorf("search call without queries")
			}
			searches++
		case ToolWeather:
			// An empty city is legal here; the executor surfaces it as an
			// INVALID_LOCATION result instead of calling the provider.
			if tc.Weather == nil {
				return fmt.Errorf("weather call without parameters")
			}
			weathers++
		default:
			return fmt.Errorf("unknown tool %q", tc.Name)
		}
	}
	if p.ClaimType == ClaimTypeWeather {
		if weathers != 1 || searches != 0 {
			return fmt.Errorf("weather plan must hold exactly one weather call and no search calls (got %d weather, %d search)", weathers, searches)
		}
		return nil
	}
	if searches < 1 || weathers != 0 {
		return fmt.Errorf("non-weather plan must hold at least one search call and no weather calls (got %d weather, %d search)", weathers, searches)
	}
	return nil
}

// WeatherCall returns the plan's weather call, or nil.
func (p *Plan) WeatherCall() *ToolCall {
	for i := range p.RequiredTools {
		if p.RequiredTools[i].Name == ToolWeather {
			return &p.RequiredTools[i]
		}
	}
	return nil
}

// SearchQueries returns the union of all search-call queries in plan order,
// deduplicated case-insensitively.
func (p *Plan) SearchQueries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tc := range p.RequiredTools {
		if tc.Name != ToolSearch || tc.Search == nil {
			continue
		}
		for _, q := range tc.Search.Queries {
			key := strings.ToLower(strings.TrimSpace(q))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, q)
		}
	}
	return out
}

// =============================================================================
// Tolerant JSON decoding
// =============================================================================

// rawPlan mirrors the loose JSON shape LLMs actually emit: tool parameters
// arrive as an untyped object under "parameters", entity buckets may be
// missing, and enum values may carry stray case or whitespace.
type rawPlan struct {
	MainClaim      string         `json:"main_claim"`
	ClaimType      string         `json:"claim_type"`
	Volatility     string         `json:"volatility"`
	TopicCategory  string         `json:"topic_category"`
	Entities       Entities       `json:"entities"`
	TimeReferences TimeReferences `json:"time_references"`
	RequiredTools  []rawToolCall  `json:"required_tools"`
}

type rawToolCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// DecodePlan parses planner model output into a Plan without rejecting
// partial shapes. Unknown tools are dropped; missing fields stay zero so
// the planner's normalization step can fill defaults.
func DecodePlan(data []byte) (Plan, error) {
	var raw rawPlan
	if err := json.Unmarshal(data, &raw); err != nil {
		return Plan{}, fmt.Errorf("decoding plan JSON: %w", err)
	}

	plan := Plan{
		MainClaim:      strings.TrimSpace(raw.MainClaim),
		ClaimType:      ClaimType(normalizeEnum(raw.ClaimType)),
		Volatility:     Volatility(normalizeEnum(raw.Volatility)),
		TopicCategory:  normalizeEnum(raw.TopicCategory),
		Entities:       raw.Entities,
		TimeReferences: raw.TimeReferences,
	}

	for _, rt := range raw.RequiredTools {
		switch ToolName(normalizeEnum(rt.Name)) {
		case ToolSearch:
			var sp SearchParams
			if len(rt.Parameters) > 0 {
				_ = json.Unmarshal(rt.Parameters, &sp)
			}
			if sp.SearchType == "" {
				sp.SearchType = SearchBroad
			}
			plan.RequiredTools = append(plan.RequiredTools, ToolCall{Name: ToolSearch, Search: &sp})
		case ToolWeather:
			var wp WeatherParams
			if len(rt.Parameters) > 0 {
				_ = json.Unmarshal(rt.Parameters, &wp)
			}
			plan.RequiredTools = append(plan.RequiredTools, ToolCall{Name: ToolWeather, Weather: &wp})
		default:
			// Models occasionally invent tool names; skip them.
		}
	}

	return plan, nil
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
