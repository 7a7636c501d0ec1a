// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
)

// =============================================================================
// Validate Tests
// =============================================================================

func TestPlanValidate_WeatherPlan(t *testing.T) {
	plan := Plan{
		ClaimType: ClaimTypeWeather,
		RequiredTools: []ToolCall{
			NewWeatherCall(WeatherParams{CityCanonical: "Hanoi"}),
		},
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestPlanValidate_WeatherPlanEmptyCityIsLegal(t *testing.T) {
	// The executor surfaces an empty city as INVALID_LOCATION; the plan
	// itself is structurally fine.
	plan := Plan{
		ClaimType: ClaimTypeWeather,
		RequiredTools: []ToolCall{
			NewWeatherCall(WeatherParams{}),
		},
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil for empty city", err)
	}
}

func TestPlanValidate_WeatherPlanWithSearchRejected(t *testing.T) {
	plan := Plan{
		ClaimType: ClaimTypeWeather,
		RequiredTools: []ToolCall{
			NewWeatherCall(WeatherParams{CityCanonical: "Hanoi"}),
			NewSearchCall([]string{"weather hanoi"}, SearchBroad),
		},
	}
	if err := plan.Validate(); err == nil {
		t.Error("weather plan with a search call should be invalid")
	}
}

func TestPlanValidate_SearchPlan(t *testing.T) {
	plan := Plan{
		ClaimType: ClaimTypeGeneral,
		RequiredTools: []ToolCall{
			NewSearchCall([]string{"some query"}, SearchBroad),
		},
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestPlanValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"no tools", Plan{ClaimType: ClaimTypeGeneral}},
		{"search without queries", Plan{
			ClaimType:     ClaimTypeGeneral,
			RequiredTools: []ToolCall{NewSearchCall(nil, SearchBroad)},
		}},
		{"non-weather plan with weather call", Plan{
			ClaimType: ClaimTypeGeneral,
			RequiredTools: []ToolCall{
				NewSearchCall([]string{"q"}, SearchBroad),
				NewWeatherCall(WeatherParams{CityCanonical: "Hanoi"}),
			},
		}},
		{"two weather calls", Plan{
			ClaimType: ClaimTypeWeather,
			RequiredTools: []ToolCall{
				NewWeatherCall(WeatherParams{CityCanonical: "Hanoi"}),
				NewWeatherCall(WeatherParams{CityCanonical: "Hue"}),
			},
		}},
		{"unknown tool", Plan{
			ClaimType:     ClaimTypeGeneral,
			RequiredTools: []ToolCall{{Name: ToolName("translate")}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.plan.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

// =============================================================================
// DecodePlan Tests
// =============================================================================

func TestDecodePlan_NormalizesEnums(t *testing.T) {
	data := []byte(`{
		"main_claim": "  Vietnam won  ",
		"claim_type": " Weather ",
		"volatility": "HIGH",
		"topic_category": "Sports",
		"required_tools": [
			{"name": "WEATHER", "parameters": {"city_canonical": "Hanoi"}}
		]
	}`)

	plan, err := DecodePlan(data)
	if err != nil {
		t.Fatalf("DecodePlan() error = %v", err)
	}
	if plan.MainClaim != "Vietnam won" {
		t.Errorf("MainClaim = %q, want trimmed", plan.MainClaim)
	}
	if plan.ClaimType != ClaimTypeWeather {
		t.Errorf("ClaimType = %q, want weather", plan.ClaimType)
	}
	if plan.Volatility != VolatilityHigh {
		t.Errorf("Volatility = %q, want high", plan.Volatility)
	}
	if plan.TopicCategory != "sports" {
		t.Errorf("TopicCategory = %q, want sports", plan.TopicCategory)
	}
	if len(plan.RequiredTools) != 1 || plan.RequiredTools[0].Weather == nil {
		t.Fatalf("tools = %+v, want one weather call", plan.RequiredTools)
	}
	if plan.RequiredTools[0].Weather.CityCanonical != "Hanoi" {
		t.Errorf("city = %q, want Hanoi", plan.RequiredTools[0].Weather.CityCanonical)
	}
}

func TestDecodePlan_DropsUnknownTools(t *testing.T) {
	data := []byte(`{
		"required_tools": [
			{"name": "search", "parameters": {"queries": ["q1"]}},
			{"name": "summarize", "parameters": {}}
		]
	}`)

	plan, err := DecodePlan(data)
	if err != nil {
		t.Fatalf("DecodePlan() error = %v", err)
	}
	if len(plan.RequiredTools) != 1 {
		t.Fatalf("tools = %d, want invented tool dropped", len(plan.RequiredTools))
	}
	if plan.RequiredTools[0].Search.SearchType != SearchBroad {
		t.Errorf("SearchType = %q, want default broad", plan.RequiredTools[0].Search.SearchType)
	}
}

func TestDecodePlan_MalformedJSON(t *testing.T) {
	if _, err := DecodePlan([]byte("not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestDecodePlan_PartialShape(t *testing.T) {
	plan, err := DecodePlan([]byte(`{"claim_type": "general"}`))
	if err != nil {
		t.Fatalf("DecodePlan() error = %v", err)
	}
	if plan.ClaimType != ClaimTypeGeneral {
		t.Errorf("ClaimType = %q, want general", plan.ClaimType)
	}
	if len(plan.RequiredTools) != 0 {
		t.Errorf("tools = %+v, want none", plan.RequiredTools)
	}
}

// =============================================================================
// SearchQueries Tests
// =============================================================================

func TestSearchQueries_DedupedUnion(t *testing.T) {
	plan := Plan{
		RequiredTools: []ToolCall{
			NewSearchCall([]string{"first", "second"}, SearchBroad),
			NewSearchCall([]string{"SECOND", "third", ""}, SearchTargeted),
		},
	}
	got := plan.SearchQueries()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("SearchQueries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SearchQueries()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// =============================================================================
// Volatility / Conclusion Tests
// =============================================================================

func TestVolatility_Cacheable(t *testing.T) {
	tests := []struct {
		v    Volatility
		want bool
	}{
		{VolatilityStatic, true},
		{VolatilityLow, true},
		{VolatilityMedium, false},
		{VolatilityHigh, false},
		{Volatility(""), false},
	}

	for _, tt := range tests {
		if got := tt.v.Cacheable(); got != tt.want {
			t.Errorf("Cacheable(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestParseConclusion(t *testing.T) {
	tests := []struct {
		input string
		want  Conclusion
	}{
		{"TRUE", ConclusionTrue},
		{"true", ConclusionTrue},
		{" False ", ConclusionFalse},
		{"misleading", ConclusionMisleading},
		{"UNVERIFIED", ConclusionUnverified},
		{"maybe", ConclusionUnverified},
		{"", ConclusionUnverified},
	}

	for _, tt := range tests {
		if got := ParseConclusion(tt.input); got != tt.want {
			t.Errorf("ParseConclusion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
