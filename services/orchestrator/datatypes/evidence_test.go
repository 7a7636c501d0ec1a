// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "testing"

func TestEvidenceBundle_TierMapping(t *testing.T) {
	tests := []struct {
		score float64
		tier  string
	}{
		{0.95, "L2"},
		{0.91, "L2"},
		{0.9, "L3"}, // boundary: strictly greater than 0.9 for L2
		{0.8, "L3"},
		{0.51, "L3"},
		{0.5, "L4"}, // boundary: strictly greater than 0.5 for L3
		{0.1, "L4"},
	}

	for _, tt := range tests {
		b := NewEvidenceBundle()
		b.Add(EvidenceItem{URL: "https://example.com/a", RankScore: tt.score})

		got := ""
		switch {
		case len(b.L2) == 1:
			got = "L2"
		case len(b.L3) == 1:
			got = "L3"
		case len(b.L4) == 1:
			got = "L4"
		}
		if got != tt.tier {
			t.Errorf("score %v landed in %s, want %s", tt.score, got, tt.tier)
		}
	}
}

func TestEvidenceBundle_URLUniqueness(t *testing.T) {
	b := NewEvidenceBundle()

	if !b.Add(EvidenceItem{URL: "https://example.com/story", RankScore: 0.8}) {
		t.Fatal("first add rejected")
	}
	// Same page under scheme/www/slash variations must be dropped.
	dupes := []string{
		"https://example.com/story",
		"http://example.com/story",
		"https://www.example.com/story/",
		"HTTPS://EXAMPLE.COM/story",
	}
	for _, u := range dupes {
		if b.Add(EvidenceItem{URL: u, RankScore: 0.95}) {
			t.Errorf("duplicate URL accepted: %q", u)
		}
	}
	if b.WebItemCount() != 1 {
		t.Errorf("WebItemCount() = %d, want 1", b.WebItemCount())
	}
}

func TestEvidenceBundle_RejectsEmptyURL(t *testing.T) {
	b := NewEvidenceBundle()
	if b.Add(EvidenceItem{URL: "", RankScore: 0.8}) {
		t.Error("empty URL accepted")
	}
}

func TestEvidenceBundle_SortTiersByDate(t *testing.T) {
	b := NewEvidenceBundle()
	b.Add(EvidenceItem{URL: "https://a.com/1", RankScore: 0.8, Date: "2024-01-10"})
	b.Add(EvidenceItem{URL: "https://b.com/2", RankScore: 0.8, Date: ""})
	b.Add(EvidenceItem{URL: "https://c.com/3", RankScore: 0.8, Date: "2024-06-01"})
	b.Add(EvidenceItem{URL: "https://d.com/4", RankScore: 0.8, Date: "2024-06-01"})

	b.SortTiersByDate()

	wantOrder := []string{"c.com", "d.com", "a.com", "b.com"}
	if len(b.L3) != 4 {
		t.Fatalf("L3 size = %d, want 4", len(b.L3))
	}
	for i, want := range wantOrder {
		host := b.L3[i].URL[8 : 8+5]
		if host != want {
			t.Errorf("L3[%d] = %s, want %s (dated first, ties keep arrival order)", i, host, want)
		}
	}
}

func TestEvidenceBundle_IsEmpty(t *testing.T) {
	b := NewEvidenceBundle()
	if !b.IsEmpty() {
		t.Error("fresh bundle should be empty")
	}
	b.AddStructured(StructuredResult{Tool: ToolWeather, Status: StructuredInvalidLocation})
	if b.IsEmpty() {
		t.Error("bundle with an L1 entry is not empty")
	}
}

func TestEvidenceBundle_SuccessfulWeather(t *testing.T) {
	b := NewEvidenceBundle()
	b.AddStructured(StructuredResult{Tool: ToolWeather, Status: StructuredAPIError, Detail: "boom"})
	if b.SuccessfulWeather() != nil {
		t.Error("failed reading reported as success")
	}

	reading := &WeatherReading{Location: "Hanoi", TemperatureC: 31}
	b.AddStructured(StructuredResult{Tool: ToolWeather, Status: StructuredSuccess, Reading: reading})
	got := b.SuccessfulWeather()
	if got == nil || got.Location != "Hanoi" {
		t.Errorf("SuccessfulWeather() = %+v, want the Hanoi reading", got)
	}
}
