// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rank

import "testing"

func TestExtractDate_MetaPrecedence(t *testing.T) {
	meta := map[string]string{
		"article:published_time": "2024-03-15T08:30:00Z",
	}
	// Metadata wins even when the URL carries a different date.
	got := ExtractDate(meta, "https://news.example.com/2023/01/01/story", "published 01/01/2020")
	if got != "2024-03-15" {
		t.Errorf("ExtractDate() = %q, want 2024-03-15", got)
	}
}

func TestExtractDate_MetaKeyOrder(t *testing.T) {
	meta := map[string]string{
		"publishedAt": "2024-06-01T00:00:00Z",
		"date":        "2020-01-01",
	}
	if got := ExtractDate(meta, "", ""); got != "2024-06-01" {
		t.Errorf("ExtractDate() = %q, want publishedAt to outrank date", got)
	}
}

func TestExtractDate_URLPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/2024/03/15/article-slug", "2024-03-15"},
		{"https://example.com/news/15/03/2024/story.html", "2024-03-15"},
		{"https://example.com/article-no-date", ""},
	}

	for _, tt := range tests {
		if got := ExtractDate(nil, tt.url, ""); got != tt.want {
			t.Errorf("ExtractDate(url=%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestExtractDate_Snippet(t *testing.T) {
	tests := []struct {
		snippet string
		want    string
	}{
		{"Published on 2024-03-15 by staff", "2024-03-15"},
		{"Cập nhật 15/03/2024 lúc 10:00", "2024-03-15"},
		{"Posted March 15, 2024 at noon", "2024-03-15"},
		{"15 March 2024 — breaking report", "2024-03-15"},
		{"no date in here", ""},
	}

	for _, tt := range tests {
		if got := ExtractDate(nil, "", tt.snippet); got != tt.want {
			t.Errorf("ExtractDate(snippet=%q) = %q, want %q", tt.snippet, got, tt.want)
		}
	}
}

func TestExtractDate_SlashDayMonthSwap(t *testing.T) {
	// 03/15/2024 cannot be day-first (month 15 impossible), so the
	// components swap.
	if got := ExtractDate(nil, "", "on 03/15/2024"); got != "2024-03-15" {
		t.Errorf("ExtractDate() = %q, want 2024-03-15", got)
	}
}

func TestExtractDate_Idempotent(t *testing.T) {
	first := ExtractDate(nil, "", "published 15/03/2024")
	second := ExtractDate(nil, "", first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}

func TestFormatDate_RejectsOverflow(t *testing.T) {
	tests := []struct {
		y, m, d string
	}{
		{"2024", "02", "30"}, // Feb 30
		{"2024", "13", "01"}, // month 13
		{"2024", "04", "31"}, // Apr 31
		{"2024", "00", "10"},
	}

	for _, tt := range tests {
		if got := formatDate(tt.y, tt.m, tt.d); got != "" {
			t.Errorf("formatDate(%s-%s-%s) = %q, want empty", tt.y, tt.m, tt.d, got)
		}
	}
}

func TestFormatDate_ZeroPads(t *testing.T) {
	if got := formatDate("2024", "3", "5"); got != "2024-03-05" {
		t.Errorf("formatDate() = %q, want 2024-03-05", got)
	}
}

func TestParseLooseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-15T08:30:00Z", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"2024/03/15", "2024-03-15"},
		{"March 15, 2024", "2024-03-15"},
		{"", ""},
		{"gibberish", ""},
	}

	for _, tt := range tests {
		if got := parseLooseDate(tt.input); got != tt.want {
			t.Errorf("parseLooseDate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
