// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier implements the pure claim heuristics that run before
// any model call: weather detection, city extraction, relative-time
// parsing, and common-knowledge matching.
//
// Everything here is deterministic and network-free; lexicons live in
// lexicon.go so adding a language is purely a data change.
package classifier

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// Classification is the full heuristic read of a claim.
//
// # Description
//
// DaysAhead is nil when the claim gives no usable day offset (including
// historical phrases like "last year", which set TimeScope past instead).
// CityCandidate is empty when no plausible place name was found.
type Classification struct {
	IsWeather         bool
	CityCandidate     string
	TimeScope         datatypes.TimeScope
	DaysAhead         *int
	RelativeTime      string
	PartOfDay         datatypes.PartOfDay
	IsCommonKnowledge bool
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold normalizes text for lexicon matching: Unicode NFD, combining marks
// removed, lowercased, and the Vietnamese đ/Đ mapped to d.
func Fold(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	// NFD leaves đ intact (no combining mark), so map it by hand.
	out = strings.ReplaceAll(out, "đ", "d")
	return out
}

// Classify runs all heuristics over one claim. Pure: no network, no clock.
func Classify(claim string) Classification {
	folded := Fold(claim)

	c := Classification{
		TimeScope: datatypes.TimeScopePresent,
	}

	c.IsWeather = containsAny(folded, weatherLexicon)
	c.IsCommonKnowledge = matchesCommonKnowledge(folded)
	c.CityCandidate = ExtractCity(claim, folded)
	c.TimeScope, c.DaysAhead, c.RelativeTime = parseTimeReference(folded)
	c.PartOfDay = parsePartOfDay(folded)

	return c
}

// IsHistoricalClaimType reports whether a planner claim-type string maps
// to the historical taxonomy (forcing low volatility).
func IsHistoricalClaimType(claimType string) bool {
	return historicalClaimTypes[strings.ToLower(strings.TrimSpace(claimType))]
}

func containsAny(folded string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

func matchesCommonKnowledge(folded string) bool {
	for _, ck := range commonKnowledge {
		if ck.re.MatchString(folded) {
			return true
		}
	}
	return false
}

// =============================================================================
// City extraction
// =============================================================================

// ExtractCity resolves a city candidate by cascading strategies:
//
//  1. longest common-city list entry contained in the folded text;
//  2. locative affix patterns ("in X", "tại X", "X city") on folded text;
//  3. longest Title-Case n-gram (n ≥ 2) in the original text.
//
// Candidates of a single token with ≤2 letters, and time stopwords, are
// rejected.
func ExtractCity(original, folded string) string {
	// Strategy 1: common-city list, preferring the longest match.
	best := ""
	for _, city := range commonCities {
		if strings.Contains(folded, city) && len(city) > len(best) {
			best = city
		}
	}
	if best != "" {
		return best
	}

	// Strategy 2: locative patterns.
	for _, re := range cityPatterns {
		m := re.FindStringSubmatch(folded)
		if len(m) < 2 {
			continue
		}
		if cand := cleanCityCandidate(m[1]); cand != "" {
			return cand
		}
	}

	// Strategy 3: longest Title-Case n-gram from the original text.
	longest := ""
	for _, m := range titleCaseNGram.FindAllString(original, -1) {
		if len(m) > len(longest) {
			longest = m
		}
	}
	if cand := cleanCityCandidate(Fold(longest)); cand != "" {
		return cand
	}

	return ""
}

func cleanCityCandidate(s string) string {
	s = strings.Trim(s, " .,'-")
	if s == "" {
		return ""
	}
	if timeStopwords[s] {
		return ""
	}
	words := strings.Fields(s)
	// Drop trailing stopwords picked up by greedy pattern captures.
	for len(words) > 0 && timeStopwords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return ""
	}
	s = strings.Join(words, " ")
	if len(words) == 1 && len([]rune(words[0])) <= 2 {
		return ""
	}
	return s
}

// =============================================================================
// Time references
// =============================================================================

// parseTimeReference applies the day-offset precedence order:
// explicit "in N days" / "N ngày nữa" → tomorrow → today → next week →
// yesterday → historical phrases (scope past, offset unset).
func parseTimeReference(folded string) (datatypes.TimeScope, *int, string) {
	if m := inNDaysPattern.FindStringSubmatch(folded); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return datatypes.TimeScopeFuture, &n, m[0]
		}
	}
	if m := tomorrowPattern.FindString(folded); m != "" {
		return datatypes.TimeScopeFuture, intPtr(1), m
	}
	if m := todayPattern.FindString(folded); m != "" {
		return datatypes.TimeScopePresent, intPtr(0), m
	}
	if m := nextWeekPattern.FindString(folded); m != "" {
		return datatypes.TimeScopeFuture, intPtr(7), m
	}
	if m := yesterdayPattern.FindString(folded); m != "" {
		return datatypes.TimeScopePast, intPtr(-1), m
	}
	if m := historicalPhrase.FindString(folded); m != "" {
		return datatypes.TimeScopePast, nil, m
	}
	return datatypes.TimeScopePresent, nil, ""
}

func parsePartOfDay(folded string) datatypes.PartOfDay {
	for _, pk := range partOfDayKeywords {
		if pk.re.MatchString(folded) {
			return datatypes.PartOfDay(pk.part)
		}
	}
	return ""
}

func intPtr(n int) *int { return &n }
