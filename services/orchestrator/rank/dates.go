// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rank

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// metaDateKeys are the structured-metadata fields checked first, in order.
var metaDateKeys = []string{
	"article:published_time",
	"og:published_time",
	"datePublished",
	"publishedAt",
	"published_date",
	"pubdate",
	"date",
}

var (
	isoDatePattern = regexp.MustCompile(`\b((?:19|20)\d{2})-(\d{1,2})-(\d{1,2})\b`)

	// URL path segments: /2024/03/15/ or /15/03/2024/.
	urlYMDPattern = regexp.MustCompile(`/((?:19|20)\d{2})/(\d{1,2})/(\d{1,2})(?:/|$)`)
	urlDMYPattern = regexp.MustCompile(`/(\d{1,2})/(\d{1,2})/((?:19|20)\d{2})(?:/|$)`)

	// Snippet forms: 15/03/2024 and "March 15, 2024" / "15 March 2024".
	slashDMYPattern  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/((?:19|20)\d{2})\b`)
	monthNamePattern = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+((?:19|20)\d{2})\b`)
	dayFirstPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+((?:19|20)\d{2})\b`)
)

var monthsByPrefix = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ExtractDate resolves a publication date for an evidence item, in
// precedence order: structured metadata, URL path segments, then the
// snippet text. Returns "" when nothing parses. Output is always
// YYYY-MM-DD, so the function is idempotent over its own output.
func ExtractDate(meta map[string]string, rawURL, snippet string) string {
	for _, key := range metaDateKeys {
		if v, ok := meta[key]; ok {
			if d := parseLooseDate(v); d != "" {
				return d
			}
		}
	}
	if d := dateFromURL(rawURL); d != "" {
		return d
	}
	return dateFromText(snippet)
}

func dateFromURL(rawURL string) string {
	if m := urlYMDPattern.FindStringSubmatch(rawURL); m != nil {
		return formatDate(m[1], m[2], m[3])
	}
	if m := urlDMYPattern.FindStringSubmatch(rawURL); m != nil {
		return formatDate(m[3], m[2], m[1])
	}
	return ""
}

func dateFromText(text string) string {
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return formatDate(m[1], m[2], m[3])
	}
	if m := slashDMYPattern.FindStringSubmatch(text); m != nil {
		// Ambiguous between D/M and M/Y conventions; day-first dominates
		// the Vietnamese and European sources this pipeline sees.
		day, month := m[1], m[2]
		if n, _ := strconv.Atoi(month); n > 12 {
			day, month = month, day
		}
		return formatDate(m[3], month, day)
	}
	if m := monthNamePattern.FindStringSubmatch(text); m != nil {
		if mo, ok := monthsByPrefix[strings.ToLower(m[1])[:3]]; ok {
			return formatDate(m[3], strconv.Itoa(mo), m[2])
		}
	}
	if m := dayFirstPattern.FindStringSubmatch(text); m != nil {
		if mo, ok := monthsByPrefix[strings.ToLower(m[2])[:3]]; ok {
			return formatDate(m[3], strconv.Itoa(mo), m[1])
		}
	}
	return ""
}

// parseLooseDate handles metadata values, which are usually RFC 3339 but
// occasionally bare dates or month-name strings.
func parseLooseDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006/01/02", time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return dateFromText(v)
}

// formatDate validates and zero-pads the components. Returns "" for
// impossible dates (month 13, day 32).
func formatDate(year, month, day string) string {
	y, errY := strconv.Atoi(year)
	mo, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return ""
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return ""
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 → Mar 2); reject those.
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return ""
	}
	return t.Format("2006-01-02")
}
