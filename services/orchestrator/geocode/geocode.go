// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package geocode resolves free-form place names to coordinates through
// an OpenStreetMap-style search endpoint, with a process-wide append-only
// cache.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("factlens.orchestrator.geocode")

const (
	defaultEndpoint  = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "factlens-orchestrator/1.0"
	defaultTimeout   = 10 * time.Second
)

// Location is a resolved place.
type Location struct {
	CanonicalName string  `json:"canonical_name"`
	EnglishName   string  `json:"english_name"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// Resolver geocodes place names. Safe for concurrent use; resolved names
// are cached for the life of the process and never expire.
type Resolver struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]*Location
}

// NewResolver reads GEOCODE_ENDPOINT and GEOCODE_TIMEOUT_SECONDS from the
// environment, logging the defaults it falls back to.
func NewResolver() *Resolver {
	endpoint := os.Getenv("GEOCODE_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
		slog.Info("GEOCODE_ENDPOINT not set, using default", "endpoint", endpoint)
	}

	timeout := defaultTimeout
	if raw := os.Getenv("GEOCODE_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		} else {
			slog.Warn("Invalid GEOCODE_TIMEOUT_SECONDS, using default",
				"value", raw, "default", defaultTimeout)
		}
	}

	return &Resolver{
		endpoint:   endpoint,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[string]*Location),
	}
}

// nominatimResult is the subset of the search response we read.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	NameDetails struct {
		NameEN string `json:"name:en"`
		Name   string `json:"name"`
	} `json:"namedetails"`
}

// Resolve maps a place name to a Location. The strategy cascades: exact
// query, then the name with a ", city" hint, then top-1 of a relaxed
// multi-result query. Failures (timeout, service error, no coordinates)
// return nil rather than an error so callers degrade gracefully.
func (r *Resolver) Resolve(ctx context.Context, name string) *Location {
	ctx, span := tracer.Start(ctx, "geocode.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("geocode.query", name))

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}

	r.mu.Lock()
	if loc, ok := r.cache[key]; ok {
		r.mu.Unlock()
		span.SetAttributes(attribute.Bool("geocode.cache_hit", true))
		return loc
	}
	r.mu.Unlock()

	loc := r.lookup(ctx, key, 1)
	if loc == nil {
		loc = r.lookup(ctx, key+", city", 1)
	}
	if loc == nil {
		loc = r.lookup(ctx, key, 5)
	}

	if loc != nil {
		r.mu.Lock()
		r.cache[key] = loc
		r.mu.Unlock()
	}
	return loc
}

func (r *Resolver) lookup(ctx context.Context, query string, limit int) *Location {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("namedetails", "1")
	params.Set("accept-language", "en")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		slog.Warn("Failed to build geocoding request", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Warn("Geocoding request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("Geocoding service returned non-200",
			"query", query, "status", resp.StatusCode, "body", string(body))
		return nil
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		slog.Warn("Failed to decode geocoding response", "query", query, "error", err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	top := results[0]
	lat, errLat := strconv.ParseFloat(top.Lat, 64)
	lon, errLon := strconv.ParseFloat(top.Lon, 64)
	if errLat != nil || errLon != nil {
		// A hit without usable coordinates is no hit at all.
		return nil
	}

	english := top.NameDetails.NameEN
	if english == "" {
		english = top.NameDetails.Name
	}
	if english == "" {
		english = firstSegment(top.DisplayName)
	}

	return &Location{
		CanonicalName: top.DisplayName,
		EnglishName:   english,
		Lat:           lat,
		Lon:           lon,
	}
}

// CacheSize reports the number of resolved names held.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func firstSegment(displayName string) string {
	if i := strings.Index(displayName, ","); i > 0 {
		return strings.TrimSpace(displayName[:i])
	}
	return strings.TrimSpace(displayName)
}

// String implements fmt.Stringer for log readability.
func (l *Location) String() string {
	if l == nil {
		return "<unresolved>"
	}
	return fmt.Sprintf("%s (%.2f, %.2f)", l.EnglishName, l.Lat, l.Lon)
}
