// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package executor runs a plan's tool calls concurrently and assembles
// the tiered evidence bundle.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/rank"
	"github.com/factlens/factlens/services/orchestrator/search"
	"github.com/factlens/factlens/services/orchestrator/weather"
)

var tracer = otel.Tracer("factlens.orchestrator.executor")

const (
	// defaultTaskTimeout bounds one tool call (one search fan-out or one
	// weather lookup).
	defaultTaskTimeout = 30 * time.Second

	// defaultGlobalBudget bounds the whole plan execution.
	defaultGlobalBudget = 90 * time.Second
)

var snippetDataPoint = regexp.MustCompile(`\d{1,3}\s?(?:°C|mm|%)`)

// WeatherAPI is the structured weather surface the executor needs;
// satisfied by *weather.Provider.
type WeatherAPI interface {
	Current(ctx context.Context, city string) (*datatypes.WeatherReading, error)
	Forecast(ctx context.Context, city, targetDate string, part datatypes.PartOfDay) (*datatypes.WeatherReading, error)
	Historical(ctx context.Context, city, date string) (*datatypes.WeatherReading, error)
}

// WeatherFallback is the last-resort local helper tried when the API
// fails; satisfied by CLIFallback.
type WeatherFallback interface {
	Lookup(ctx context.Context, params datatypes.WeatherParams) (*datatypes.WeatherReading, error)
}

// Executor fans a plan out across providers and merges results into an
// EvidenceBundle.
type Executor struct {
	providers    []search.Provider
	weatherAPI   WeatherAPI
	weatherCLI   WeatherFallback
	taskTimeout  time.Duration
	globalBudget time.Duration
}

// New builds an Executor over the given search providers. Nil providers
// in the slice are skipped, so constructors that return nil on missing
// keys can be passed straight in.
func New(providers []search.Provider, weatherAPI WeatherAPI, weatherCLI WeatherFallback) *Executor {
	var kept []search.Provider
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Executor{
		providers:    kept,
		weatherAPI:   weatherAPI,
		weatherCLI:   weatherCLI,
		taskTimeout:  defaultTaskTimeout,
		globalBudget: defaultGlobalBudget,
	}
}

// Execute runs every tool call of the plan concurrently under the
// global deadline. Search calls fan out across all providers in
// parallel; failures are logged and omitted rather than surfaced, so
// the bundle is always best-effort. The plan is enriched in place with
// entities the tools discovered.
func (e *Executor) Execute(ctx context.Context, plan *datatypes.Plan) *datatypes.EvidenceBundle {
	ctx, span := tracer.Start(ctx, "executor.Execute")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.globalBudget)
	defer cancel()

	bundle := datatypes.NewEvidenceBundle()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, tc := range plan.RequiredTools {
		switch tc.Name {
		case datatypes.ToolSearch:
			if tc.Search != nil {
				queries := tc.Search.Queries
				g.Go(func() error {
					e.runSearchTask(gctx, queries, bundle, &mu)
					return nil
				})
			}
		case datatypes.ToolWeather:
			if tc.Weather != nil {
				params := *tc.Weather
				g.Go(func() error {
					result := e.runWeatherTask(gctx, params)
					mu.Lock()
					bundle.AddStructured(result)
					mu.Unlock()
					return nil
				})
			}
		}
	}
	_ = g.Wait()

	// Last line of defense: one consolidated search over everything the
	// plan wanted, only when the primary fan-out produced nothing at all.
	if bundle.IsEmpty() {
		if queries := plan.SearchQueries(); len(queries) > 0 {
			slog.Info("Evidence bundle empty after fan-out, running fallback sweep")
			e.runSearchTask(ctx, queries, bundle, &mu)
		}
	}

	bundle.SortTiersByDate()
	e.enrich(plan, bundle)

	span.SetAttributes(
		attribute.Int("evidence.l1", len(bundle.L1)),
		attribute.Int("evidence.l2", len(bundle.L2)),
		attribute.Int("evidence.l3", len(bundle.L3)),
		attribute.Int("evidence.l4", len(bundle.L4)),
	)
	return bundle
}

// runSearchTask queries every provider for every query concurrently.
// Item ordering stays deterministic: results are collected per slot and
// merged in (query, provider) order, so concurrency never reorders ties.
func (e *Executor) runSearchTask(ctx context.Context, queries []string, bundle *datatypes.EvidenceBundle, mu *sync.Mutex) {
	ctx, span := tracer.Start(ctx, "executor.searchTask")
	defer span.End()
	span.SetAttributes(attribute.Int("search.query_count", len(queries)))

	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	slots := make([][]datatypes.EvidenceItem, len(queries)*len(e.providers))
	g, gctx := errgroup.WithContext(taskCtx)

	for qi, query := range queries {
		for pi, provider := range e.providers {
			slot := qi*len(e.providers) + pi
			g.Go(func() error {
				items, err := provider.Search(gctx, query)
				if err != nil {
					slog.Warn("Search provider failed",
						"provider", provider.Name(), "query", query, "error", err)
					return nil // siblings continue
				}
				slots[slot] = items
				return nil
			})
		}
	}
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, items := range slots {
		for _, item := range items {
			item.RankScore = rank.Rank(item.URL)
			if item.Date == "" {
				item.Date = rank.ExtractDate(nil, item.URL, item.Snippet)
			}
			bundle.Add(item)
		}
	}
}

// runWeatherTask resolves one weather call into an L1 entry, trying the
// API first and the local CLI helper second.
func (e *Executor) runWeatherTask(ctx context.Context, params datatypes.WeatherParams) datatypes.StructuredResult {
	ctx, span := tracer.Start(ctx, "executor.weatherTask")
	defer span.End()

	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	if params.CityCanonical == "" {
		return datatypes.StructuredResult{
			Tool:   datatypes.ToolWeather,
			Status: datatypes.StructuredInvalidLocation,
			Detail: "no resolvable city in claim",
		}
	}

	reading, err := e.queryWeather(taskCtx, params)
	if err != nil && e.weatherCLI != nil && !errors.Is(err, weather.ErrHistoricalDateRequired) {
		slog.Warn("Weather API failed, trying CLI fallback", "error", err)
		if cliReading, cliErr := e.weatherCLI.Lookup(taskCtx, params); cliErr == nil {
			reading, err = cliReading, nil
		}
	}

	if err != nil {
		return datatypes.StructuredResult{
			Tool:   datatypes.ToolWeather,
			Status: statusForWeatherError(err),
			Detail: err.Error(),
		}
	}
	return datatypes.StructuredResult{
		Tool:    datatypes.ToolWeather,
		Status:  datatypes.StructuredSuccess,
		Reading: reading,
	}
}

func (e *Executor) queryWeather(ctx context.Context, params datatypes.WeatherParams) (*datatypes.WeatherReading, error) {
	if e.weatherAPI == nil {
		return nil, fmt.Errorf("no weather provider configured: %w", weather.ErrNoData)
	}
	switch {
	case params.DaysAhead != nil && *params.DaysAhead < 0:
		return e.weatherAPI.Historical(ctx, params.CityCanonical, params.Date)
	case params.DaysAhead != nil && *params.DaysAhead > 0:
		return e.weatherAPI.Forecast(ctx, params.CityCanonical, params.Date, params.PartOfDay)
	case params.Date != "" && params.Date < time.Now().UTC().Format("2006-01-02"):
		return e.weatherAPI.Historical(ctx, params.CityCanonical, params.Date)
	case params.Date != "" && params.Date > time.Now().UTC().Format("2006-01-02"):
		return e.weatherAPI.Forecast(ctx, params.CityCanonical, params.Date, params.PartOfDay)
	default:
		return e.weatherAPI.Current(ctx, params.CityCanonical)
	}
}

func statusForWeatherError(err error) datatypes.StructuredStatus {
	switch {
	case errors.Is(err, weather.ErrInvalidLocation):
		return datatypes.StructuredInvalidLocation
	case errors.Is(err, weather.ErrHistoricalDateRequired):
		return datatypes.StructuredHistoricalDateReqd
	case errors.Is(err, weather.ErrNoData):
		return datatypes.StructuredNoData
	default:
		return datatypes.StructuredAPIError
	}
}

// enrich back-annotates the plan with facts the tools discovered: the
// canonical city from a successful weather reading, and numeric data
// points surfaced in trusted snippets.
func (e *Executor) enrich(plan *datatypes.Plan, bundle *datatypes.EvidenceBundle) {
	if reading := bundle.SuccessfulWeather(); reading != nil {
		plan.Entities.Locations = appendUnique(plan.Entities.Locations, reading.Location)
	}
	for _, tier := range [][]datatypes.EvidenceItem{bundle.L2, bundle.L3} {
		for _, item := range tier {
			for _, dp := range snippetDataPoint.FindAllString(item.Snippet, -1) {
				plan.Entities.DataPoints = appendUnique(plan.Entities.DataPoints, dp)
			}
		}
	}
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
