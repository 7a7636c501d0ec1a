// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package planner turns a raw claim into a typed verification Plan by
// combining the deterministic classifier, the geocoder, and an LLM call
// through the model gateway's fallback chain.
package planner

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/llm"
	"github.com/factlens/factlens/services/orchestrator/classifier"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/geocode"
	"github.com/factlens/factlens/services/orchestrator/prompt"
)

var tracer = otel.Tracer("factlens.orchestrator.planner")

// dataPointPattern extracts unit-bearing numeric literals from raw claims.
var dataPointPattern = regexp.MustCompile(`\d{1,3}\s?(?:°C|mm|%)`)

// Options tune a single planning request.
type Options struct {
	// FlashMode disables per-call LLM timeouts for latency-insensitive
	// batch runs.
	FlashMode bool

	// UnlimitMode lifts the five-query cap and appends the unlimit prompt
	// suffix.
	UnlimitMode bool

	// ModelAlias overrides the head of the fallback chain when set.
	ModelAlias string
}

// FeedbackHinter supplies formatted past-correction summaries for prompt
// injection. Implemented by the feedback store; a nil hinter means no
// injection.
type FeedbackHinter interface {
	Hints(ctx context.Context, claim string) string
}

// Planner produces verification plans.
type Planner struct {
	gateway  *llm.Gateway
	prompts  *prompt.Registry
	resolver *geocode.Resolver
	feedback FeedbackHinter
	chain    []llm.ModelRef
	timeout  time.Duration
}

// New wires a Planner with the default fallback chain and timeout.
func New(gateway *llm.Gateway, prompts *prompt.Registry, resolver *geocode.Resolver, feedback FeedbackHinter) *Planner {
	return &Planner{
		gateway:  gateway,
		prompts:  prompts,
		resolver: resolver,
		feedback: feedback,
		chain:    llm.DefaultPlannerChain(),
		timeout:  llm.DefaultTimeout,
	}
}

// Plan builds the verification plan for a claim. The LLM proposes a
// draft; Normalize then enforces the schema invariants against the
// deterministic classifier, so a garbage model response still yields a
// usable plan.
func (p *Planner) Plan(ctx context.Context, claim string, opts Options) datatypes.Plan {
	ctx, span := tracer.Start(ctx, "planner.Plan")
	defer span.End()

	now := time.Now()
	cls := classifier.Classify(claim)
	span.SetAttributes(
		attribute.Bool("claim.is_weather", cls.IsWeather),
		attribute.Bool("claim.common_knowledge", cls.IsCommonKnowledge),
	)

	draft := p.draftFromModel(ctx, claim, opts, now)
	plan := p.Normalize(ctx, draft, claim, cls, now, opts.UnlimitMode)

	if err := plan.Validate(); err != nil {
		// Normalize guarantees validity for all inputs; a failure here is
		// a programming error worth surfacing loudly.
		slog.Error("Normalized plan failed validation", "error", err, "claim", claim)
	}
	return plan
}

// draftFromModel runs the planning prompt through the fallback chain and
// decodes whatever JSON comes back. All failures collapse to an empty
// draft, which Normalize can fully reconstruct.
func (p *Planner) draftFromModel(ctx context.Context, claim string, opts Options, now time.Time) datatypes.Plan {
	vars := map[string]string{
		"claim":        claim,
		"current_date": now.Format("2006-01-02"),
		"feedback":     p.feedbackBlock(ctx, claim),
	}
	text, err := p.prompts.Render(prompt.PlannerPrompt, vars)
	if err != nil {
		slog.Error("Planner prompt unavailable", "error", err)
		return datatypes.Plan{}
	}
	if opts.UnlimitMode {
		text += p.prompts.Get(prompt.UnlimitSuffix)
	}

	chain := p.chain
	if opts.ModelAlias != "" {
		resolved := llm.Resolve(opts.ModelAlias)
		chain = append([]llm.ModelRef{{Provider: llm.ProviderFor(resolved), Model: resolved}}, chain...)
	}
	timeout := p.timeout
	if opts.FlashMode {
		timeout = 0
	}

	out, err := p.gateway.GenerateWithFallback(ctx, chain, text, llm.GenerationParams{}, timeout)
	if err != nil {
		slog.Warn("All planner models failed, using classifier-only plan", "error", err)
		return datatypes.Plan{}
	}

	obj := ExtractJSONObject(out)
	if obj == "" {
		slog.Warn("Planner response held no JSON object")
		return datatypes.Plan{}
	}
	draft, err := datatypes.DecodePlan([]byte(obj))
	if err != nil {
		slog.Warn("Planner JSON did not decode", "error", err)
		return datatypes.Plan{}
	}
	return draft
}

func (p *Planner) feedbackBlock(ctx context.Context, claim string) string {
	if p.feedback == nil {
		return ""
	}
	return p.feedback.Hints(ctx, claim)
}

// Normalize repairs a draft plan into a valid one. Idempotent: feeding
// its own output back (same claim, same clock date) changes nothing.
func (p *Planner) Normalize(ctx context.Context, draft datatypes.Plan, claim string, cls classifier.Classification, now time.Time, unlimit bool) datatypes.Plan {
	plan := draft

	if plan.MainClaim == "" {
		plan.MainClaim = strings.Join(strings.Fields(claim), " ")
	}
	if plan.ClaimType == "" {
		plan.ClaimType = datatypes.ClaimTypeGeneral
	}
	if plan.Volatility == "" {
		plan.Volatility = datatypes.VolatilityMedium
	}
	if plan.TopicCategory == "" {
		plan.TopicCategory = "general"
	}
	if plan.TimeReferences.TimeScope == "" {
		plan.TimeReferences.TimeScope = cls.TimeScope
	}
	if plan.TimeReferences.RelativeTime == "" {
		plan.TimeReferences.RelativeTime = cls.RelativeTime
	}

	// Historical and settled claims cannot change truth value.
	if cls.IsCommonKnowledge ||
		plan.TimeReferences.TimeScope == datatypes.TimeScopePast ||
		classifier.IsHistoricalClaimType(string(plan.ClaimType)) {
		plan.Volatility = datatypes.VolatilityLow
	}

	plan.Entities.DataPoints = unionStrings(
		plan.Entities.DataPoints, dataPointPattern.FindAllString(claim, -1))

	if cls.IsWeather {
		p.normalizeWeather(ctx, &plan, cls, now)
		return plan
	}

	// Non-weather plans carry exactly one broad search call; any tool
	// calls the model drafted (weather included) are superseded here.
	queries := BuildQueries(claim, &plan, now, unlimit)
	plan.RequiredTools = []datatypes.ToolCall{
		datatypes.NewSearchCall(queries, datatypes.SearchBroad),
	}
	return plan
}

func (p *Planner) normalizeWeather(ctx context.Context, plan *datatypes.Plan, cls classifier.Classification, now time.Time) {
	plan.ClaimType = datatypes.ClaimTypeWeather
	plan.Volatility = datatypes.VolatilityHigh

	params := datatypes.WeatherParams{}
	if wc := plan.WeatherCall(); wc != nil && wc.Weather != nil {
		params = *wc.Weather
	}

	// The deterministic parse of the raw claim wins over the model's guess.
	if cls.DaysAhead != nil {
		params.DaysAhead = cls.DaysAhead
	}
	if cls.PartOfDay != "" {
		params.PartOfDay = cls.PartOfDay
	}

	city := params.CityCanonical
	if city == "" {
		city = cls.CityCandidate
	}
	if city != "" && p.resolver != nil {
		if loc := p.resolver.Resolve(ctx, city); loc != nil {
			city = loc.EnglishName
		}
	}
	params.CityCanonical = city

	if params.Date == "" && params.DaysAhead != nil {
		params.Date = now.AddDate(0, 0, *params.DaysAhead).Format("2006-01-02")
	}

	plan.RequiredTools = []datatypes.ToolCall{datatypes.NewWeatherCall(params)}
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, s := range extra {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
