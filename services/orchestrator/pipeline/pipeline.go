// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline wires the verification stages end to end:
// cache lookup → planner → tool executor → synthesizer → conditional
// cache insert.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/orchestrator/cache"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/executor"
	"github.com/factlens/factlens/services/orchestrator/observability"
	"github.com/factlens/factlens/services/orchestrator/planner"
	"github.com/factlens/factlens/services/orchestrator/synthesizer"
)

var tracer = otel.Tracer("factlens.orchestrator.pipeline")

// Options are per-request pipeline switches, passed through to the
// planner.
type Options struct {
	FlashMode   bool
	UnlimitMode bool
	ModelAlias  string

	// SkipCache bypasses both cache lookup and insert; the refresher uses
	// it to avoid reading the entry it is about to rewrite.
	SkipCache bool
}

// Pipeline executes the full verification flow for one claim.
type Pipeline struct {
	cache       *cache.SemanticCache
	planner     *planner.Planner
	executor    *executor.Executor
	synthesizer *synthesizer.Synthesizer
	metrics     *observability.Metrics
}

// New assembles a pipeline. cache may be nil (cache disabled).
func New(c *cache.SemanticCache, p *planner.Planner, e *executor.Executor, s *synthesizer.Synthesizer, m *observability.Metrics) *Pipeline {
	return &Pipeline{cache: c, planner: p, executor: e, synthesizer: s, metrics: m}
}

// Check verifies one claim. The returned Verdict is always well-formed:
// total failure degrades to UNVERIFIED with an explanatory reason.
func (p *Pipeline) Check(ctx context.Context, claim string, opts Options) datatypes.Verdict {
	ctx, span := tracer.Start(ctx, "pipeline.Check")
	defer span.End()
	start := time.Now()

	claim = strings.TrimSpace(claim)
	if claim == "" {
		// No network, no models: reject at the boundary.
		return datatypes.Verdict{
			Conclusion: datatypes.ConclusionUnverified,
			Reason:     "The claim is empty; there is nothing to verify.",
		}
	}

	if p.cache != nil && !opts.SkipCache {
		if verdict, err := p.cache.Lookup(ctx, claim); err != nil {
			slog.Warn("Cache lookup failed, continuing without cache", "error", err)
		} else if verdict != nil {
			span.SetAttributes(attribute.Bool("pipeline.cache_hit", true))
			p.metrics.ObserveCheck("cache_hit", string(verdict.Conclusion), time.Since(start))
			return *verdict
		}
	}

	plan := p.planner.Plan(ctx, claim, planner.Options{
		FlashMode:   opts.FlashMode,
		UnlimitMode: opts.UnlimitMode,
		ModelAlias:  opts.ModelAlias,
	})
	span.SetAttributes(
		attribute.String("plan.claim_type", string(plan.ClaimType)),
		attribute.String("plan.volatility", string(plan.Volatility)),
	)

	bundle := p.executor.Execute(ctx, &plan)

	currentDate := time.Now().UTC().Format("2006-01-02")
	verdict := p.synthesizer.Synthesize(ctx, claim, bundle, currentDate)

	if p.cache != nil && !opts.SkipCache {
		// Insert off the request path; the caller never blocks on it.
		go p.insertAsync(claim, verdict, plan)
	}

	p.metrics.ObserveCheck("full_run", string(verdict.Conclusion), time.Since(start))
	return verdict
}

// RefreshFunc adapts the pipeline for the background cache refresher.
func (p *Pipeline) RefreshFunc() cache.RefreshFunc {
	return func(ctx context.Context, claim string) (datatypes.Verdict, error) {
		return p.Check(ctx, claim, Options{SkipCache: true}), nil
	}
}

func (p *Pipeline) insertAsync(claim string, verdict datatypes.Verdict, plan datatypes.Plan) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.cache.Insert(ctx, claim, verdict, plan.Volatility, plan.TopicCategory); err != nil {
		slog.Warn("Cache insert failed", "error", err)
	}
}
