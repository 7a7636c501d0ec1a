// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package synthesizer turns an evidence bundle into the final Verdict.
// It never returns an error to its caller: when every model fails it
// degrades to a deterministic heuristic and answers UNVERIFIED at worst.
package synthesizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/llm"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/planner"
	"github.com/factlens/factlens/services/orchestrator/prompt"
)

var tracer = otel.Tracer("factlens.orchestrator.synthesizer")

// Trim caps keep the rendered prompt inside provider context budgets.
const (
	maxL1Entries  = 3
	maxL2Entries  = 5
	maxL3Entries  = 5
	maxL4Entries  = 2
	maxSnippetLen = 280
)

// FeedbackHinter matches the planner's prompt-injection surface.
type FeedbackHinter interface {
	Hints(ctx context.Context, claim string) string
}

// Synthesizer renders the verdict prompt and parses the model's answer.
type Synthesizer struct {
	gateway  *llm.Gateway
	prompts  *prompt.Registry
	feedback FeedbackHinter
	chain    []llm.ModelRef
	timeout  time.Duration
}

// New wires a Synthesizer with the default reasoning chain.
func New(gateway *llm.Gateway, prompts *prompt.Registry, feedback FeedbackHinter) *Synthesizer {
	return &Synthesizer{
		gateway:  gateway,
		prompts:  prompts,
		feedback: feedback,
		chain:    llm.DefaultSynthesizerChain(),
		timeout:  llm.DefaultTimeout,
	}
}

// Synthesize produces the verdict for a claim given its evidence.
func (s *Synthesizer) Synthesize(ctx context.Context, claim string, bundle *datatypes.EvidenceBundle, currentDate string) datatypes.Verdict {
	ctx, span := tracer.Start(ctx, "synthesizer.Synthesize")
	defer span.End()

	trimmed := Trim(bundle)

	bundleJSON, err := json.Marshal(trimmed)
	if err != nil {
		slog.Error("Evidence bundle did not marshal", "error", err)
		return s.heuristic(trimmed, "evidence could not be serialized")
	}

	vars := map[string]string{
		"claim":                claim,
		"current_date":         currentDate,
		"evidence_bundle_json": string(bundleJSON),
		"feedback":             s.feedbackBlock(ctx, claim),
	}
	text, err := s.prompts.Render(prompt.SynthesizerPrompt, vars)
	if err != nil {
		slog.Error("Synthesizer prompt unavailable", "error", err)
		return s.heuristic(trimmed, "verdict prompt unavailable")
	}

	params := llm.GenerationParams{SafetyOff: true}
	out, err := s.gateway.GenerateWithFallback(ctx, s.chain, text, params, s.timeout)
	if err != nil {
		slog.Warn("All synthesizer models failed", "error", err)
		span.SetAttributes(attribute.Bool("synthesizer.heuristic", true))
		return s.heuristic(trimmed, "all language models were unavailable")
	}

	verdict, ok := parseVerdict(out)
	if !ok {
		slog.Warn("Synthesizer response held no parseable verdict")
		span.SetAttributes(attribute.Bool("synthesizer.heuristic", true))
		return s.heuristic(trimmed, "model output was not a valid verdict")
	}
	span.SetAttributes(attribute.String("verdict.conclusion", string(verdict.Conclusion)))
	return verdict
}

func (s *Synthesizer) feedbackBlock(ctx context.Context, claim string) string {
	if s.feedback == nil {
		return ""
	}
	return s.feedback.Hints(ctx, claim)
}

// parseVerdict extracts and decodes the first JSON object of model output.
func parseVerdict(out string) (datatypes.Verdict, bool) {
	obj := planner.ExtractJSONObject(out)
	if obj == "" {
		return datatypes.Verdict{}, false
	}

	var raw struct {
		Conclusion         string   `json:"conclusion"`
		Reason             string   `json:"reason"`
		StyleAnalysis      string   `json:"style_analysis"`
		KeyEvidenceSnippet string   `json:"key_evidence_snippet"`
		KeyEvidenceSource  string   `json:"key_evidence_source"`
		Confidence         *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return datatypes.Verdict{}, false
	}
	if strings.TrimSpace(raw.Conclusion) == "" || strings.TrimSpace(raw.Reason) == "" {
		return datatypes.Verdict{}, false
	}
	if raw.Confidence != nil && (*raw.Confidence < 0 || *raw.Confidence > 1) {
		raw.Confidence = nil
	}

	return datatypes.Verdict{
		Conclusion:         datatypes.ParseConclusion(raw.Conclusion),
		Reason:             raw.Reason,
		StyleAnalysis:      raw.StyleAnalysis,
		KeyEvidenceSnippet: raw.KeyEvidenceSnippet,
		KeyEvidenceSource:  raw.KeyEvidenceSource,
		Cached:             false,
		Confidence:         raw.Confidence,
	}, true
}

// heuristic is the no-model fallback: corroborated high-trust evidence or
// a successful structured reading can still support TRUE; anything less
// is UNVERIFIED.
func (s *Synthesizer) heuristic(bundle *datatypes.EvidenceBundle, cause string) datatypes.Verdict {
	if len(bundle.L2) >= 2 {
		top := bundle.L2[0]
		return datatypes.Verdict{
			Conclusion:         datatypes.ConclusionTrue,
			Reason:             fmt.Sprintf("Multiple high-trust sources corroborate the claim (%s).", cause),
			KeyEvidenceSnippet: top.Snippet,
			KeyEvidenceSource:  top.SourceDomain,
		}
	}
	if reading := bundle.SuccessfulWeather(); reading != nil {
		return datatypes.Verdict{
			Conclusion: datatypes.ConclusionTrue,
			Reason: fmt.Sprintf("The structured weather reading for %s supports the claim (%s).",
				reading.Location, cause),
			KeyEvidenceSnippet: reading.Description,
			KeyEvidenceSource:  reading.Source,
		}
	}
	return datatypes.Verdict{
		Conclusion: datatypes.ConclusionUnverified,
		Reason:     fmt.Sprintf("No sufficient evidence could be evaluated: %s.", cause),
	}
}

// =============================================================================
// Trimming
// =============================================================================

// Trim returns a copy of the bundle capped per tier, with snippets
// whitespace-collapsed and cut to the snippet budget. The input bundle is
// left untouched.
func Trim(bundle *datatypes.EvidenceBundle) *datatypes.EvidenceBundle {
	out := datatypes.NewEvidenceBundle()

	for i, r := range bundle.L1 {
		if i >= maxL1Entries {
			break
		}
		out.AddStructured(r)
	}
	for _, item := range capItems(bundle.L2, maxL2Entries) {
		out.Add(item)
	}
	for _, item := range capItems(bundle.L3, maxL3Entries) {
		out.Add(item)
	}
	for _, item := range capItems(bundle.L4, maxL4Entries) {
		out.Add(item)
	}
	return out
}

func capItems(items []datatypes.EvidenceItem, limit int) []datatypes.EvidenceItem {
	out := make([]datatypes.EvidenceItem, 0, limit)
	for i, item := range items {
		if i >= limit {
			break
		}
		item.Snippet = truncateSnippet(item.Snippet)
		item.FullText = "" // full text never travels into the prompt
		out = append(out, item)
	}
	return out
}

// truncateSnippet counts runes, not bytes, so multi-byte text is never
// cut mid-character.
func truncateSnippet(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxSnippetLen {
		return collapsed
	}
	return string(runes[:maxSnippetLen])
}
