// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search holds the evidence-source adapters: news search, general
// web search, Wikipedia lookup, and the fact-check registry. Each adapter
// normalizes provider responses into EvidenceItems; ranking and tiering
// happen downstream in the executor.
package search

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// Provider is one evidence source. Implementations are safe for
// concurrent use and own their HTTP clients and timeouts.
type Provider interface {
	// Name identifies the adapter in logs and metrics.
	Name() string

	// Search returns normalized items for one query. An empty slice with a
	// nil error means the provider had nothing; errors are for transport
	// and auth failures.
	Search(ctx context.Context, query string) ([]datatypes.EvidenceItem, error)
}

const defaultProviderTimeout = 15 * time.Second

// Available builds every provider whose environment is configured, in
// fixed priority order: fact-check first, then news, web, and Wikipedia.
// Constructors return typed nils when disabled, so the checks here keep
// typed nils out of the interface slice.
func Available() []Provider {
	var providers []Provider
	if p := NewFactCheckProvider(); p != nil {
		providers = append(providers, p)
	}
	if p := NewNewsProvider(); p != nil {
		providers = append(providers, p)
	}
	if p := NewWebProvider(); p != nil {
		providers = append(providers, p)
	}
	if p := NewWikipediaProvider(); p != nil {
		providers = append(providers, p)
	}
	return providers
}

// apiKeyFromEnv reads a key from the environment with a container-secret
// fallback, returning "" when neither exists.
func apiKeyFromEnv(envVar, secretName string) string {
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	if content, err := os.ReadFile("/run/secrets/" + secretName); err == nil {
		return strings.TrimSpace(string(content))
	}
	return ""
}
