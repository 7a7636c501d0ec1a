// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

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

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/rank"
)

const webDefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// WebProvider queries a Brave-shaped web search endpoint.
type WebProvider struct {
	endpoint   string
	apiKey     string
	count      int
	httpClient *http.Client
}

// NewWebProvider reads BRAVE_API_KEY (or the container secret) and
// WEB_SEARCH_ENDPOINT. Returns nil when no key is configured.
func NewWebProvider() *WebProvider {
	apiKey := apiKeyFromEnv("BRAVE_API_KEY", "brave_api_key")
	if apiKey == "" {
		slog.Info("BRAVE_API_KEY not set, web search provider disabled")
		return nil
	}
	endpoint := os.Getenv("WEB_SEARCH_ENDPOINT")
	if endpoint == "" {
		endpoint = webDefaultEndpoint
	}
	return &WebProvider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		count:      10,
		httpClient: &http.Client{Timeout: defaultProviderTimeout},
	}
}

func (w *WebProvider) Name() string { return "web" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
			Age         string `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements the Provider interface.
func (w *WebProvider) Search(ctx context.Context, query string) ([]datatypes.EvidenceItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(w.count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building web search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading web search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding web search response: %w", err)
	}

	items := make([]datatypes.EvidenceItem, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if r.URL == "" {
			continue
		}
		meta := map[string]string{}
		if r.PageAge != "" {
			meta["publishedAt"] = r.PageAge
		}
		items = append(items, datatypes.EvidenceItem{
			SourceDomain: rank.Host(r.URL),
			URL:          r.URL,
			Title:        r.Title,
			Snippet:      r.Description,
			Date:         rank.ExtractDate(meta, r.URL, r.Description),
		})
	}
	return items, nil
}
