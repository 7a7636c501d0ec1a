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

const newsDefaultEndpoint = "https://newsapi.org/v2/everything"

// NewsProvider queries a NewsAPI-shaped /v2/everything endpoint.
type NewsProvider struct {
	endpoint   string
	apiKey     string
	pageSize   int
	httpClient *http.Client
}

// NewNewsProvider reads NEWS_API_KEY (or the container secret) and
// NEWS_API_ENDPOINT. Returns nil when no key is configured so callers can
// skip the provider cleanly.
func NewNewsProvider() *NewsProvider {
	apiKey := apiKeyFromEnv("NEWS_API_KEY", "news_api_key")
	if apiKey == "" {
		slog.Info("NEWS_API_KEY not set, news provider disabled")
		return nil
	}
	endpoint := os.Getenv("NEWS_API_ENDPOINT")
	if endpoint == "" {
		endpoint = newsDefaultEndpoint
	}
	return &NewsProvider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		pageSize:   10,
		httpClient: &http.Client{Timeout: defaultProviderTimeout},
	}
}

func (n *NewsProvider) Name() string { return "news" }

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Search implements the Provider interface.
func (n *NewsProvider) Search(ctx context.Context, query string) ([]datatypes.EvidenceItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", strconv.Itoa(n.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building news request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading news response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news provider returned status %d", resp.StatusCode)
	}

	var parsed newsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding news response: %w", err)
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("news provider error %s: %s", parsed.Code, parsed.Message)
	}

	items := make([]datatypes.EvidenceItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.URL == "" {
			continue
		}
		meta := map[string]string{}
		if a.PublishedAt != "" {
			meta["publishedAt"] = a.PublishedAt
		}
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		items = append(items, datatypes.EvidenceItem{
			SourceDomain: rank.Host(a.URL),
			URL:          a.URL,
			Title:        a.Title,
			Snippet:      snippet,
			Date:         rank.ExtractDate(meta, a.URL, snippet),
		})
	}
	return items, nil
}
