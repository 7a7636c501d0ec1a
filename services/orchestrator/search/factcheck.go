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

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/rank"
)

const factCheckDefaultEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

// FactCheckProvider queries a Google Fact Check Tools shaped
// claims:search endpoint. Reviews from registered publishers carry the
// publisher's verdict wording in the snippet, which the synthesizer can
// quote directly.
type FactCheckProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewFactCheckProvider reads FACTCHECK_API_KEY (or the container secret).
// Returns nil when no key is configured.
func NewFactCheckProvider() *FactCheckProvider {
	apiKey := apiKeyFromEnv("FACTCHECK_API_KEY", "factcheck_api_key")
	if apiKey == "" {
		slog.Info("FACTCHECK_API_KEY not set, fact-check provider disabled")
		return nil
	}
	endpoint := os.Getenv("FACTCHECK_ENDPOINT")
	if endpoint == "" {
		endpoint = factCheckDefaultEndpoint
	}
	return &FactCheckProvider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultProviderTimeout},
	}
}

func (f *FactCheckProvider) Name() string { return "factcheck" }

type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// Search implements the Provider interface.
func (f *FactCheckProvider) Search(ctx context.Context, query string) ([]datatypes.EvidenceItem, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", f.apiKey)
	params.Set("languageCode", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building fact-check request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fact-check request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fact-check response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fact-check provider returned status %d", resp.StatusCode)
	}

	var parsed factCheckResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding fact-check response: %w", err)
	}

	var items []datatypes.EvidenceItem
	for _, claim := range parsed.Claims {
		for _, review := range claim.ClaimReview {
			if review.URL == "" {
				continue
			}
			snippet := claim.Text
			if review.TextualRating != "" {
				snippet = fmt.Sprintf("%s — rated %q by %s",
					claim.Text, review.TextualRating, review.Publisher.Name)
			}
			meta := map[string]string{}
			if review.ReviewDate != "" {
				meta["publishedAt"] = review.ReviewDate
			} else if claim.ClaimDate != "" {
				meta["publishedAt"] = claim.ClaimDate
			}
			items = append(items, datatypes.EvidenceItem{
				SourceDomain: rank.Host(review.URL),
				URL:          review.URL,
				Title:        review.Title,
				Snippet:      snippet,
				Date:         rank.ExtractDate(meta, review.URL, ""),
			})
		}
	}
	return items, nil
}
