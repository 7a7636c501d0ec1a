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
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/rank"
)

const (
	wikipediaDefaultBase = "https://en.wikipedia.org"
	wikiSearchLimit      = 3

	// Extract chunking keeps any single FullText under prompt budgets.
	wikiChunkSize    = 1200
	wikiChunkOverlap = 100

	// wikiSnippetRunes caps the snippet in runes so multi-byte extracts
	// stay valid UTF-8.
	wikiSnippetRunes = 500
)

// WikipediaProvider looks claims up against the Wikipedia REST API:
// title search first, then the page summary for each hit. Long extracts
// are split and only the leading chunk is carried as full text.
type WikipediaProvider struct {
	baseURL    string
	httpClient *http.Client
	splitter   textsplitter.TextSplitter
}

func NewWikipediaProvider() *WikipediaProvider {
	baseURL := os.Getenv("WIKIPEDIA_BASE_URL")
	if baseURL == "" {
		baseURL = wikipediaDefaultBase
	}
	return &WikipediaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultProviderTimeout},
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(wikiChunkSize),
			textsplitter.WithChunkOverlap(wikiChunkOverlap),
		),
	}
}

func (w *WikipediaProvider) Name() string { return "wikipedia" }

type wikiSearchResponse struct {
	Pages []struct {
		Title   string `json:"title"`
		Key     string `json:"key"`
		Excerpt string `json:"excerpt"`
	} `json:"pages"`
}

type wikiSummaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
	Timestamp string `json:"timestamp"`
}

// Search implements the Provider interface.
func (w *WikipediaProvider) Search(ctx context.Context, query string) ([]datatypes.EvidenceItem, error) {
	searchURL := fmt.Sprintf("%s/w/rest.php/v1/search/page?q=%s&limit=%d",
		w.baseURL, url.QueryEscape(query), wikiSearchLimit)

	var found wikiSearchResponse
	if err := w.getJSON(ctx, searchURL, &found); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	var items []datatypes.EvidenceItem
	for _, page := range found.Pages {
		item, err := w.summarize(ctx, page.Key)
		if err != nil {
			slog.Debug("Wikipedia summary fetch failed", "page", page.Key, "error", err)
			continue
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (w *WikipediaProvider) summarize(ctx context.Context, key string) (*datatypes.EvidenceItem, error) {
	summaryURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", w.baseURL, url.PathEscape(key))

	var summary wikiSummaryResponse
	if err := w.getJSON(ctx, summaryURL, &summary); err != nil {
		return nil, err
	}
	if strings.TrimSpace(summary.Extract) == "" {
		return nil, nil
	}

	pageURL := summary.ContentURLs.Desktop.Page
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/wiki/%s", w.baseURL, url.PathEscape(key))
	}

	fullText := summary.Extract
	if len(fullText) > wikiChunkSize {
		chunks, err := w.splitter.SplitText(fullText)
		if err == nil && len(chunks) > 0 {
			fullText = chunks[0]
		}
	}

	snippet := summary.Extract
	if runes := []rune(snippet); len(runes) > wikiSnippetRunes {
		snippet = string(runes[:wikiSnippetRunes])
	}

	meta := map[string]string{}
	if summary.Timestamp != "" {
		meta["publishedAt"] = summary.Timestamp
	}

	return &datatypes.EvidenceItem{
		SourceDomain: rank.Host(pageURL),
		URL:          pageURL,
		Title:        summary.Title,
		Snippet:      snippet,
		Date:         rank.ExtractDate(meta, pageURL, ""),
		FullText:     fullText,
	}, nil
}

func (w *WikipediaProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("wikipedia returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
