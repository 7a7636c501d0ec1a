// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rank classifies evidence sources into trust scores and extracts
// publication dates from item metadata.
//
// Scoring is a pure function of the URL. The built-in domain lists can be
// extended (not replaced) from a YAML file, so deployments can add local
// tabloids or known propaganda hosts without a rebuild.
package rank

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trust scores. Binary today: the thresholds used for tier mapping
// (>0.9 → L2, >0.5 → L3) leave room for finer classes.
const (
	ScoreBlocked = 0.1
	ScoreUsable  = 0.8

	// ScoreFactCheck marks results from registered fact-check publishers,
	// which clear the high-trust (L2) threshold.
	ScoreFactCheck = 0.95
)

// =============================================================================
// Domain lists
// =============================================================================

var socialDomains = map[string]bool{
	"facebook.com": true, "twitter.com": true, "x.com": true,
	"instagram.com": true, "tiktok.com": true, "youtube.com": true,
	"threads.net": true, "weibo.com": true, "t.me": true, "telegram.org": true,
	"zalo.me": true, "pinterest.com": true, "snapchat.com": true,
}

var blogPlatforms = map[string]bool{
	"blogspot.com": true, "wordpress.com": true, "medium.com": true,
	"tumblr.com": true, "substack.com": true, "wix.com": true,
	"weebly.com": true, "livejournal.com": true, "over-blog.com": true,
}

var forumHosts = map[string]bool{
	"reddit.com": true, "quora.com": true, "voz.vn": true,
	"webtretho.com": true, "tinhte.vn": true, "otofun.net": true,
	"4chan.org": true, "stackexchange.com": true,
}

var tabloidDomains = map[string]bool{
	"dailymail.co.uk": true, "thesun.co.uk": true, "mirror.co.uk": true,
	"nypost.com": true, "express.co.uk": true, "dailystar.co.uk": true,
}

var lowTrustDomains = map[string]bool{
	"infowars.com": true, "naturalnews.com": true, "beforeitsnews.com": true,
	"worldtruth.tv": true, "yournewswire.com": true, "newspunch.com": true,
	"sputnikglobe.com": true, "rt.com": true,
}

var suspiciousTLDs = []string{
	".xyz", ".top", ".click", ".online", ".site", ".buzz", ".icu",
	".live", ".loan", ".work", ".rest", ".win",
}

// knownBrands feed the impersonation check: a host on a suspicious TLD
// that embeds one of these names is scored as blocked.
var knownBrands = []string{
	"bbc", "cnn", "reuters", "nytimes", "vnexpress", "tuoitre", "thanhnien",
	"vietnamnet", "dantri", "guardian", "washingtonpost", "apnews", "afp",
	"nhandan", "vtv",
}

// factCheckPublishers earn the high-trust score.
var factCheckPublishers = map[string]bool{
	"snopes.com": true, "politifact.com": true, "factcheck.org": true,
	"fullfact.org": true, "afp.com": true, "factcheck.afp.com": true,
	"apnews.com": true, "reuters.com": true, "leadstories.com": true,
	"factcheckvietnam.vn": true,
}

// listOverrides is the YAML shape accepted by LoadOverrides. All lists
// are additive.
type listOverrides struct {
	Social     []string `yaml:"social"`
	Blogs      []string `yaml:"blogs"`
	Forums     []string `yaml:"forums"`
	Tabloids   []string `yaml:"tabloids"`
	LowTrust   []string `yaml:"low_trust"`
	TLDs       []string `yaml:"suspicious_tlds"`
	FactCheck  []string `yaml:"fact_check"`
	BrandNames []string `yaml:"brands"`
}

// LoadOverrides merges additional domains from a YAML file into the
// built-in lists. Call once during startup, before any Rank call.
func LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading domain overrides: %w", err)
	}
	var o listOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parsing domain overrides: %w", err)
	}
	addAll := func(set map[string]bool, items []string) {
		for _, d := range items {
			set[strings.ToLower(strings.TrimSpace(d))] = true
		}
	}
	addAll(socialDomains, o.Social)
	addAll(blogPlatforms, o.Blogs)
	addAll(forumHosts, o.Forums)
	addAll(tabloidDomains, o.Tabloids)
	addAll(lowTrustDomains, o.LowTrust)
	addAll(factCheckPublishers, o.FactCheck)
	suspiciousTLDs = append(suspiciousTLDs, o.TLDs...)
	knownBrands = append(knownBrands, o.BrandNames...)
	slog.Info("Loaded source ranking overrides", "path", path)
	return nil
}

// =============================================================================
// Scoring
// =============================================================================

// Rank scores a URL into a trust class. Pure: same URL, same score.
// Membership in blocked sets is closed under subdomain prefixing
// (m.facebook.com is blocked because facebook.com is).
func Rank(rawURL string) float64 {
	host := Host(rawURL)
	if host == "" {
		return ScoreBlocked
	}

	if inSetWithSubdomains(host, factCheckPublishers) {
		return ScoreFactCheck
	}

	if inSetWithSubdomains(host, socialDomains) ||
		inSetWithSubdomains(host, blogPlatforms) ||
		inSetWithSubdomains(host, forumHosts) ||
		inSetWithSubdomains(host, tabloidDomains) ||
		inSetWithSubdomains(host, lowTrustDomains) {
		return ScoreBlocked
	}

	if hasSuspiciousTLD(host) {
		// Any suspicious TLD is blocked outright; embedding a known brand
		// name there is the impersonation pattern and equally blocked.
		return ScoreBlocked
	}

	return ScoreUsable
}

// IsImpersonation reports whether a host matches the brand-impersonation
// pattern: suspicious TLD and a well-known publisher name embedded.
func IsImpersonation(rawURL string) bool {
	host := Host(rawURL)
	if host == "" || !hasSuspiciousTLD(host) {
		return false
	}
	for _, brand := range knownBrands {
		if strings.Contains(host, brand) {
			return true
		}
	}
	return false
}

// Host extracts the lowercased host from a URL, tolerating scheme-less
// input and stripping any www prefix and port.
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func inSetWithSubdomains(host string, set map[string]bool) bool {
	if set[host] {
		return true
	}
	for domain := range set {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hasSuspiciousTLD(host string) bool {
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}
