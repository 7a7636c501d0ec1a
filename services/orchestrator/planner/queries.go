// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/factlens/factlens/services/orchestrator/classifier"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// boundedQueryCap is the query list limit outside unlimit mode.
const boundedQueryCap = 5

var (
	sensationalPrefix = regexp.MustCompile(`(?i)^(?:\W|\s)*(?:breaking|urgent|shocking|hot|nong|khan cap|soc)[:!\s]+`)
	leadingEmoji      = regexp.MustCompile(`^[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\s]+`)
	fourDigitYear     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	eventVerbs        = regexp.MustCompile(`(?i)\b(launched|released|announced|happened|occurred|won|signed|died|elected|ra mat|cong bo|xay ra|qua doi|phat hanh)\b`)
	conflictTerms     = regexp.MustCompile(`(?i)\b(war|attack|invasion|airstrike|bombing|conflict|chien tranh|tan cong|xung dot|khong kich)\b`)
	vietnameseMarker  = regexp.MustCompile(`[ăâđêôơưĂÂĐÊÔƠƯàáạảãèéẹẻẽìíịỉĩòóọỏõùúụủũỳýỵỷỹ]`)
)

// BuildQueries synthesizes the ordered, deduplicated search query list
// for a claim. The raw claim is always the first entry. In bounded mode
// the list is capped at five; unlimit mode keeps everything.
func BuildQueries(claim string, plan *datatypes.Plan, now time.Time, unlimit bool) []string {
	raw := strings.Join(strings.Fields(claim), " ")
	year := now.Year()
	isVietnamese := vietnameseMarker.MatchString(claim)

	newsKeyword := "news"
	if isVietnamese {
		newsKeyword = "tin tức"
	}

	var queries []string
	add := func(q string) {
		q = optimizeQuery(q)
		if q != "" {
			queries = append(queries, q)
		}
	}

	// The raw claim always leads, untouched beyond whitespace
	// normalization. Derived queries get the sensational-prefix strip;
	// the stripped claim itself rides second (deduped when identical).
	if raw != "" {
		queries = append(queries, raw)
	}
	add(raw)
	add(raw + " " + newsKeyword)

	if plan.MainClaim != "" && !strings.EqualFold(plan.MainClaim, raw) {
		add(plan.MainClaim)
	}

	if eventVerbs.MatchString(raw) && !fourDigitYear.MatchString(raw) {
		add(fmt.Sprintf("%s %d", raw, year))
	}

	for i, loc := range plan.Entities.Locations {
		if i >= 3 {
			break
		}
		add(raw + " " + loc)
	}

	if len(plan.Entities.Organizations) > 0 {
		add(fmt.Sprintf("%s %d", plan.Entities.Organizations[0], year))
	}
	if len(plan.Entities.Events) > 0 {
		add(plan.Entities.Events[0])
	}

	if conflictTerms.MatchString(raw) {
		for i, loc := range plan.Entities.Locations {
			if i >= 1 {
				break
			}
			add("situation in " + loc)
			add("conflict " + loc + " latest")
		}
	}

	deduped := dedupe(queries)
	if !unlimit && len(deduped) > boundedQueryCap {
		deduped = deduped[:boundedQueryCap]
	}
	return deduped
}

// optimizeQuery strips sensational lead-ins and emoji from a query.
func optimizeQuery(q string) string {
	q = leadingEmoji.ReplaceAllString(q, "")
	q = sensationalPrefix.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

func dedupe(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	var out []string
	for _, q := range queries {
		key := classifier.Fold(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
