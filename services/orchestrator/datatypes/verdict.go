// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "strings"

// Conclusion is the closed verdict label set.
type Conclusion string

const (
	ConclusionTrue       Conclusion = "TRUE"
	ConclusionFalse      Conclusion = "FALSE"
	ConclusionMisleading Conclusion = "MISLEADING"
	ConclusionUnverified Conclusion = "UNVERIFIED"
)

// ParseConclusion maps model output onto the label set, defaulting to
// UNVERIFIED for anything unrecognized.
func ParseConclusion(s string) Conclusion {
	switch Conclusion(strings.ToUpper(strings.TrimSpace(s))) {
	case ConclusionTrue:
		return ConclusionTrue
	case ConclusionFalse:
		return ConclusionFalse
	case ConclusionMisleading:
		return ConclusionMisleading
	default:
		return ConclusionUnverified
	}
}

// Verdict is the final typed answer returned to the caller. It is always
// well-formed: pipeline failures surface as UNVERIFIED with an explanatory
// Reason, never as an error at the RPC boundary.
type Verdict struct {
	Conclusion         Conclusion `json:"conclusion"`
	Reason             string     `json:"reason"`
	StyleAnalysis      string     `json:"style_analysis,omitempty"`
	KeyEvidenceSnippet string     `json:"key_evidence_snippet"`
	KeyEvidenceSource  string     `json:"key_evidence_source"`
	Cached             bool       `json:"cached"`
	Confidence         *float64   `json:"confidence,omitempty"`
}
