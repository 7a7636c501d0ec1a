// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"
)

func TestCheckRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CheckRequest
		wantErr bool
	}{
		{"minimal", CheckRequest{Claim: "it rained"}, false},
		{"with options", CheckRequest{Claim: "it rained", FlashMode: true, ModelAlias: "flash"}, false},
		{"missing claim", CheckRequest{FlashMode: true}, true},
		{"overlong alias", CheckRequest{Claim: "c", ModelAlias: strings.Repeat("m", 65)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedbackRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     FeedbackRequest
		wantErr bool
	}{
		{"well formed", FeedbackRequest{Claim: "c", SystemVerdict: "FALSE", HumanCorrection: "TRUE"}, false},
		{"case insensitive labels", FeedbackRequest{Claim: "c", SystemVerdict: "false", HumanCorrection: " True "}, false},
		{"with notes", FeedbackRequest{Claim: "c", SystemVerdict: "TRUE", HumanCorrection: "MISLEADING", Notes: "context"}, false},
		{"missing correction", FeedbackRequest{Claim: "c", SystemVerdict: "TRUE"}, true},
		{"missing claim", FeedbackRequest{SystemVerdict: "TRUE", HumanCorrection: "FALSE"}, true},
		{"unknown label", FeedbackRequest{Claim: "c", SystemVerdict: "PROBABLY", HumanCorrection: "TRUE"}, true},
		{"oversized notes", FeedbackRequest{Claim: "c", SystemVerdict: "TRUE", HumanCorrection: "FALSE",
			Notes: strings.Repeat("n", MaxNotesBytes+1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
