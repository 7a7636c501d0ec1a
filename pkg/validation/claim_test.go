// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestValidateClaim(t *testing.T) {
	tests := []struct {
		name    string
		claim   string
		wantErr bool
	}{
		{"simple claim", "It rained in Hanoi yesterday", false},
		{"vietnamese claim", "Trời mưa ở Hà Nội hôm qua", false},
		{"surrounding whitespace", "  valid claim  ", false},
		{"empty", "", true},
		{"whitespace only", "   \t\n  ", true},
		{"invalid utf8", "claim \xff\xfe", true},
		{"at the length limit", strings.Repeat("a", MaxClaimLength), false},
		{"over the length limit", strings.Repeat("a", MaxClaimLength+1), true},
		{"multibyte runes count as one", strings.Repeat("ư", MaxClaimLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClaim(tt.claim)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateClaim() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateISODate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"", false}, // optional everywhere it appears
		{"2026-08-24", false},
		{"2026-8-24", true},
		{"24-08-2026", true},
		{"2026/08/24", true},
		{"yesterday", true},
		{"2026-08-24T00:00:00Z", true},
	}

	for _, tt := range tests {
		err := ValidateISODate(tt.date)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateISODate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
		}
	}
}

func TestValidateCityName(t *testing.T) {
	tests := []struct {
		city    string
		wantErr bool
	}{
		{"Hanoi", false},
		{"Hà Nội", false},
		{"Buôn Ma Thuột", false},
		{"St. John's", false},
		{"Val-d'Or", false},
		{"", true},
		{"   ", true},
		{"city; rm -rf /", true},
		{"city$(whoami)", true},
		{strings.Repeat("a", 81), true},
	}

	for _, tt := range tests {
		err := ValidateCityName(tt.city)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateCityName(%q) error = %v, wantErr %v", tt.city, err, tt.wantErr)
		}
	}
}
