// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for the service
// boundary.
//
// This package contains validators for user-provided inputs that reach
// LLM prompts, search queries, or subprocess calls. Validating at the
// boundary keeps length limits and character checks in one place.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxClaimLength bounds a single claim. Longer texts are documents, not
// claims, and blow up the planner prompt.
const MaxClaimLength = 1000

// ValidateClaim checks a claim string before it enters the pipeline.
//
// Valid claims:
//   - non-empty after whitespace trimming
//   - valid UTF-8
//   - at most MaxClaimLength runes
//
// Example:
//
//	if err := validation.ValidateClaim(claim); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateClaim(claim string) error {
	trimmed := strings.TrimSpace(claim)
	if trimmed == "" {
		return fmt.Errorf("claim cannot be empty")
	}
	if !utf8.ValidString(trimmed) {
		return fmt.Errorf("claim contains invalid UTF-8")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxClaimLength {
		return fmt.Errorf("claim is too long: %d runes (max %d)", n, MaxClaimLength)
	}
	return nil
}

// isoDatePattern matches a strict YYYY-MM-DD date.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateISODate checks a user-supplied date string. An empty string is
// valid (the field is optional everywhere it appears).
func ValidateISODate(date string) error {
	if date == "" {
		return nil
	}
	if !isoDatePattern.MatchString(date) {
		return fmt.Errorf("invalid date format: %q (must be YYYY-MM-DD)", date)
	}
	return nil
}

// cityPattern rejects characters that have no business in a place name
// before it reaches the geocoder or a subprocess argument.
var cityPattern = regexp.MustCompile(`^[\p{L}\p{M}0-9 .,'\-]{1,80}$`)

// ValidateCityName checks a free-form city name.
func ValidateCityName(city string) error {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return fmt.Errorf("city cannot be empty")
	}
	if !cityPattern.MatchString(trimmed) {
		return fmt.Errorf("invalid city name: %q", city)
	}
	return nil
}
