// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Request bodies for the public HTTP API, with structural validation.
// Content-level claim checks (length, UTF-8) live in pkg/validation and
// run at the handler after binding.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxNotesBytes bounds free-form feedback notes. Byte length, not runes:
// the limit exists to cap payload size.
const MaxNotesBytes = 4 * 1024

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("verdictlabel", validateVerdictLabel)
	_ = requestValidate.RegisterValidation("notesbytes", validateNotesBytes)
}

// validateVerdictLabel accepts the closed label set, case-insensitively.
func validateVerdictLabel(fl validator.FieldLevel) bool {
	switch Conclusion(strings.ToUpper(strings.TrimSpace(fl.Field().String()))) {
	case ConclusionTrue, ConclusionFalse, ConclusionMisleading, ConclusionUnverified:
		return true
	}
	return false
}

func validateNotesBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxNotesBytes
}

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	Claim       string `json:"claim" validate:"required"`
	FlashMode   bool   `json:"flash_mode"`
	UnlimitMode bool   `json:"unlimit_mode"`
	ModelAlias  string `json:"model_alias" validate:"omitempty,max=64"`
}

// Validate checks the structural constraints after JSON binding.
func (r *CheckRequest) Validate() error {
	return requestValidate.Struct(r)
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	Claim           string `json:"claim" validate:"required"`
	SystemVerdict   string `json:"system_verdict" validate:"required,verdictlabel"`
	HumanCorrection string `json:"human_correction" validate:"required,verdictlabel"`
	Notes           string `json:"notes" validate:"omitempty,notesbytes"`
}

// Validate checks the structural constraints after JSON binding.
func (r *FeedbackRequest) Validate() error {
	return requestValidate.Struct(r)
}
