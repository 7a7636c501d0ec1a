// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/factlens/factlens/pkg/validation"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/pipeline"
)

// HandleCheckClaim verifies one claim through the full pipeline.
// Invalid input fails fast with 400 before any network call.
func HandleCheckClaim(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: claim is required"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: claim is required"})
			return
		}
		req.Claim = strings.TrimSpace(req.Claim)
		if err := validation.ValidateClaim(req.Claim); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Received claim check request",
			"claim_length", len(req.Claim),
			"flash_mode", req.FlashMode,
			"unlimit_mode", req.UnlimitMode,
		)

		verdict := p.Check(c.Request.Context(), req.Claim, pipeline.Options{
			FlashMode:   req.FlashMode,
			UnlimitMode: req.UnlimitMode,
			ModelAlias:  req.ModelAlias,
		})
		c.JSON(http.StatusOK, verdict)
	}
}
