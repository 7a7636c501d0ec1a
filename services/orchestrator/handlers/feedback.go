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

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/feedback"
	"github.com/factlens/factlens/services/orchestrator/observability"
)

// HandleFeedback records a human correction. Append-only: corrections
// are never edited or deleted through the API.
func HandleFeedback(store *feedback.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: claim, system_verdict, and human_correction are required"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: claim, system_verdict, and human_correction are required"})
			return
		}
		if strings.TrimSpace(req.Claim) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "claim must not be empty"})
			return
		}

		entry := datatypes.FeedbackEntry{
			OriginalClaim:   strings.TrimSpace(req.Claim),
			SystemVerdict:   datatypes.ParseConclusion(req.SystemVerdict),
			HumanCorrection: datatypes.ParseConclusion(req.HumanCorrection),
			Notes:           req.Notes,
		}
		if err := store.Add(c.Request.Context(), entry); err != nil {
			slog.Error("Failed to record feedback", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record feedback"})
			return
		}
		if metrics != nil {
			metrics.FeedbackEntriesTotal.Inc()
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
