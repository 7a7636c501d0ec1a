// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/factlens/factlens/services/orchestrator/feedback"
	"github.com/factlens/factlens/services/orchestrator/handlers"
	"github.com/factlens/factlens/services/orchestrator/middleware"
	"github.com/factlens/factlens/services/orchestrator/observability"
	"github.com/factlens/factlens/services/orchestrator/pipeline"
)

// SetupRoutes wires all HTTP endpoints onto the router. Health and
// metrics stay open; the /v1 surface honors the optional API key.
func SetupRoutes(router *gin.Engine, p *pipeline.Pipeline, store *feedback.Store,
	metrics *observability.Metrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.RequireAPIKey(middleware.APIKeyFromEnv()))
	{
		v1.POST("/claims/check", handlers.HandleCheckClaim(p))
		v1.POST("/feedback", handlers.HandleFeedback(store, metrics))
	}
}
