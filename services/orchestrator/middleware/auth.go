// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the orchestrator
// service boundary.
//
// # Authentication
//
// The orchestrator runs open by default so a local deployment needs no
// auth infrastructure. Setting FACTLENS_API_KEY (or the container secret
// factlens_api_key) switches the /v1 surface to bearer-token
// authentication:
//
//	Authorization: Bearer <key>
//
// Health and metrics endpoints stay open either way; probes and
// scrapers do not carry credentials.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyFromEnv reads the configured API key, with the container-secret
// fallback used throughout the service. Empty means open access.
func APIKeyFromEnv() string {
	if key := os.Getenv("FACTLENS_API_KEY"); key != "" {
		return key
	}
	if content, err := os.ReadFile("/run/secrets/factlens_api_key"); err == nil {
		return strings.TrimSpace(string(content))
	}
	return ""
}

// RequireAPIKey creates a middleware that rejects requests whose bearer
// token does not match the configured key. An empty key disables the
// check entirely.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		token := extractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// extractBearerToken parses "Authorization: Bearer <token>", returning
// "" when the header is missing or malformed. The scheme name is
// case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
