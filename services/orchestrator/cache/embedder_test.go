// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	out := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	in := []float32{0, 0, 0}
	out := Normalize(in)
	assert.Equal(t, in, out, "zero vectors pass through")
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "some claim", req.Text)

		vec := make([]float32, EmbeddingDim)
		vec[0] = 2 // non-unit on purpose: the client normalizes
		json.NewEncoder(w).Encode(embedResponse{Embedding: vec})
	}))
	defer server.Close()
	t.Setenv("EMBEDDING_SERVICE_URL", server.URL)

	out, err := NewHTTPEmbedder().Embed(context.Background(), "some claim")
	require.NoError(t, err)
	require.Len(t, out, EmbeddingDim)
	assert.InDelta(t, 1.0, out[0], 1e-6, "client must normalize the vector")
}

func TestHTTPEmbedder_RejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer server.Close()
	t.Setenv("EMBEDDING_SERVICE_URL", server.URL)

	_, err := NewHTTPEmbedder().Embed(context.Background(), "claim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("want %d", EmbeddingDim))
}

func TestHTTPEmbedder_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	t.Setenv("EMBEDDING_SERVICE_URL", server.URL)

	_, err := NewHTTPEmbedder().Embed(context.Background(), "claim")
	assert.Error(t, err)
}
