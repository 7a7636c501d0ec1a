// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// VectorIndex is a SQLite-backed ANN index over claim embeddings, using
// the sqlite-vec extension's vec_distance_cosine. One row per record id;
// the companion record store owns everything but the vector.
type VectorIndex struct {
	db *sql.DB
	mu sync.RWMutex
}

// VectorMatch is one nearest-neighbor hit.
type VectorMatch struct {
	ID         string
	Similarity float64
}

// OpenVectorIndex opens (or creates) the index file.
func OpenVectorIndex(path string) (*VectorIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening vector index %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying vector index: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		id        TEXT PRIMARY KEY,
		embedding BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vectors table: %w", err)
	}
	return &VectorIndex{db: db}, nil
}

// Upsert stores a vector under an id, replacing any previous vector.
func (x *VectorIndex) Upsert(id string, embedding []float32) error {
	if len(embedding) != EmbeddingDim {
		return fmt.Errorf("embedding has dimension %d, want %d", len(embedding), EmbeddingDim)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	blob, err := encodeFloat32SliceToBlob(embedding)
	if err != nil {
		return err
	}
	_, err = x.db.Exec(
		`INSERT INTO vectors (id, embedding) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding`,
		id, blob)
	if err != nil {
		return fmt.Errorf("upserting vector %s: %w", id, err)
	}
	return nil
}

// Search returns the topK nearest ids by cosine similarity, descending.
func (x *VectorIndex) Search(embedding []float32, topK int) ([]VectorMatch, error) {
	if len(embedding) != EmbeddingDim {
		return nil, fmt.Errorf("query embedding has dimension %d, want %d", len(embedding), EmbeddingDim)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	blob, err := encodeFloat32SliceToBlob(embedding)
	if err != nil {
		return nil, err
	}

	rows, err := x.db.Query(`
		SELECT id, vec_distance_cosine(embedding, ?) AS distance
		FROM vectors
		ORDER BY distance ASC
		LIMIT ?`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("scanning vector match: %w", err)
		}
		matches = append(matches, VectorMatch{ID: id, Similarity: 1.0 - distance})
	}
	return matches, rows.Err()
}

// Delete removes a vector by id. Missing ids are not an error.
func (x *VectorIndex) Delete(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, err := x.db.Exec(`DELETE FROM vectors WHERE id = ?`, id)
	return err
}

// Count returns the number of stored vectors.
func (x *VectorIndex) Count() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var n int
	err := x.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (x *VectorIndex) Close() error {
	return x.db.Close()
}

// encodeFloat32SliceToBlob encodes a float32 slice as the little-endian
// binary blob sqlite-vec expects.
func encodeFloat32SliceToBlob(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("encoding embedding blob: %w", err)
	}
	return buf.Bytes(), nil
}
