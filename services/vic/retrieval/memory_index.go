// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is an exact-scan ChunkIndex for lightweight mode and tests.
// It computes true cosine distances, so ranking matches the Weaviate index
// on the same data.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
	// vectors[i] corresponds to chunks[i]; nil means no embedding.
	vectors [][]float32
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends a chunk with its embedding. A nil vector excludes the chunk
// from vector candidates but keeps it keyword-searchable.
func (m *MemoryIndex) Add(chunk Chunk, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunk)
	m.vectors = append(m.vectors, vector)
}

// Len reports how many chunks are indexed.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *MemoryIndex) VectorCandidates(ctx context.Context, vector []float32, topN int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]VectorHit, 0, len(m.chunks))
	for i, c := range m.chunks {
		if m.vectors[i] == nil {
			continue
		}
		hits = append(hits, VectorHit{Chunk: c, Distance: cosineDistance(vector, m.vectors[i])})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (m *MemoryIndex) KeywordCandidates(ctx context.Context, phrase, firstToken string, cap int) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Chunk, 0, cap)
	for _, c := range m.chunks {
		content := strings.ToLower(c.Content)
		title := strings.ToLower(c.Title)
		if strings.Contains(content, phrase) ||
			strings.Contains(title, phrase) ||
			(firstToken != "" && strings.Contains(title, firstToken)) {
			out = append(out, c)
			if len(out) == cap {
				break
			}
		}
	}
	return out, nil
}

// cosineDistance returns 1 - cosineSimilarity. Zero-magnitude vectors are
// treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
