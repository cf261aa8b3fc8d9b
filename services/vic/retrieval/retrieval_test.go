// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T, idx ChunkIndex) *Searcher {
	t.Helper()
	s, err := NewSearcher(idx, DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestSearch_RanksByCombinedScore(t *testing.T) {
	idx := NewMemoryIndex()
	// Same embedding direction so vector scores are equal; keyword tiers
	// decide the order.
	idx.Add(Chunk{ID: "a", Title: "Random notes", Content: "the royal aquarium opened in 1876"}, []float32{1, 0})
	idx.Add(Chunk{ID: "b", Title: "the royal aquarium", Content: "nothing relevant"}, []float32{1, 0})
	idx.Add(Chunk{ID: "c", Title: "the strangest places", Content: "nothing relevant"}, []float32{1, 0})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "the royal aquarium", []float32{1, 0}, 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, 0.30, results[0].KeywordScore)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.Equal(t, 0.25, results[1].KeywordScore)
	assert.Equal(t, "c", results[2].Chunk.ID)
	assert.Equal(t, 0.10, results[2].KeywordScore)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
	}
}

func TestSearch_TypeBoosts(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(Chunk{ID: "series", Title: "Vic Keegan's Lost London 101: Thorney Island", Content: "thorney island"}, []float32{1, 0})
	idx.Add(Chunk{ID: "article", Title: "Thorney Island", Content: "thorney island", SourceType: "article"}, []float32{1, 0})
	idx.Add(Chunk{ID: "plain", Title: "Thorney Island notes", Content: "thorney island"}, []float32{1, 0})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "thorney island", []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]ScoredCandidate{}
	for _, r := range results {
		byID[r.Chunk.ID] = r
	}
	assert.Equal(t, 0.10, byID["series"].TypeBoost)
	assert.Equal(t, 0.05, byID["article"].TypeBoost)
	assert.Equal(t, 0.0, byID["plain"].TypeBoost)
	assert.Equal(t, "series", results[0].Chunk.ID)
}

func TestSearch_QualificationRule(t *testing.T) {
	idx := NewMemoryIndex()
	// Orthogonal vector, no keyword overlap: must be excluded even though
	// it would earn a source type boost.
	idx.Add(Chunk{ID: "boost-only", Title: "Unrelated", Content: "unrelated", SourceType: "article"}, nil)
	// No embedding at all, but a keyword match qualifies it.
	idx.Add(Chunk{ID: "kw-only", Title: "Tyburn gallows", Content: "the tyburn tree stood here"}, nil)
	// Vector hit with no keyword overlap still qualifies.
	idx.Add(Chunk{ID: "vec-only", Title: "Marble Arch", Content: "marble arch history"}, []float32{1, 0})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "tyburn", []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []string{results[0].Chunk.ID, results[1].Chunk.ID}
	assert.Contains(t, ids, "kw-only")
	assert.Contains(t, ids, "vec-only")
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(Chunk{ID: "a", Title: "tyburn one", Content: "tyburn"}, []float32{1, 0})
	idx.Add(Chunk{ID: "b", Title: "tyburn two", Content: "tyburn"}, []float32{0.9, 0.1})
	idx.Add(Chunk{ID: "c", Title: "tyburn three", Content: "tyburn"}, []float32{0.5, 0.5})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "tyburn", []float32{1, 0}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_ScoreBounds(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(Chunk{
		ID:         "max",
		Title:      "Vic Keegan's Lost London 1: tyburn",
		Content:    "tyburn",
		SourceType: "article",
	}, []float32{1, 0})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "tyburn", []float32{1, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.GreaterOrEqual(t, r.CombinedScore, 0.0)
	assert.LessOrEqual(t, r.CombinedScore, 1.05)
	// Perfect vector match, body phrase match, high trust title.
	assert.InDelta(t, 0.6*1+0.4*0.30+0.10, r.CombinedScore, 1e-9)
}

func TestSearch_NegativeSimilarityClamped(t *testing.T) {
	idx := NewMemoryIndex()
	// Opposed vector gives cosine distance 2; the score clamps at 0
	// instead of going negative.
	idx.Add(Chunk{ID: "opposed", Title: "tyburn", Content: "tyburn"}, []float32{-1, 0})

	s := newTestSearcher(t, idx)
	results, err := s.Search(context.Background(), "tyburn", []float32{1, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].VectorScore)
}

func TestSearch_NoQualifyingCandidates(t *testing.T) {
	idx := NewMemoryIndex()
	s := newTestSearcher(t, idx)

	results, err := s.Search(context.Background(), "anything", []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewSearcher_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighTrustTitlePattern = "("
	_, err := NewSearcher(NewMemoryIndex(), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.VectorTopN = 0
	_, err = NewSearcher(NewMemoryIndex(), cfg)
	assert.Error(t, err)
}
