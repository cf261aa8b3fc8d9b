// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval ranks knowledge chunks for a query by combining
// vector similarity with tiered literal keyword matching.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("vic/retrieval")

// Chunk is one retrievable unit of source material.
type Chunk struct {
	ID         string
	Title      string
	Content    string
	SourceType string
}

// VectorHit pairs a chunk with its cosine distance from the query vector.
type VectorHit struct {
	Chunk    Chunk
	Distance float64
}

// ChunkIndex abstracts the store the searcher ranks over. Implementations
// return raw candidates; all scoring happens in the Searcher so that the
// Weaviate-backed and in-memory indexes rank identically.
type ChunkIndex interface {
	// VectorCandidates returns the topN chunks nearest to the vector,
	// ordered by ascending distance.
	VectorCandidates(ctx context.Context, vector []float32, topN int) ([]VectorHit, error)
	// KeywordCandidates returns chunks whose content or title could
	// literal-match the phrase or whose title contains the first token.
	// Over-returning is fine; the searcher re-scores every candidate.
	KeywordCandidates(ctx context.Context, phrase, firstToken string, cap int) ([]Chunk, error)
}

// Config holds the ranking weights. The defaults are the ones the rest of
// the pipeline is tuned against; change them together with the confidence
// thresholds downstream.
type Config struct {
	VectorTopN    int     `yaml:"vector_top_n"`
	VectorWeight  float64 `yaml:"vector_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`

	PhraseBodyTier  float64 `yaml:"phrase_body_tier"`
	PhraseTitleTier float64 `yaml:"phrase_title_tier"`
	TokenTitleTier  float64 `yaml:"token_title_tier"`

	// HighTrustTitlePattern marks titles from the curated article series.
	HighTrustTitlePattern string  `yaml:"high_trust_title_pattern"`
	HighTrustBoost        float64 `yaml:"high_trust_boost"`
	PreferredSourceType   string  `yaml:"preferred_source_type"`
	SourceTypeBoost       float64 `yaml:"source_type_boost"`

	// KeywordCap bounds how many keyword candidates the index may return.
	KeywordCap int `yaml:"keyword_cap"`
}

// DefaultConfig returns the production ranking weights.
func DefaultConfig() Config {
	return Config{
		VectorTopN:            50,
		VectorWeight:          0.6,
		KeywordWeight:         0.4,
		PhraseBodyTier:        0.30,
		PhraseTitleTier:       0.25,
		TokenTitleTier:        0.10,
		HighTrustTitlePattern: `(?i)^vic keegan.*lost london`,
		HighTrustBoost:        0.10,
		PreferredSourceType:   "article",
		SourceTypeBoost:       0.05,
		KeywordCap:            200,
	}
}

// ScoredCandidate is one ranked result with its score breakdown.
type ScoredCandidate struct {
	Chunk         Chunk
	VectorScore   float64
	KeywordScore  float64
	TypeBoost     float64
	CombinedScore float64
}

// Searcher ranks chunks from a ChunkIndex. Safe for concurrent use.
type Searcher struct {
	index       ChunkIndex
	cfg         Config
	highTrustRe *regexp.Regexp
}

// NewSearcher validates the config and builds a Searcher.
func NewSearcher(index ChunkIndex, cfg Config) (*Searcher, error) {
	if index == nil {
		return nil, fmt.Errorf("retrieval: index is required")
	}
	if cfg.VectorTopN <= 0 {
		return nil, fmt.Errorf("retrieval: vector_top_n must be positive, got %d", cfg.VectorTopN)
	}
	re, err := regexp.Compile(cfg.HighTrustTitlePattern)
	if err != nil {
		return nil, fmt.Errorf("retrieval: compile high trust title pattern: %w", err)
	}
	return &Searcher{index: index, cfg: cfg, highTrustRe: re}, nil
}

// Search returns up to limit candidates ordered by descending combined
// score.
//
// # Description
//
// Vector and keyword candidates are fetched concurrently and merged by
// chunk ID. A chunk qualifies when it is among the top-N nearest vectors
// or has a nonzero keyword score; a type boost alone never qualifies a
// chunk. similarityThreshold is accepted for caller compatibility but
// does not gate inclusion; callers filter post-hoc when they need a hard
// cutoff. An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, queryText string, vector []float32, limit int, similarityThreshold float64) ([]ScoredCandidate, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search")
	defer span.End()
	_ = similarityThreshold

	phrase := strings.ToLower(strings.TrimSpace(queryText))
	firstToken := ""
	if fields := strings.Fields(phrase); len(fields) > 0 {
		firstToken = fields[0]
	}

	var (
		vectorHits  []VectorHit
		keywordHits []Chunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.index.VectorCandidates(gctx, vector, s.cfg.VectorTopN)
		if err != nil {
			return fmt.Errorf("vector candidates: %w", err)
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		if phrase == "" {
			return nil
		}
		hits, err := s.index.KeywordCandidates(gctx, phrase, firstToken, s.cfg.KeywordCap)
		if err != nil {
			return fmt.Errorf("keyword candidates: %w", err)
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge preserving first-seen order so the final sort is stable
	// against insertion order.
	type merged struct {
		chunk       Chunk
		vectorScore float64
		inVectorSet bool
	}
	order := make([]string, 0, len(vectorHits)+len(keywordHits))
	byID := make(map[string]*merged, len(vectorHits)+len(keywordHits))
	for _, h := range vectorHits {
		if _, ok := byID[h.Chunk.ID]; ok {
			continue
		}
		byID[h.Chunk.ID] = &merged{
			chunk:       h.Chunk,
			vectorScore: clamp01(1 - h.Distance),
			inVectorSet: true,
		}
		order = append(order, h.Chunk.ID)
	}
	for _, c := range keywordHits {
		if _, ok := byID[c.ID]; ok {
			continue
		}
		byID[c.ID] = &merged{chunk: c}
		order = append(order, c.ID)
	}

	candidates := make([]ScoredCandidate, 0, len(order))
	for _, id := range order {
		m := byID[id]
		kw := s.keywordScore(m.chunk, phrase, firstToken)
		if !m.inVectorSet && kw == 0 {
			continue
		}
		boost := s.typeBoost(m.chunk)
		candidates = append(candidates, ScoredCandidate{
			Chunk:         m.chunk,
			VectorScore:   m.vectorScore,
			KeywordScore:  kw,
			TypeBoost:     boost,
			CombinedScore: s.cfg.VectorWeight*m.vectorScore + s.cfg.KeywordWeight*kw + boost,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CombinedScore > candidates[j].CombinedScore
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	span.SetAttributes(
		attribute.Int("retrieval.candidates", len(candidates)),
		attribute.String("retrieval.query", phrase),
	)
	slog.Debug("Hybrid search complete",
		"query", phrase,
		"vector_hits", len(vectorHits),
		"keyword_hits", len(keywordHits),
		"returned", len(candidates))
	return candidates, nil
}

func (s *Searcher) keywordScore(c Chunk, phrase, firstToken string) float64 {
	if phrase == "" {
		return 0
	}
	content := strings.ToLower(c.Content)
	title := strings.ToLower(c.Title)
	switch {
	case strings.Contains(content, phrase):
		return s.cfg.PhraseBodyTier
	case strings.Contains(title, phrase):
		return s.cfg.PhraseTitleTier
	case firstToken != "" && strings.Contains(title, firstToken):
		return s.cfg.TokenTitleTier
	default:
		return 0
	}
}

func (s *Searcher) typeBoost(c Chunk) float64 {
	if s.highTrustRe.MatchString(c.Title) {
		return s.cfg.HighTrustBoost
	}
	if c.SourceType == s.cfg.PreferredSourceType {
		return s.cfg.SourceTypeBoost
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
