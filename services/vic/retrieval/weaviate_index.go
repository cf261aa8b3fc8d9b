// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/lostlondon/vic/services/vic/datatypes"
)

const knowledgeChunkClass = "KnowledgeChunk"

// WeaviateIndex serves candidates from the KnowledgeChunk class.
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex wraps an existing client. The KnowledgeChunk class must
// already exist (see datatypes.EnsureSchema).
func NewWeaviateIndex(client *weaviate.Client) *WeaviateIndex {
	return &WeaviateIndex{client: client}
}

func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "source_type"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}
}

// VectorCandidates returns the topN nearest chunks by cosine distance.
func (w *WeaviateIndex) VectorCandidates(ctx context.Context, vector []float32, topN int) ([]VectorHit, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	result, err := w.client.GraphQL().Get().
		WithClassName(knowledgeChunkClass).
		WithFields(chunkFields()...).
		WithNearVector(nearVector).
		WithLimit(topN).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate vector search: %s", result.Errors[0].Message)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.KnowledgeChunkQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("parse vector results: %w", err)
	}

	hits := make([]VectorHit, 0, len(parsed.Get.KnowledgeChunk))
	for _, r := range parsed.Get.KnowledgeChunk {
		// Chunks without a reported distance are treated as maximally
		// distant rather than dropped.
		distance := 1.0
		if r.Additional.Distance != nil {
			distance = float64(*r.Additional.Distance)
		}
		hits = append(hits, VectorHit{
			Chunk: Chunk{
				ID:         r.Additional.ID,
				Title:      r.Title,
				Content:    r.Content,
				SourceType: r.SourceType,
			},
			Distance: distance,
		})
	}
	return hits, nil
}

// KeywordCandidates prefilters chunks whose content or title can match the
// phrase or first token. The searcher re-scores them, so loose matching
// here only costs bandwidth, never correctness.
func (w *WeaviateIndex) KeywordCandidates(ctx context.Context, phrase, firstToken string, cap int) ([]Chunk, error) {
	operands := []*filters.WhereBuilder{
		filters.Where().
			WithPath([]string{"content"}).
			WithOperator(filters.Like).
			WithValueText("*" + phrase + "*"),
		filters.Where().
			WithPath([]string{"title"}).
			WithOperator(filters.Like).
			WithValueText("*" + phrase + "*"),
	}
	if firstToken != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"title"}).
			WithOperator(filters.Like).
			WithValueText("*"+firstToken+"*"))
	}
	whereFilter := filters.Where().
		WithOperator(filters.Or).
		WithOperands(operands)

	result, err := w.client.GraphQL().Get().
		WithClassName(knowledgeChunkClass).
		WithFields(chunkFields()...).
		WithWhere(whereFilter).
		WithLimit(cap).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate keyword search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate keyword search: %s", result.Errors[0].Message)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.KnowledgeChunkQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("parse keyword results: %w", err)
	}

	chunks := make([]Chunk, 0, len(parsed.Get.KnowledgeChunk))
	for _, r := range parsed.Get.KnowledgeChunk {
		chunks = append(chunks, Chunk{
			ID:         r.Additional.ID,
			Title:      r.Title,
			Content:    r.Content,
			SourceType: r.SourceType,
		})
	}
	return chunks, nil
}
