// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// The Weaviate client returns dynamic data (map[string]models.JSONObject).
// This generic helper round-trips that data through JSON into a strongly
// typed struct whose json tags mirror the expected response shape.
//
// # Limitations
//
//   - Shape mismatches produce zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// KnowledgeChunkQueryResponse is the typed shape of a KnowledgeChunk query.
type KnowledgeChunkQueryResponse struct {
	Get struct {
		KnowledgeChunk []KnowledgeChunkResult `json:"KnowledgeChunk"`
	} `json:"Get"`
}

// KnowledgeChunkResult is a single chunk from a query.
type KnowledgeChunkResult struct {
	Content    string `json:"content"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	Additional struct {
		ID       string   `json:"id"`
		Distance *float32 `json:"distance"`
	} `json:"_additional"`
}

// ChunkProperties are the writable properties of a KnowledgeChunk object.
type ChunkProperties struct {
	Content      string `json:"content"`
	Title        string `json:"title"`
	SourceType   string `json:"source_type"`
	ParentSource string `json:"parent_source"`
	IngestedAt   int64  `json:"ingested_at"`
}

// ToMap converts ChunkProperties to the map form the Weaviate client expects.
func (p *ChunkProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"content":       p.Content,
		"title":         p.Title,
		"source_type":   p.SourceType,
		"parent_source": p.ParentSource,
		"ingested_at":   p.IngestedAt,
	}
}

// ValidationLogProperties are the writable properties of a ValidationLog object.
type ValidationLogProperties struct {
	UserQuery        string   `json:"user_query"`
	NormalizedQuery  string   `json:"normalized_query"`
	ArticlesFound    int      `json:"articles_found"`
	ArticleTitles    []string `json:"article_titles"`
	FactsChecked     []string `json:"facts_checked"`
	ValidationPassed bool     `json:"validation_passed"`
	ValidationNotes  string   `json:"validation_notes"`
	ResponseText     string   `json:"response_text"`
	ConfidenceScore  float64  `json:"confidence_score"`
	SessionID        string   `json:"session_id"`
	CreatedAt        int64    `json:"created_at"`
}

// ToMap converts ValidationLogProperties to the Weaviate property map.
func (p *ValidationLogProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_query":        p.UserQuery,
		"normalized_query":  p.NormalizedQuery,
		"articles_found":    p.ArticlesFound,
		"article_titles":    p.ArticleTitles,
		"facts_checked":     p.FactsChecked,
		"validation_passed": p.ValidationPassed,
		"validation_notes":  p.ValidationNotes,
		"response_text":     p.ResponseText,
		"confidence_score":  p.ConfidenceScore,
		"session_id":        p.SessionID,
		"created_at":        p.CreatedAt,
	}
}

// AmendmentProperties are the writable properties of an Amendment object.
type AmendmentProperties struct {
	AmendmentType string `json:"amendment_type"`
	OriginalText  string `json:"original_text"`
	AmendedText   string `json:"amended_text"`
	ArticleTitle  string `json:"article_title"`
	Reason        string `json:"reason"`
	Source        string `json:"source"`
	CreatedAt     int64  `json:"created_at"`
}

// ToMap converts AmendmentProperties to the Weaviate property map.
func (p *AmendmentProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"amendment_type": p.AmendmentType,
		"original_text":  p.OriginalText,
		"amended_text":   p.AmendedText,
		"article_title":  p.ArticleTitle,
		"reason":         p.Reason,
		"source":         p.Source,
		"created_at":     p.CreatedAt,
	}
}
