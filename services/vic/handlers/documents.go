// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/lostlondon/vic/services/vic/datatypes"
)

var (
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10

	// Articles are prose with occasional markdown headings.
	articleSeparators = []string{
		"\n# ", "\n## ", "\n### ",
		"\n\n", "\n", " ", "",
	}
)

// IngestArticleRequest is one article to chunk, embed, and index.
type IngestArticleRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	// SourceType defaults to "article"; the retriever boosts that type.
	SourceType string `json:"source_type"`
	// Source is the provenance label (URL or filename).
	Source string `json:"source"`
}

type batchEmbeddingRequest struct {
	Texts []string `json:"texts"`
}

type batchEmbeddingResponse struct {
	Id        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Vectors   [][]float32 `json:"vectors"`
	Model     string      `json:"model"`
	Dim       int         `json:"dim"`
}

// IngestArticle chunks an article, embeds the chunks, and batch-imports
// them into the KnowledgeChunk class.
func IngestArticle(client *weaviate.Client, embedServiceURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestArticleRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		chunksCreated, err := RunIngestion(c.Request.Context(), client, embedServiceURL, req)
		if err != nil {
			slog.Error("Ingestion failed", "title", req.Title, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Ingested article", "title", req.Title, "chunks_processed", chunksCreated)
		c.JSON(http.StatusCreated, gin.H{
			"status":           "success",
			"title":            req.Title,
			"chunks_processed": chunksCreated,
		})
	}
}

// ListArticles returns the distinct parent sources in the index.
func ListArticles(client *weaviate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		agg, err := client.GraphQL().Aggregate().
			WithClassName("KnowledgeChunk").
			WithGroupBy("parent_source").
			Do(context.Background())
		if err != nil {
			slog.Error("Failed to aggregate knowledge chunks", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query articles"})
			return
		}

		var articles []string
		if agg.Data["Aggregate"] != nil {
			aggMap, ok := agg.Data["Aggregate"].(map[string]interface{})
			if ok && aggMap["KnowledgeChunk"] != nil {
				groups, ok := aggMap["KnowledgeChunk"].([]interface{})
				if ok {
					for _, groupItem := range groups {
						groupMap, ok := groupItem.(map[string]interface{})
						if ok && groupMap["groupedBy"] != nil {
							groupedByMap, ok := groupMap["groupedBy"].(map[string]interface{})
							if ok && groupedByMap["value"] != nil {
								if name, ok := groupedByMap["value"].(string); ok {
									articles = append(articles, name)
								}
							}
						}
					}
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"articles": articles})
	}
}

// RunIngestion is the reusable ingestion core, also called by the CLI.
// Chunk IDs are derived from a content hash so re-ingesting the same
// article is idempotent.
func RunIngestion(ctx context.Context, client *weaviate.Client, embedServiceURL string, req IngestArticleRequest) (int, error) {
	if embedServiceURL == "" {
		return 0, fmt.Errorf("embedding service not configured")
	}
	batchEmbedURL := strings.TrimSuffix(embedServiceURL, "/embed") + "/batch_embed"

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = "article"
	}
	source := req.Source
	if source == "" {
		source = req.Title
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(articleSeparators),
	)
	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("No chunks produced after splitting", "title", req.Title)
		return 0, nil
	}

	vectors, err := callBatchEmbed(batchEmbedURL, chunks)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding service returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(chunk))
		chunkUUID, _ := uuid.FromBytes(hash[:16])

		props := datatypes.ChunkProperties{
			Content:      chunk,
			Title:        req.Title,
			SourceType:   sourceType,
			ParentSource: source,
			IngestedAt:   time.Now().UnixMilli(),
		}
		objects[i] = &models.Object{
			Class:      "KnowledgeChunk",
			ID:         strfmt.UUID(chunkUUID.String()),
			Vector:     vectors[i],
			Properties: props.ToMap(),
		}
	}

	resp, err := client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to save objects to Weaviate: %w", err)
	}

	chunksCreated := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			chunksCreated++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "title", req.Title, "error", errItem.Message)
			}
		} else {
			slog.Warn("Failed Weaviate batch item, no error provided", "title", req.Title)
		}
	}
	return chunksCreated, nil
}

func callBatchEmbed(batchEmbedURL string, chunks []string) ([][]float32, error) {
	jsonData, err := json.Marshal(batchEmbeddingRequest{Texts: chunks})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch embed request: %w", err)
	}

	// Batch embedding of a long article can take a while.
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(batchEmbedURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to call /batch_embed endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read /batch_embed response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("/batch_embed returned status %d: %s", resp.StatusCode, string(body))
	}

	var batchResp batchEmbeddingResponse
	if err = json.Unmarshal(body, &batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode batch embed response: %w", err)
	}
	return batchResp.Vectors, nil
}
