// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// GetKnowledgeChunkSchema returns the schema for the KnowledgeChunk class.
//
// # Description
//
// KnowledgeChunk holds one chunk of an ingested article together with its
// externally computed embedding (Vectorizer "none"). Title and source_type
// are filterable so the hybrid retriever can prefilter keyword candidates
// server-side.
func GetKnowledgeChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "KnowledgeChunk",
		Description: "A chunk of an ingested article with its embedding.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk body text.",
				Tokenization: "word",
			},
			{
				Name:            "title",
				DataType:        []string{"text"},
				Description:     "Title of the source article.",
				IndexFilterable: indexFilterable,
				Tokenization:    "word",
			},
			{
				Name:            "source_type",
				DataType:        []string{"text"},
				Description:     "Kind of source this chunk came from (e.g. 'article').",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "parent_source",
				DataType:        []string{"text"},
				Description:     "Identifier of the original document this chunk belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "ingested_at",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the chunk was ingested.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// GetValidationLogSchema returns the schema for the ValidationLog class.
//
// ValidationLog is an append-only audit record written for every answered
// turn. The core never reads it back; offline evaluation tooling does.
func GetValidationLogSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "ValidationLog",
		Description: "Audit record for one answered turn, including grounding outcome.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:        "user_query",
				DataType:    []string{"text"},
				Description: "The raw user query.",
			},
			{
				Name:        "normalized_query",
				DataType:    []string{"text"},
				Description: "The query after normalization.",
			},
			{
				Name:        "articles_found",
				DataType:    []string{"int"},
				Description: "Number of chunks the retriever returned.",
			},
			{
				Name:        "article_titles",
				DataType:    []string{"text[]"},
				Description: "Titles of the retrieved chunks.",
			},
			{
				Name:        "facts_checked",
				DataType:    []string{"text[]"},
				Description: "Facts extracted from the response for review.",
			},
			{
				Name:        "validation_passed",
				DataType:    []string{"boolean"},
				Description: "False if the free-text validator substituted the answer.",
			},
			{
				Name:        "validation_notes",
				DataType:    []string{"text"},
				Description: "Human-readable notes about the validation outcome.",
			},
			{
				Name:        "response_text",
				DataType:    []string{"text"},
				Description: "The answer as returned to the user.",
			},
			{
				Name:        "confidence_score",
				DataType:    []string{"number"},
				Description: "Grounding confidence in [0, 1].",
			},
			{
				Name:            "session_id",
				DataType:        []string{"text"},
				Description:     "Link to the conversation session.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "created_at",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the record was written.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// GetAmendmentSchema returns the schema for the Amendment class.
//
// Amendments capture user corrections ("actually, it was 1873") for human
// review before any knowledge-base change. Append-only from the core.
func GetAmendmentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "Amendment",
		Description: "A user-supplied correction awaiting editorial review.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "amendment_type",
				DataType:        []string{"text"},
				Description:     "How the correction arrived (e.g. 'voice_correction').",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "original_text",
				DataType:    []string{"text"},
				Description: "Context for the correction, typically the session reference.",
			},
			{
				Name:        "amended_text",
				DataType:    []string{"text"},
				Description: "The user's correction message verbatim.",
			},
			{
				Name:        "article_title",
				DataType:    []string{"text"},
				Description: "Article the correction applies to, when known.",
			},
			{
				Name:        "reason",
				DataType:    []string{"text"},
				Description: "Why the amendment was recorded.",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Channel the correction came from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "created_at",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the record was written.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates any missing classes. Existing classes are left as-is.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	schemaGetters := []func() *models.Class{
		GetKnowledgeChunkSchema,
		GetValidationLogSchema,
		GetAmendmentSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()
		slog.Info("Checking schema", "class", class.Class)

		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err == nil {
			slog.Info("Schema already exists", "class", class.Class)
			continue
		}

		// The client errors when the class is missing; create it.
		slog.Info("Schema not found, creating it", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
		}
		slog.Info("Successfully created schema", "class", class.Class)
	}
	return nil
}
