// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostlondon/vic/services/llm"
	"github.com/lostlondon/vic/services/vic/answer"
	"github.com/lostlondon/vic/services/vic/audit"
	"github.com/lostlondon/vic/services/vic/background"
	"github.com/lostlondon/vic/services/vic/corrections"
	"github.com/lostlondon/vic/services/vic/datatypes"
	"github.com/lostlondon/vic/services/vic/grounding"
	"github.com/lostlondon/vic/services/vic/normalize"
	"github.com/lostlondon/vic/services/vic/observability"
	"github.com/lostlondon/vic/services/vic/respcache"
	"github.com/lostlondon/vic/services/vic/retrieval"
	vicbadger "github.com/lostlondon/vic/services/vic/storage/badger"
)

var testMetrics = observability.InitMetrics()

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubRetriever struct {
	results []retrieval.ScoredCandidate
}

func (s stubRetriever) Search(ctx context.Context, queryText string, vector []float32, limit int, threshold float64) ([]retrieval.ScoredCandidate, error) {
	return s.results, nil
}

type stubLLM struct {
	response string
}

func (s stubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return s.response, nil
}

func newTestService(t *testing.T, results []retrieval.ScoredCandidate, llmResponse string) *answer.Service {
	t.Helper()

	db, err := vicbadger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	norm := normalize.MustNew(normalize.DefaultCorrections)
	queue := background.NewQueue(background.DefaultConfig())
	t.Cleanup(func() { _ = queue.Close(context.Background()) })

	svc, err := answer.NewService(answer.DefaultConfig(), answer.Deps{
		Normalizer: norm,
		Embedder:   stubEmbedder{},
		Retriever:  stubRetriever{results: results},
		Cache:      respcache.New(db, norm.Normalize),
		LLM:        stubLLM{response: llmResponse},
		Validator:  grounding.MustNewValidator(grounding.DefaultConfig()),
		Detector:   corrections.MustNewDetector(corrections.DefaultMarkers),
		Recorder:   corrections.NewRecorder(audit.NewNoopSink()),
		Queue:      queue,
		Metrics:    testMetrics,
	})
	require.NoError(t, err)
	return svc
}

func newRouter(t *testing.T, svc *answer.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/answer", HandleAnswer(svc))
	router.POST("/v1/validate", HandleValidate(grounding.MustNewValidator(grounding.DefaultConfig())))
	router.GET("/health", HealthCheck)
	return router
}

func candidates() []retrieval.ScoredCandidate {
	return []retrieval.ScoredCandidate{{
		Chunk: retrieval.Chunk{
			ID:      "1",
			Title:   "The Royal Aquarium",
			Content: "The Royal Aquarium was designed by Alfred Bedborough and opened in 1876.",
		},
		CombinedScore: 0.7,
	}}
}

func TestHandleAnswer_OK(t *testing.T) {
	svc := newTestService(t, candidates(), "It opened in 1876.")
	router := newRouter(t, svc)

	body := `{"message": "Tell me about the Royal Aquarium", "session_id": "s1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "It opened in 1876.", resp.Answer)
	assert.Equal(t, "s1", resp.SessionID)
	assert.False(t, resp.Cached)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9)
}

func TestHandleAnswer_BadRequest(t *testing.T) {
	svc := newTestService(t, nil, "")
	router := newRouter(t, svc)

	for _, body := range []string{`{`, `{}`, `{"message": "   "}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestHandleAnswer_NoEvidenceStillOK(t *testing.T) {
	svc := newTestService(t, nil, "unused")
	router := newRouter(t, svc)

	body := `{"message": "Tell me about the moon"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, answer.DeclineNoArticles, resp.Answer)
}

func TestHandleValidate_Substitution(t *testing.T) {
	router := newRouter(t, newTestService(t, nil, ""))

	body := `{
		"response_text": "It was designed by John Smith.",
		"source_content": "The Royal Aquarium opened in 1876."
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.Equal(t, grounding.ReasonAttribution, resp.Reason)
	assert.Equal(t, grounding.DeclineAttribution, resp.Text)
}

func TestHandleValidate_Accepted(t *testing.T) {
	router := newRouter(t, newTestService(t, nil, ""))

	body := `{
		"response_text": "It opened in 1876.",
		"source_content": "The Royal Aquarium opened in 1876."
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "It opened in 1876.", resp.Text)
}

func TestHealthCheck(t *testing.T) {
	router := newRouter(t, newTestService(t, nil, ""))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
