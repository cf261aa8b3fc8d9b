// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package answer implements the end-to-end question answering pipeline:
// correction capture, response cache, hybrid retrieval, grounded
// generation, and post-validation. Nothing in this package is allowed to
// crash the enclosing service; every external call degrades to a decline.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/lostlondon/vic/services/llm"
	"github.com/lostlondon/vic/services/vic/audit"
	"github.com/lostlondon/vic/services/vic/background"
	"github.com/lostlondon/vic/services/vic/corrections"
	"github.com/lostlondon/vic/services/vic/datatypes"
	"github.com/lostlondon/vic/services/vic/grounding"
	"github.com/lostlondon/vic/services/vic/memorygraph"
	"github.com/lostlondon/vic/services/vic/observability"
	"github.com/lostlondon/vic/services/vic/respcache"
	"github.com/lostlondon/vic/services/vic/retrieval"
)

var tracer = otel.Tracer("vic/answer")

// Fixed decline texts. These are user-facing sentences, not error codes;
// keep them stable because the cache and tests key off them.
const (
	// DeclineNoArticles is returned when retrieval finds nothing.
	DeclineNoArticles = "I don't seem to have any articles about that in my collection. " +
		"Is there something else about London's history I can help you with?"

	// DeclineUpstream is returned when generation or storage fails.
	DeclineUpstream = "I'm having a bit of trouble gathering my thoughts on that one. " +
		"Could you perhaps ask me in a different way?"
)

// Normalizer canonicalizes query text.
type Normalizer interface {
	Normalize(string) string
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs the hybrid search.
type Retriever interface {
	Search(ctx context.Context, queryText string, vector []float32, limit int, similarityThreshold float64) ([]retrieval.ScoredCandidate, error)
}

// Cache is the validated-answer cache.
type Cache interface {
	Lookup(ctx context.Context, rawQuery string) (*respcache.Hit, error)
	Store(ctx context.Context, rawQuery, responseText string, sourceTitles []string) error
}

// Config tunes the pipeline.
type Config struct {
	// ResultLimit is how many chunks feed the prompt. Default: 2.
	ResultLimit int `yaml:"result_limit"`
	// SimilarityThreshold is passed through to retrieval for caller
	// compatibility. Default: 0.3.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// MaxTokens caps generation length. Default: 200.
	MaxTokens int `yaml:"max_tokens"`
	// GenerationTimeout bounds the LLM call. Default: 15s.
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	// Backend labels generation latency metrics.
	Backend string `yaml:"backend"`
	// Debug exposes raw error detail in responses. Never enable in
	// production.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		ResultLimit:         2,
		SimilarityThreshold: 0.3,
		MaxTokens:           200,
		GenerationTimeout:   15 * time.Second,
		Backend:             "anthropic",
	}
}

// Deps collects the pipeline's collaborators.
type Deps struct {
	Normalizer Normalizer
	Embedder   Embedder
	Retriever  Retriever
	Cache      Cache
	LLM        llm.LLMClient
	Validator  *grounding.Validator
	Detector   *corrections.Detector
	Recorder   *corrections.Recorder
	Graph      memorygraph.Searcher
	Audit      audit.Sink
	Queue      *background.Queue
	Metrics    *observability.PipelineMetrics
}

// Service is the answer pipeline. Safe for concurrent use.
type Service struct {
	cfg  Config
	deps Deps
}

// NewService validates the dependency set and builds a Service.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultConfig().ResultLimit
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultConfig().GenerationTimeout
	}
	switch {
	case deps.Normalizer == nil:
		return nil, fmt.Errorf("answer: normalizer is required")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("answer: embedder is required")
	case deps.Retriever == nil:
		return nil, fmt.Errorf("answer: retriever is required")
	case deps.Cache == nil:
		return nil, fmt.Errorf("answer: cache is required")
	case deps.LLM == nil:
		return nil, fmt.Errorf("answer: llm client is required")
	case deps.Validator == nil:
		return nil, fmt.Errorf("answer: validator is required")
	case deps.Detector == nil:
		return nil, fmt.Errorf("answer: correction detector is required")
	case deps.Recorder == nil:
		return nil, fmt.Errorf("answer: correction recorder is required")
	case deps.Queue == nil:
		return nil, fmt.Errorf("answer: background queue is required")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("answer: metrics are required")
	}
	if deps.Graph == nil {
		deps.Graph = memorygraph.NewNoop()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewNoopSink()
	}
	return &Service{cfg: cfg, deps: deps}, nil
}

// Answer runs the full pipeline for one user message.
//
// # Description
//
// Order matters: correction capture first (a correction must never be
// answered from cache), then cache lookup, then retrieval and generation.
// Every terminal path returns presentable text; internal errors degrade
// to a fixed decline and are logged with a zero-confidence audit record.
func (s *Service) Answer(ctx context.Context, req datatypes.AnswerRequest) datatypes.AnswerResponse {
	ctx, span := tracer.Start(ctx, "answer.Answer")
	defer span.End()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	if s.deps.Detector.Detect(req.Message) {
		s.recordCorrection(sessionID, req)
		s.deps.Metrics.RecordAnswer(observability.OutcomeCorrection)
		return datatypes.AnswerResponse{
			Answer:     corrections.Acknowledgement(req.UserName),
			SessionID:  sessionID,
			Confidence: 1.0,
		}
	}

	if hit := s.cacheLookup(ctx, req.Message); hit != nil {
		s.deps.Metrics.RecordAnswer(observability.OutcomeCached)
		return datatypes.AnswerResponse{
			Answer:     hit.ResponseText,
			SessionID:  sessionID,
			Cached:     true,
			Confidence: 1.0,
		}
	}

	resp, err := s.generate(ctx, sessionID, req)
	if err != nil {
		return s.declineUpstream(sessionID, req, err)
	}
	return resp
}

// generate is the retrieval + generation + validation core.
func (s *Service) generate(ctx context.Context, sessionID string, req datatypes.AnswerRequest) (datatypes.AnswerResponse, error) {
	normalized := s.deps.Normalizer.Normalize(req.Message)

	vector, err := s.deps.Embedder.Embed(ctx, normalized)
	if err != nil {
		return datatypes.AnswerResponse{}, &UpstreamError{Stage: "embed", Err: err}
	}

	var (
		candidates  []retrieval.ScoredCandidate
		connections string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		results, err := s.deps.Retriever.Search(gctx, normalized, vector, s.cfg.ResultLimit, s.cfg.SimilarityThreshold)
		s.deps.Metrics.RecordRetrieval(time.Since(start).Seconds())
		if err != nil {
			return &UpstreamError{Stage: "retrieve", Err: err}
		}
		candidates = results
		return nil
	})
	g.Go(func() error {
		// Graph context is an enrichment; losing it never fails the
		// answer.
		text, err := s.deps.Graph.Connections(gctx, normalized, sessionID)
		if err != nil {
			slog.Warn("Graph search failed", "session_id", sessionID, "error", err)
			return nil
		}
		connections = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return datatypes.AnswerResponse{}, err
	}

	if len(candidates) == 0 {
		s.auditLog(datatypes.ValidationLogProperties{
			UserQuery:        req.Message,
			NormalizedQuery:  normalized,
			ValidationPassed: true,
			ValidationNotes:  "No articles found - returned safe fallback",
			ResponseText:     "No articles found",
			SessionID:        sessionID,
			CreatedAt:        time.Now().UnixMilli(),
		})
		s.deps.Metrics.RecordAnswer(observability.OutcomeNoEvidence)
		return datatypes.AnswerResponse{
			Answer:    DeclineNoArticles,
			SessionID: sessionID,
		}, nil
	}

	titles := make([]string, 0, len(candidates))
	confidence := 1.0
	for _, c := range candidates {
		titles = append(titles, c.Chunk.Title)
		if c.CombinedScore < confidence {
			confidence = c.CombinedScore
		}
	}
	sources := formatSources(candidates)
	prompt := buildPrompt(req.Message, req.UserName, sources, connections)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	maxTokens := s.cfg.MaxTokens
	start := time.Now()
	raw, err := s.deps.LLM.Generate(genCtx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	s.deps.Metrics.RecordGeneration(s.cfg.Backend, time.Since(start).Seconds())
	if err != nil {
		return datatypes.AnswerResponse{}, &UpstreamError{Stage: "generate", Err: err}
	}

	outcome := s.deps.Validator.Validate(raw, sources)
	validationNotes := "Post-validation passed"
	if !outcome.Accepted {
		confidence *= 0.5
		validationNotes = "Post-validation caught potential hallucination"
		s.deps.Metrics.RecordValidationFailure(outcome.Reason)
		slog.Warn("Grounding validation substituted response",
			"session_id", sessionID,
			"reason", outcome.Reason)
	}

	facts := extractFacts(outcome.Text)

	if outcome.Accepted {
		s.cacheStore(req.Message, outcome.Text, titles)
	}
	s.auditLog(datatypes.ValidationLogProperties{
		UserQuery:        req.Message,
		NormalizedQuery:  normalized,
		ArticlesFound:    len(candidates),
		ArticleTitles:    titles,
		FactsChecked:     facts,
		ValidationPassed: outcome.Accepted,
		ValidationNotes:  validationNotes,
		ResponseText:     outcome.Text,
		ConfidenceScore:  confidence,
		SessionID:        sessionID,
		CreatedAt:        time.Now().UnixMilli(),
	})
	s.saveTurn(sessionID, req.Message, outcome.Text)

	s.deps.Metrics.RecordAnswer(observability.OutcomeAnswered)
	s.deps.Metrics.RecordConfidence(confidence)
	return datatypes.AnswerResponse{
		Answer:     outcome.Text,
		SessionID:  sessionID,
		Confidence: confidence,
	}, nil
}

// Validate exposes the standalone grounding check for offline evaluation.
func (s *Service) Validate(responseText, sourceContent string) grounding.Outcome {
	return s.deps.Validator.Validate(responseText, sourceContent)
}

// ====== Degradation paths ======

func (s *Service) declineUpstream(sessionID string, req datatypes.AnswerRequest, err error) datatypes.AnswerResponse {
	slog.Error("Answer pipeline failed", "session_id", sessionID, "error", err)
	s.auditLog(datatypes.ValidationLogProperties{
		UserQuery:        req.Message,
		ValidationNotes:  "Error: " + truncateMessage(err.Error(), 100),
		ResponseText:     "Error fallback",
		ValidationPassed: false,
		SessionID:        sessionID,
		CreatedAt:        time.Now().UnixMilli(),
	})
	s.deps.Metrics.RecordAnswer(observability.OutcomeUpstreamError)

	text := DeclineUpstream
	if s.cfg.Debug {
		text = "Error: " + truncateMessage(err.Error(), 200)
	}
	return datatypes.AnswerResponse{
		Answer:    text,
		SessionID: sessionID,
	}
}

// ====== Side effects ======

func (s *Service) cacheLookup(ctx context.Context, rawQuery string) *respcache.Hit {
	hit, err := s.deps.Cache.Lookup(ctx, rawQuery)
	if err != nil {
		if !errors.Is(err, respcache.ErrNotFound) {
			slog.Warn("Cache lookup failed", "error", err)
		}
		s.deps.Metrics.RecordCacheLookup(false)
		return nil
	}
	s.deps.Metrics.RecordCacheLookup(true)
	return hit
}

func (s *Service) cacheStore(rawQuery, responseText string, titles []string) {
	s.submit("cache_store", func(ctx context.Context) error {
		return s.deps.Cache.Store(ctx, rawQuery, responseText, titles)
	})
}

func (s *Service) recordCorrection(sessionID string, req datatypes.AnswerRequest) {
	s.submit("correction_record", func(ctx context.Context) error {
		return s.deps.Recorder.Record(ctx, sessionID, req.Message, req.UserName)
	})
}

func (s *Service) auditLog(rec datatypes.ValidationLogProperties) {
	s.submit("validation_log", func(ctx context.Context) error {
		return s.deps.Audit.WriteValidationLog(ctx, rec)
	})
}

func (s *Service) saveTurn(sessionID, question, answerText string) {
	s.submit("graph_save", func(ctx context.Context) error {
		return s.deps.Graph.Save(ctx, sessionID, question, answerText)
	})
}

// submit enqueues a fire-and-forget task; queue rejection is itself
// non-fatal.
func (s *Service) submit(name string, run func(ctx context.Context) error) {
	err := s.deps.Queue.Submit(background.Task{Name: name, Run: func(ctx context.Context) error {
		if err := run(ctx); err != nil {
			s.deps.Metrics.RecordBackgroundFailure(name)
			return err
		}
		return nil
	}})
	if err != nil {
		slog.Warn("Background submit rejected", "task", name, "error", err)
	}
}
