// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/lostlondon/vic/pkg/logging"
	"github.com/lostlondon/vic/services/llm"
	"github.com/lostlondon/vic/services/vic/answer"
	"github.com/lostlondon/vic/services/vic/audit"
	"github.com/lostlondon/vic/services/vic/background"
	"github.com/lostlondon/vic/services/vic/config"
	"github.com/lostlondon/vic/services/vic/corrections"
	"github.com/lostlondon/vic/services/vic/datatypes"
	"github.com/lostlondon/vic/services/vic/grounding"
	"github.com/lostlondon/vic/services/vic/memorygraph"
	"github.com/lostlondon/vic/services/vic/normalize"
	"github.com/lostlondon/vic/services/vic/observability"
	"github.com/lostlondon/vic/services/vic/respcache"
	"github.com/lostlondon/vic/services/vic/retrieval"
	"github.com/lostlondon/vic/services/vic/routes"
	badgerstore "github.com/lostlondon/vic/services/vic/storage/badger"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("vic-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient parses and sanitizes the configured URL. Returns nil
// (lightweight mode) when the URL is unset or unusable.
func newWeaviateClient(rawURL string) *weaviate.Client {
	// Trim quotes and whitespace in case the container runtime passes
	// them literally.
	rawURL = strings.Trim(rawURL, "\"' ")
	if rawURL == "" || !strings.Contains(rawURL, "http") {
		slog.Info("Weaviate URL not set. Running in lightweight mode (in-memory index, no audit persistence).")
		return nil
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("Weaviate URL is invalid. Running in lightweight mode.",
			"url", rawURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	return client
}

// httpEmbedder adapts the embedding sidecar to the pipeline's Embedder.
type httpEmbedder struct {
	serviceURL string
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp datatypes.EmbeddingResponse
	if err := resp.GetWithContext(ctx, e.serviceURL, text); err != nil {
		return nil, err
	}
	return resp.Vector, nil
}

func main() {
	configPath := flag.String("config", os.Getenv("VIC_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Service: "vic",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	logger.SetAsDefault()

	if cfg.Telemetry.Enabled {
		cleanup, err := initTracer(cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	// ====== Storage ======

	weaviateClient := newWeaviateClient(cfg.Weaviate.URL)
	var (
		index    retrieval.ChunkIndex
		auditLog audit.Sink
	)
	if weaviateClient != nil {
		if err := datatypes.EnsureSchema(context.Background(), weaviateClient); err != nil {
			log.Fatalf("failed to ensure Weaviate schema: %v", err)
		}
		index = retrieval.NewWeaviateIndex(weaviateClient)
		auditLog = audit.NewWeaviateSink(weaviateClient)
	} else {
		index = retrieval.NewMemoryIndex()
		auditLog = audit.NewNoopSink()
	}

	cacheDB, err := badgerstore.Open(badgerstore.DefaultConfig(cfg.CachePath))
	if err != nil {
		log.Fatalf("failed to open the response cache: %v", err)
	}
	defer cacheDB.Close()

	// ====== Pipeline components ======

	normalizer, err := normalize.New(cfg.Normalize)
	if err != nil {
		log.Fatalf("failed to build the query normalizer: %v", err)
	}

	searcher, err := retrieval.NewSearcher(index, cfg.Retrieval)
	if err != nil {
		log.Fatalf("failed to build the retriever: %v", err)
	}

	validator, err := grounding.NewValidator(cfg.Grounding)
	if err != nil {
		log.Fatalf("failed to build the grounding validator: %v", err)
	}

	markers := cfg.CorrectionMarkers
	if len(markers) == 0 {
		markers = corrections.DefaultMarkers
	}
	detector, err := corrections.NewDetector(markers)
	if err != nil {
		log.Fatalf("failed to compile correction markers: %v", err)
	}

	var llmClient llm.LLMClient
	switch cfg.LLM.Backend {
	case "openai":
		llmClient, err = llm.NewOpenAIClient(cfg.LLM.Model, answer.VicSystemPrompt)
		slog.Info("Using OpenAI LLM backend")
	default:
		llmClient, err = llm.NewAnthropicClient(cfg.LLM.Model, answer.VicSystemPrompt)
		slog.Info("Using Anthropic (Claude) LLM backend")
	}
	if err != nil {
		log.Fatalf("failed to initialize LLM client: %v", err)
	}

	var graph memorygraph.Searcher
	if cfg.Graph.ServiceURL != "" {
		graph = memorygraph.NewHTTPClient(cfg.Graph.ServiceURL)
	} else {
		graph = memorygraph.NewNoop()
	}

	metrics := observability.InitMetrics()
	queue := background.NewQueue(cfg.Background)

	svc, err := answer.NewService(cfg.Answer, answer.Deps{
		Normalizer: normalizer,
		Embedder:   &httpEmbedder{serviceURL: cfg.Embedding.ServiceURL},
		Retriever:  searcher,
		Cache:      respcache.New(cacheDB, normalizer.Normalize),
		LLM:        llmClient,
		Validator:  validator,
		Detector:   detector,
		Recorder:   corrections.NewRecorder(auditLog),
		Graph:      graph,
		Audit:      auditLog,
		Queue:      queue,
		Metrics:    metrics,
	})
	if err != nil {
		log.Fatalf("failed to assemble the answer pipeline: %v", err)
	}

	// ====== HTTP server ======

	router := gin.Default()
	router.Use(otelgin.Middleware("vic-service"))
	routes.SetupRoutes(router, svc, validator, weaviateClient, cfg.Embedding.ServiceURL)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting the VIC server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	// Let in-flight background writes (cache stores, audit logs) finish.
	if err := queue.Close(shutdownCtx); err != nil {
		slog.Error("Background queue drain failed", "error", err)
	}
}
