// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command orchestrator starts the courtroom orchestrator HTTP server.
//
// It reads configuration from environment variables and serves the chat,
// case, and document-ingestion APIs.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12210)
//   - LLM_BACKEND_TYPE: LLM provider - openai, ollama (default: openai)
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (required)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: courtroom-otel-collector:4317)
//   - ANSWER_EXAMPLES_PATH: YAML file of few-shot answer examples (optional)
//   - SESSION_TTL_ENABLED: set to "true" to evict idle sessions (default: off)
//   - ORCHESTRATOR_API_TOKEN: bearer token guarding /v1 routes (default: no auth)
//   - RATE_LIMIT_RPS: per-client requests per second on /v1 (default: unlimited)
//
// # Usage
//
//	# Build
//	go build -o orchestrator ./cmd/orchestrator
//
//	# Run
//	./orchestrator
package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
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

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/casegen"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/handlers"
	"github.com/gavelworks/courtroom/services/orchestrator/middleware"
	"github.com/gavelworks/courtroom/services/orchestrator/observability"
	"github.com/gavelworks/courtroom/services/orchestrator/retrieval"
	"github.com/gavelworks/courtroom/services/orchestrator/routes"
	"github.com/gavelworks/courtroom/services/orchestrator/session"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "courtroom-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("courtroom-orchestrator")))
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

func newLLMClient() (llm.LLMClient, error) {
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient(), nil
	case "openai", "":
		if backend == "" {
			slog.Warn("LLM_BACKEND_TYPE not set, defaulting to openai")
		} else {
			slog.Info("Using OpenAI LLM backend")
		}
		return llm.NewOpenAIClient()
	default:
		slog.Warn("Unknown LLM_BACKEND_TYPE, defaulting to openai", "backend", backend)
		return llm.NewOpenAIClient()
	}
}

func newWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" {
		log.Fatal("WEAVIATE_SERVICE_URL is not set")
	}
	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		log.Fatalf("WEAVIATE_SERVICE_URL is invalid: %q", weaviateURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}
	datatypes.EnsureWeaviateSchema(client)
	return client
}

func newExampleSource() chat.ExampleSource {
	path := os.Getenv("ANSWER_EXAMPLES_PATH")
	if path == "" {
		slog.Info("ANSWER_EXAMPLES_PATH not set, using built-in examples")
		return chat.DefaultExamples()
	}
	source, err := chat.NewFileExampleSource(path)
	if err != nil {
		slog.Warn("failed to load example file, using built-in examples",
			"path", path, "error", err)
		return chat.DefaultExamples()
	}
	return source
}

func main() {
	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	embedder, ok := llmClient.(llm.Embedder)
	if !ok {
		// The Ollama chat backend does not embed; use OpenAI embeddings.
		openaiClient, err := llm.NewOpenAIClient()
		if err != nil {
			log.Fatalf("LLM backend cannot embed and no OpenAI fallback is available: %v", err)
		}
		embedder = openaiClient
	}

	weaviateClient := newWeaviateClient()

	sessions := session.NewStore()
	if os.Getenv("SESSION_TTL_ENABLED") == "true" {
		janitor := session.NewJanitor(sessions, session.DefaultJanitorConfig())
		janitor.Start()
		defer janitor.Stop()
	}

	retriever := retrieval.NewWeaviateRetriever(weaviateClient, embedder)
	orchestrator := chat.NewOrchestrator(
		chat.NewDictionaryRewriter(llmClient),
		chat.NewHistoryAwareRetriever(llmClient, retriever),
		chat.NewAnswerSynthesizer(llmClient, newExampleSource()),
		sessions,
	)
	generator := casegen.NewGenerator(llmClient)

	router := gin.Default()
	router.Use(otelgin.Middleware("courtroom-orchestrator"))

	rateLimit := 0.0
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			slog.Warn("invalid RATE_LIMIT_RPS, rate limiting disabled", "value", raw)
		} else {
			rateLimit = parsed
		}
	}

	routes.SetupRoutes(router,
		handlers.NewChatHandler(orchestrator),
		handlers.NewCaseHandler(generator),
		handlers.NewDocumentsHandler(weaviateClient, embedder),
		middleware.AuthMiddleware(os.Getenv("ORCHESTRATOR_API_TOKEN")),
		middleware.RateLimitMiddleware(rateLimit, int(rateLimit*2)+1),
	)

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
