// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval adapts the Weaviate vector store to the chat
// pipeline's document retriever contract.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("courtroom.retrieval")

// WeaviateRetriever performs vector search over the TaxDocument class.
//
// # Description
//
// The query is embedded with the configured Embedder and matched with
// a NearVector search. Vectors are supplied externally, so the class
// itself carries no vectorizer.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client is stateless per call.
type WeaviateRetriever struct {
	client   *weaviate.Client
	embedder llm.Embedder
	class    string
}

func NewWeaviateRetriever(client *weaviate.Client, embedder llm.Embedder) *WeaviateRetriever {
	return &WeaviateRetriever{
		client:   client,
		embedder: embedder,
		class:    datatypes.TaxDocumentClass,
	}
}

// Search implements the chat.Retriever interface.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - query: The standalone search query.
//   - topK: Maximum number of chunks to return.
//
// # Outputs
//
//   - []datatypes.Document: Up to topK chunks ordered by certainty.
//   - error: *chat.RetrievalError on embedding or search failure.
func (r *WeaviateRetriever) Search(ctx context.Context, query string, topK int) ([]datatypes.Document, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.class", r.class),
		attribute.Int("retrieval.top_k", topK),
	)

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("Failed to embed query", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, &chat.RetrievalError{Message: "failed to embed query: " + err.Error(), Retryable: true}
	}

	nearVector := r.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Request certainty (always [0,1]) instead of distance which varies by metric.
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "chunk_index"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := r.client.GraphQL().Get().
		WithClassName(r.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to search TaxDocument class", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "weaviate search failed")
		return nil, &chat.RetrievalError{Message: "weaviate search failed: " + err.Error(), Retryable: true}
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.TaxDocumentQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse search results", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result parse failed")
		return nil, &chat.RetrievalError{Message: "failed to parse results: " + err.Error(), Retryable: false}
	}

	docs := make([]datatypes.Document, 0, len(parsed.Get.TaxDocument))
	for _, res := range parsed.Get.TaxDocument {
		doc := datatypes.Document{
			Content: res.Content,
			Source:  res.Source,
		}
		if res.Additional.Certainty != nil {
			doc.Score = float64(*res.Additional.Certainty)
		}
		docs = append(docs, doc)
	}

	span.SetAttributes(attribute.Int("retrieval.result_count", len(docs)))
	slog.Debug("Retrieved document chunks", "count", len(docs), "top_k", topK)
	return docs, nil
}
