// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
	"golang.org/x/sync/errgroup"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/observability"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100

	// embedConcurrency bounds parallel embedding calls per ingest.
	embedConcurrency = 4
)

// DocumentsHandler ingests tax-law source text into the vector store.
type DocumentsHandler struct {
	client   *weaviate.Client
	embedder llm.Embedder
}

func NewDocumentsHandler(client *weaviate.Client, embedder llm.Embedder) *DocumentsHandler {
	return &DocumentsHandler{client: client, embedder: embedder}
}

// HandleIngest serves POST /v1/documents.
//
// # Description
//
// Splits the content into overlapping chunks, embeds each chunk, and
// writes the batch to the TaxDocument class with deterministic ids so
// re-ingesting the same source overwrites instead of duplicating.
func (h *DocumentsHandler) HandleIngest(c *gin.Context) {
	endpoint := observability.EndpointIngest

	var req datatypes.IngestRequest
	if err := c.BindJSON(&req); err != nil {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	chunks, err := h.ingest(c.Request.Context(), req)
	if err != nil {
		slog.Error("document ingestion failed", "source", req.Source, "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, false)
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeErrorForClient(err)})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, datatypes.IngestResponse{Source: req.Source, Chunks: chunks})
}

func (h *DocumentsHandler) ingest(ctx context.Context, req datatypes.IngestRequest) (int, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("no chunks produced after splitting", "source", req.Source)
		return 0, nil
	}
	slog.Info("split document into chunks", "source", req.Source, "chunk_count", len(chunks))

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := h.embedder.Embed(gctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	objects := make([]*models.Object, len(chunks))
	ingestedAt := time.Now().UnixMilli()
	for i, chunk := range chunks {
		// Deterministic id from source and position.
		hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", req.Source, i, chunk)))
		docUUID, _ := uuid.FromBytes(hash[:16])

		props := datatypes.TaxDocumentProperties{
			Content:    chunk,
			Source:     req.Source,
			ChunkIndex: i,
			IngestedAt: ingestedAt,
		}
		objects[i] = &models.Object{
			Class:      datatypes.TaxDocumentClass,
			ID:         strfmt.UUID(docUUID.String()),
			Vector:     vectors[i],
			Properties: props.ToMap(),
		}
	}

	resp, err := h.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate batch insert failed: %w", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return 0, fmt.Errorf("weaviate rejected object: %s", obj.Result.Errors.Error[0].Message)
		}
	}

	slog.Info("ingested document", "source", req.Source, "chunks", len(chunks))
	return len(chunks), nil
}
