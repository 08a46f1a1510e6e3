// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the orchestrator.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/observability"
)

// ChatHandler serves the tax-advice chat endpoints.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	tracer       trace.Tracer
}

func NewChatHandler(orchestrator *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		tracer:       otel.Tracer("courtroom.handlers.chat"),
	}
}

// HandleChat serves POST /v1/chat with a buffered answer.
//
// # Description
//
// Runs a full conversational turn and drains the answer stream before
// responding. Errors are mapped to status codes by type: generation
// failures become 502, retrieval failures 503, anything else 500.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	endpoint := observability.EndpointChat
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleChat")
	defer span.End()

	var req datatypes.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = chat.DefaultSessionKey
	}
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	if m := observability.DefaultMetrics; m != nil {
		m.RecordHistoryTurns(endpoint, h.orchestrator.Sessions().Get(sessionID).Len())
	}

	stream, err := h.orchestrator.HandleTurn(ctx, sessionID, req.Message)
	if err != nil {
		h.failChat(c, span, endpoint, err)
		return
	}
	answer, err := stream.Text()
	if err != nil {
		h.failChat(c, span, endpoint, err)
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, datatypes.ChatResponse{
		Answer:    answer,
		SessionID: sessionID,
		Sources:   stream.Sources(),
	})
}

func (h *ChatHandler) failChat(c *gin.Context, span trace.Span, endpoint observability.Endpoint, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "chat turn failed")
	slog.Error("chat turn failed", "error", err)

	status := http.StatusInternalServerError
	code := observability.ErrorCodeInternal
	switch {
	case chat.IsRetrievalError(err):
		status = http.StatusServiceUnavailable
		code = observability.ErrorCodeRetrieval
	case chat.IsGenerationError(err):
		status = http.StatusBadGateway
		code = observability.ErrorCodeLLMError
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, false)
		m.RecordError(endpoint, code)
	}
	c.JSON(status, gin.H{"error": sanitizeErrorForClient(err)})
}

// HandleChatStream serves POST /v1/chat/stream over SSE.
//
// # Description
//
// Emits a status event, then token events as the answer streams, then
// sources and done. On mid-stream failure an error event is written
// instead and the session history is left untouched. A client
// disconnect cancels the turn the same way.
func (h *ChatHandler) HandleChatStream(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointChatStream

	ctx, span := h.tracer.Start(c.Request.Context(), "HandleChatStream")
	defer span.End()

	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}
	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, success)
			m.RecordStreamDuration(endpoint, time.Since(startTime).Seconds(), success)
		}
	}()

	var req datatypes.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = chat.DefaultSessionKey
	}
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	if m := observability.DefaultMetrics; m != nil {
		m.RecordHistoryTurns(endpoint, h.orchestrator.Sessions().Get(sessionID).Len())
	}

	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	_ = writer.WriteStatus("답변을 준비하고 있습니다...")

	stream, err := h.orchestrator.HandleTurn(ctx, sessionID, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn setup failed")
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeLLMError)
		}
		_ = writer.WriteError(sanitizeErrorForClient(err))
		return
	}
	defer stream.Close()

	for {
		chunk, ok := stream.Recv()
		if !ok {
			break
		}
		if err := writer.WriteToken(chunk); err != nil {
			// Client went away; cancel the turn so history stays clean.
			slog.Debug("client disconnected mid-stream", "session_id", sessionID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordClientDisconnect(endpoint)
			}
			return
		}
	}

	if err := stream.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		slog.Error("chat stream failed", "error", err, "session_id", sessionID)
		code := observability.ErrorCodeLLMError
		if chat.IsRetrievalError(err) {
			code = observability.ErrorCodeRetrieval
		} else if errors.Is(err, context.Canceled) {
			code = observability.ErrorCodeClientDisconnect
		}
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, code)
		}
		_ = writer.WriteError(sanitizeErrorForClient(err))
		return
	}

	if sources := stream.Sources(); len(sources) > 0 {
		_ = writer.WriteSources(sources)
	}
	_ = writer.WriteDone(sessionID)
	success = true
}

// sanitizeErrorForClient hides internals from API clients.
func sanitizeErrorForClient(err error) string {
	slog.Debug("sanitizing error for client", "original_error", err)
	return "An error occurred while processing your request"
}
