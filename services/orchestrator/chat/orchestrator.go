// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chat implements the question-answering pipeline: dictionary
// rewrite, history-aware retrieval, and streamed answer synthesis over
// per-session conversation history.
package chat

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/session"
)

var tracer = otel.Tracer("courtroom.chat")

// DefaultSessionKey is used when a request carries no session id.
const DefaultSessionKey = "123"

// Orchestrator runs one conversational turn end to end.
//
// # Description
//
// A turn runs rewrite, retrieve, synthesize in order and streams the
// answer back through an AnswerStream. History is committed only after
// the stream completes cleanly: exactly one human turn (the rewritten
// question) and one ai turn (the full answer) are appended. A turn
// that fails or is abandoned mid-stream appends nothing.
//
// # Thread Safety
//
// Safe for concurrent use across sessions. Turns within one session
// are appended in the order their streams complete.
type Orchestrator struct {
	rewriter  QueryRewriter
	retriever *HistoryAwareRetriever
	synth     *AnswerSynthesizer
	sessions  *session.Store
}

func NewOrchestrator(rewriter QueryRewriter, retriever *HistoryAwareRetriever,
	synth *AnswerSynthesizer, sessions *session.Store) *Orchestrator {
	return &Orchestrator{
		rewriter:  rewriter,
		retriever: retriever,
		synth:     synth,
		sessions:  sessions,
	}
}

// Sessions exposes the underlying store for TTL sweeps and tests.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// Respond answers userMessage in the default session.
func (o *Orchestrator) Respond(ctx context.Context, userMessage string) (*AnswerStream, error) {
	return o.HandleTurn(ctx, DefaultSessionKey, userMessage)
}

// HandleTurn answers rawQuestion within the given session.
//
// # Description
//
// The dictionary rewrite runs synchronously so an immediate failure is
// returned before any stream exists. Retrieval and synthesis run in a
// producer goroutine; their errors surface through AnswerStream.Err
// after the stream drains.
//
// # Inputs
//
//   - ctx: Governs the whole turn. Cancelling it aborts the stream and
//     skips the history commit.
//   - sessionKey: Session identity; empty falls back to DefaultSessionKey.
//   - rawQuestion: The user's question before vocabulary normalization.
//
// # Outputs
//
//   - *AnswerStream: The live answer stream.
//   - error: Non-nil only when the turn fails before streaming starts.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionKey, rawQuestion string) (*AnswerStream, error) {
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}

	ctx, span := tracer.Start(ctx, "chat.handle_turn")
	span.SetAttributes(attribute.String("chat.session_key", sessionKey))

	input, err := o.rewriter.Rewrite(ctx, rawQuestion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rewrite failed")
		span.End()
		return nil, err
	}

	history := o.sessions.Get(sessionKey)
	snapshot := history.Snapshot()

	streamCtx, cancel := context.WithCancel(ctx)
	stream := newAnswerStream(cancel)

	go func() {
		defer span.End()
		defer cancel()

		standalone, docs, err := o.retriever.Retrieve(streamCtx, snapshot, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "retrieval failed")
			stream.finish(err)
			return
		}
		span.SetAttributes(
			attribute.Int("chat.history_turns", len(snapshot)),
			attribute.Int("chat.retrieved_chunks", len(docs)),
			attribute.String("chat.standalone_query", standalone),
		)
		stream.sources = datatypes.SourcesFromDocuments(docs)

		var answer strings.Builder
		err = o.synth.Synthesize(streamCtx, docs, snapshot, input, func(chunk string) error {
			if err := stream.send(streamCtx, chunk); err != nil {
				return err
			}
			answer.WriteString(chunk)
			return nil
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "synthesis failed")
			stream.finish(err)
			return
		}
		if streamCtx.Err() != nil {
			stream.finish(streamCtx.Err())
			return
		}

		// Commit the turn only now that the full answer streamed.
		history.Append(
			datatypes.Turn{Role: datatypes.TurnRoleHuman, Content: input},
			datatypes.Turn{Role: datatypes.TurnRoleAI, Content: answer.String()},
		)
		slog.Debug("committed conversation turn",
			"session_key", sessionKey,
			"history_len", history.Len(),
		)
		stream.finish(nil)
	}()

	return stream, nil
}
