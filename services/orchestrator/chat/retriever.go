// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// DefaultTopK is the fixed number of chunks fetched for every question.
const DefaultTopK = 4

// Retriever fetches document chunks relevant to a standalone query.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]datatypes.Document, error)
}

const contextualizePrompt = "Given a chat history and the latest user question " +
	"두괄식으로 대답해주세요" +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// HistoryAwareRetriever resolves references to earlier turns before
// searching the vector store.
//
// # Description
//
// When the session has history, the question is first reformulated into
// a standalone query with one LLM call ("그 세율은?" becomes a complete
// question naming the thing "그" refers to). When the history is empty
// the reformulation call is skipped and the question is searched as-is.
// The reformulated query is used only for retrieval and never stored.
type HistoryAwareRetriever struct {
	client    llm.LLMClient
	retriever Retriever
	topK      int
}

func NewHistoryAwareRetriever(client llm.LLMClient, retriever Retriever) *HistoryAwareRetriever {
	return &HistoryAwareRetriever{
		client:    client,
		retriever: retriever,
		topK:      DefaultTopK,
	}
}

// Retrieve returns the chunks relevant to input given the session history.
//
// # Outputs
//
//   - string: The standalone query actually searched.
//   - []datatypes.Document: Up to topK retrieved chunks.
//   - error: *GenerationError or *RetrievalError.
func (r *HistoryAwareRetriever) Retrieve(ctx context.Context, history []datatypes.Turn,
	input string) (string, []datatypes.Document, error) {
	standalone := input
	if len(history) > 0 {
		reformulated, err := r.reformulate(ctx, history, input)
		if err != nil {
			return "", nil, err
		}
		standalone = reformulated
	}

	docs, err := r.retriever.Search(ctx, standalone, r.topK)
	if err != nil {
		return "", nil, err
	}
	return standalone, docs, nil
}

func (r *HistoryAwareRetriever) reformulate(ctx context.Context, history []datatypes.Turn,
	input string) (string, error) {
	messages := make([]datatypes.Message, 0, len(history)+2)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.MessageRoleSystem,
		Content: contextualizePrompt,
	})
	messages = append(messages, datatypes.TurnsToMessages(history)...)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.MessageRoleUser,
		Content: input,
	})

	standalone, err := r.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		return "", &GenerationError{Stage: "reformulate", Err: err}
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		slog.Warn("reformulation returned empty query, using original input")
		return input, nil
	}
	slog.Debug("reformulated question", "standalone", standalone)
	return standalone, nil
}
