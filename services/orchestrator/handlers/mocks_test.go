// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockBackend is a scripted LLM client shared by the handler tests.
type mockBackend struct {
	chatCalls [][]datatypes.Message

	generateResponse string
	generateErr      error
	chatResponse     string
	chatErr          error
	streamTokens     []string
	streamErr        error
}

func (m *mockBackend) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.generateResponse, nil
}

func (m *mockBackend) Chat(_ context.Context, messages []datatypes.Message, _ llm.GenerationParams) (string, error) {
	m.chatCalls = append(m.chatCalls, messages)
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.chatResponse, nil
}

func (m *mockBackend) ChatStream(_ context.Context, _ []datatypes.Message,
	_ llm.GenerationParams, callback llm.StreamCallback) error {
	for _, token := range m.streamTokens {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: token}); err != nil {
			return err
		}
	}
	if m.streamErr != nil {
		return m.streamErr
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

// stubSearch is a fixed-result chat.Retriever.
type stubSearch struct {
	docs []datatypes.Document
	err  error
}

func (s *stubSearch) Search(_ context.Context, _ string, _ int) ([]datatypes.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func newTestChatHandler(backend *mockBackend, search *stubSearch) *ChatHandler {
	orch := chat.NewOrchestrator(
		chat.NewDictionaryRewriter(backend),
		chat.NewHistoryAwareRetriever(backend, search),
		chat.NewAnswerSynthesizer(backend, chat.StaticExamples{}),
		session.NewStore(),
	)
	return NewChatHandler(orch)
}
