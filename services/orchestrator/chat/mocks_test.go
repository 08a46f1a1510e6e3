// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"sync"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// mockLLMClient is a scripted LLM backend that records every call.
type mockLLMClient struct {
	mu            sync.Mutex
	generateCalls []string
	chatCalls     [][]datatypes.Message
	streamCalls   [][]datatypes.Message

	generateResponse string
	generateErr      error

	chatResponse string
	chatErr      error

	streamTokens []string
	streamErr    error

	// blockStream makes ChatStream wait for ctx cancellation after
	// emitting its tokens.
	blockStream bool

	// streamDone, when non-nil, is closed once ChatStream returns.
	streamDone chan struct{}
}

func (m *mockLLMClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.generateCalls = append(m.generateCalls, prompt)
	m.mu.Unlock()
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.generateResponse, nil
}

func (m *mockLLMClient) Chat(_ context.Context, messages []datatypes.Message, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.chatCalls = append(m.chatCalls, messages)
	m.mu.Unlock()
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.chatResponse, nil
}

func (m *mockLLMClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	_ llm.GenerationParams, callback llm.StreamCallback) (err error) {
	m.mu.Lock()
	m.streamCalls = append(m.streamCalls, messages)
	m.mu.Unlock()
	if m.streamDone != nil {
		defer close(m.streamDone)
	}

	for _, token := range m.streamTokens {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: token}); err != nil {
			return err
		}
	}
	if m.streamErr != nil {
		return m.streamErr
	}
	if m.blockStream {
		<-ctx.Done()
		return ctx.Err()
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

func (m *mockLLMClient) generateCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.generateCalls)
}

func (m *mockLLMClient) chatCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chatCalls)
}

// stubRetriever returns a fixed document set and records queries.
type stubRetriever struct {
	mu      sync.Mutex
	queries []string
	topKs   []int

	docs []datatypes.Document
	err  error
}

func (s *stubRetriever) Search(_ context.Context, query string, topK int) ([]datatypes.Document, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.topKs = append(s.topKs, topK)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func (s *stubRetriever) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return ""
	}
	return s.queries[len(s.queries)-1]
}
