// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package casegen

import (
	"context"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// mockGeneratorClient is a scripted LLM backend recording every call.
type mockGeneratorClient struct {
	generateCalls []string
	chatCalls     [][]datatypes.Message

	generateResponse string
	generateErr      error
	chatResponse     string
	chatErr          error
}

func (m *mockGeneratorClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.generateCalls = append(m.generateCalls, prompt)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.generateResponse, nil
}

func (m *mockGeneratorClient) Chat(_ context.Context, messages []datatypes.Message, _ llm.GenerationParams) (string, error) {
	m.chatCalls = append(m.chatCalls, messages)
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.chatResponse, nil
}

func (m *mockGeneratorClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params llm.GenerationParams, callback llm.StreamCallback) error {
	response, err := m.Chat(ctx, messages, params)
	if err != nil {
		return err
	}
	if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: response}); err != nil {
		return err
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}
