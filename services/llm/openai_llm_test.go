// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// newStreamingServer serves a canned chat completions SSE response and
// captures the request body.
func newStreamingServer(t *testing.T, tokens []string, captured *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, token := range tokens {
			chunk := map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"model":   "gpt-4o",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": token}}},
			}
			data, err := json.Marshal(chunk)
			require.NoError(t, err)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestClient(baseURL string) *OpenAIClient {
	config := openai.DefaultConfig("test-key")
	config.BaseURL = baseURL + "/v1"
	return NewOpenAIClientWithConfig(config, "gpt-4o", "text-embedding-3-large")
}

func TestOpenAIClient_ChatStreamForwardsTokens(t *testing.T) {
	var captured openai.ChatCompletionRequest
	server := newStreamingServer(t, []string{"거주자의 ", "세율은 ", "6%입니다."}, &captured)
	defer server.Close()

	client := newTestClient(server.URL)

	var tokens []string
	var doneSeen bool
	err := client.ChatStream(context.Background(),
		[]datatypes.Message{{Role: datatypes.MessageRoleUser, Content: "세율이 뭐야?"}},
		GenerationParams{},
		func(event StreamEvent) error {
			switch event.Type {
			case StreamEventToken:
				tokens = append(tokens, event.Content)
			case StreamEventDone:
				doneSeen = true
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"거주자의 ", "세율은 ", "6%입니다."}, tokens)
	assert.True(t, doneSeen)
	assert.True(t, captured.Stream)
	assert.Equal(t, "gpt-4o", captured.Model)
}

func TestOpenAIClient_ChatStreamCallbackErrorReturnedAsIs(t *testing.T) {
	server := newStreamingServer(t, []string{"하나", "둘", "셋"}, nil)
	defer server.Close()

	client := newTestClient(server.URL)
	sentinel := errors.New("stop now")

	var seen int
	err := client.ChatStream(context.Background(),
		[]datatypes.Message{{Role: datatypes.MessageRoleUser, Content: "질문"}},
		GenerationParams{},
		func(event StreamEvent) error {
			if event.Type != StreamEventToken {
				return nil
			}
			seen++
			if seen == 2 {
				return sentinel
			}
			return nil
		})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, seen)
}

func TestOpenAIClient_ChatMapsTurnRoles(t *testing.T) {
	var captured openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "답변"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	answer, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: datatypes.MessageRoleSystem, Content: "시스템"},
		{Role: datatypes.TurnRoleHuman, Content: "질문"},
		{Role: datatypes.TurnRoleAI, Content: "이전 답변"},
	}, GenerationParams{})

	require.NoError(t, err)
	assert.Equal(t, "답변", answer)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, captured.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, captured.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, captured.Messages[2].Role)
}

func TestOpenAIClient_EmbedReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	vector, err := client.Embed(context.Background(), "소득세법")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}
