// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("courtroom.llm.ollama")

// OllamaClient talks to a local Ollama server. It exists so the service
// can run fully offline during development without an OpenAI key.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []datatypes.Message `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message datatypes.Message `json:"message"`
	Done    bool              `json:"done"`
}

func NewOllamaClient() *OllamaClient {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
		slog.Warn("OLLAMA_BASE_URL not set, defaulting", "base_url", baseURL)
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1"
		slog.Warn("OLLAMA_MODEL not set, defaulting", "model", model)
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 300 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

// Generate implements the LLMClient interface.
func (o *OllamaClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	messages := []datatypes.Message{{Role: datatypes.MessageRoleUser, Content: prompt}}
	return o.Chat(ctx, messages, params)
}

// Chat implements the LLMClient interface.
func (o *OllamaClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {
	body, err := o.doChat(ctx, messages, params, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp ollamaChatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	return resp.Message.Content, nil
}

// ChatStream implements the LLMClient interface. Ollama streams
// newline-delimited JSON objects, one per token batch.
func (o *OllamaClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {
	ctx, span := tracer.Start(ctx, "ollama.chat_stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	body, err := o.doChat(ctx, messages, params, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat request failed")
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream decode failed")
			_ = callback(StreamEvent{Type: StreamEventError, Err: err})
			return fmt.Errorf("failed to decode Ollama stream chunk: %w", err)
		}
		if chunk.Message.Content != "" {
			if err := callback(StreamEvent{Type: StreamEventToken, Content: chunk.Message.Content}); err != nil {
				return err
			}
		}
		if chunk.Done {
			return callback(StreamEvent{Type: StreamEventDone})
		}
	}
	if err := scanner.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream read failed")
		_ = callback(StreamEvent{Type: StreamEventError, Err: err})
		return fmt.Errorf("Ollama stream read failed: %w", err)
	}
	return callback(StreamEvent{Type: StreamEventDone})
}

func (o *OllamaClient) doChat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, stream bool) (io.ReadCloser, error) {
	wire := make([]datatypes.Message, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, datatypes.Message{Role: openAIRole(m.Role), Content: m.Content})
	}

	reqBody := ollamaChatRequest{
		Model:    o.model,
		Messages: wire,
		Stream:   stream,
		Options:  map[string]any{},
	}
	if params.Temperature != nil {
		reqBody.Options["temperature"] = *params.Temperature
	}
	if params.TopK != nil {
		reqBody.Options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		reqBody.Options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		reqBody.Options["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		reqBody.Options["stop"] = params.Stop
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}
