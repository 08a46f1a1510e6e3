// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the wire and domain types shared across the
// orchestrator and the LLM backends.
package datatypes

// Message roles on the LLM wire.
const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Turn roles in stored conversation history.
const (
	TurnRoleHuman = "human"
	TurnRoleAI    = "ai"
)

// Message is a single chat message as sent to an LLM backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is a single stored conversation turn. History alternates human
// and ai turns; the store appends them in pairs after a completed answer.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToMessage converts a stored turn to its LLM wire form.
func (t Turn) ToMessage() Message {
	role := MessageRoleUser
	if t.Role == TurnRoleAI {
		role = MessageRoleAssistant
	}
	return Message{Role: role, Content: t.Content}
}

// TurnsToMessages converts a history snapshot into wire messages,
// preserving order.
func TurnsToMessages(turns []Turn) []Message {
	messages := make([]Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, t.ToMessage())
	}
	return messages
}

// FewShotExample is one worked question/answer pair injected ahead of
// the real conversation when synthesizing an answer.
type FewShotExample struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// ChatRequest is the body for POST /v1/chat and /v1/chat/stream.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// StreamEvent is one SSE frame on the streaming chat endpoint. Id,
// CreatedAt, Hash, and PrevHash are populated by the SSE writer.
type StreamEvent struct {
	Id        string       `json:"id,omitempty"`
	Type      string       `json:"type"`
	CreatedAt int64        `json:"created_at,omitempty"`
	Content   string       `json:"content,omitempty"`
	Message   string       `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	SessionId string       `json:"session_id,omitempty"`
	Sources   []SourceInfo `json:"sources,omitempty"`
	Hash      string       `json:"hash,omitempty"`
	PrevHash  string       `json:"prev_hash,omitempty"`
}

// ChatResponse is the buffered (non-streaming) answer.
type ChatResponse struct {
	Answer    string       `json:"answer"`
	SessionID string       `json:"session_id"`
	Sources   []SourceInfo `json:"sources,omitempty"`
}
