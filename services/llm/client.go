package llm

import (
	"context"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType identifies the kind of event emitted during streaming.
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// StreamEvent is a single event emitted by ChatStream.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Err     error           `json:"-"`
}

// StreamCallback receives streaming events. Returning a non-nil error
// aborts the stream.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Generate completes a single prompt without conversation state.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat conducts a conversation with explicit message history.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream streams a conversation response token-by-token via callback.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams,
		callback StreamCallback) error
}

// Embedder produces a vector representation of a text span.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateFunc adapts a plain function to the Generate side of an LLM
// backend. Useful in tests and in components that only need Generate.
type GenerateFunc func(ctx context.Context, prompt string, params GenerationParams) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}
