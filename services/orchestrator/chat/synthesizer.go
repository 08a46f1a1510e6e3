// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

const answerSystemPrompt = "2-3 문장정도의 짧은 내용의 답변을 원합니다.\n\n%s"

// AnswerSynthesizer turns retrieved chunks plus conversation state into
// a streamed answer.
//
// # Description
//
// The prompt is assembled in a fixed order: system prompt carrying the
// stuffed document contents, then the few-shot examples, then the
// session history, then the user question. Tokens are forwarded to the
// callback as they arrive; only token content reaches the callback, so
// concatenating the chunks reproduces the full answer exactly.
type AnswerSynthesizer struct {
	client   llm.LLMClient
	examples ExampleSource
}

func NewAnswerSynthesizer(client llm.LLMClient, examples ExampleSource) *AnswerSynthesizer {
	if examples == nil {
		examples = DefaultExamples()
	}
	return &AnswerSynthesizer{client: client, examples: examples}
}

// Synthesize streams the answer for input, invoking onChunk for every
// piece of answer text in order.
//
// # Outputs
//
//   - error: *GenerationError on LLM failure, or the error returned by
//     onChunk (propagated as-is so callers can abort the stream).
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, docs []datatypes.Document,
	history []datatypes.Turn, input string, onChunk func(chunk string) error) error {
	messages := s.buildMessages(docs, history, input)

	err := s.client.ChatStream(ctx, messages, llm.GenerationParams{}, func(event llm.StreamEvent) error {
		if event.Type != llm.StreamEventToken {
			return nil
		}
		return onChunk(event.Content)
	})
	if err != nil {
		if _, ok := err.(*GenerationError); ok {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &GenerationError{Stage: "synthesize", Err: err}
	}
	return nil
}

func (s *AnswerSynthesizer) buildMessages(docs []datatypes.Document,
	history []datatypes.Turn, input string) []datatypes.Message {
	contents := make([]string, 0, len(docs))
	for _, d := range docs {
		contents = append(contents, d.Content)
	}
	context := strings.Join(contents, "\n\n")

	examples := s.examples.Examples()
	messages := make([]datatypes.Message, 0, 2*len(examples)+len(history)+2)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.MessageRoleSystem,
		Content: fmt.Sprintf(answerSystemPrompt, context),
	})
	for _, ex := range examples {
		messages = append(messages,
			datatypes.Message{Role: datatypes.MessageRoleUser, Content: ex.Question},
			datatypes.Message{Role: datatypes.MessageRoleAssistant, Content: ex.Answer},
		)
	}
	messages = append(messages, datatypes.TurnsToMessages(history)...)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.MessageRoleUser,
		Content: input,
	})
	return messages
}
