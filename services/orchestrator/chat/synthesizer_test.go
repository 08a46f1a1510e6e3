// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

func TestAnswerSynthesizer_ConcatenationReproducesAnswer(t *testing.T) {
	client := &mockLLMClient{streamTokens: []string{"거주자의 ", "소득세율은 ", "6%부터 시작합니다."}}
	synth := NewAnswerSynthesizer(client, nil)

	var b strings.Builder
	err := synth.Synthesize(context.Background(), nil, nil, "질문", func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "거주자의 소득세율은 6%부터 시작합니다.", b.String())
}

func TestAnswerSynthesizer_MessageOrder(t *testing.T) {
	examples := StaticExamples{
		{Question: "예시 질문", Answer: "예시 답변"},
	}
	client := &mockLLMClient{streamTokens: []string{"답변"}}
	synth := NewAnswerSynthesizer(client, examples)

	docs := []datatypes.Document{
		{Content: "첫 번째 조문", Source: "a.pdf"},
		{Content: "두 번째 조문", Source: "b.pdf"},
	}
	history := sampleHistory()

	err := synth.Synthesize(context.Background(), docs, history, "그 세율은?", func(string) error {
		return nil
	})
	require.NoError(t, err)

	require.Len(t, client.streamCalls, 1)
	messages := client.streamCalls[0]
	// system + 1 example pair + 2 history turns + input
	require.Len(t, messages, 6)

	assert.Equal(t, datatypes.MessageRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "짧은 내용의 답변")
	assert.Contains(t, messages[0].Content, "첫 번째 조문\n\n두 번째 조문")

	assert.Equal(t, "예시 질문", messages[1].Content)
	assert.Equal(t, datatypes.MessageRoleAssistant, messages[2].Role)
	assert.Equal(t, "예시 답변", messages[2].Content)

	assert.Equal(t, "소득세법상 거주자가 뭐야?", messages[3].Content)
	assert.Equal(t, "그 세율은?", messages[5].Content)
	assert.Equal(t, datatypes.MessageRoleUser, messages[5].Role)
}

func TestAnswerSynthesizer_EmptyDocsStillAnswers(t *testing.T) {
	client := &mockLLMClient{streamTokens: []string{"답변"}}
	synth := NewAnswerSynthesizer(client, StaticExamples{})

	err := synth.Synthesize(context.Background(), nil, nil, "질문", func(string) error {
		return nil
	})

	require.NoError(t, err)
	require.Len(t, client.streamCalls, 1)
	assert.Equal(t, datatypes.MessageRoleSystem, client.streamCalls[0][0].Role)
}

func TestAnswerSynthesizer_CallbackErrorAbortsStream(t *testing.T) {
	sentinel := errors.New("consumer gone")
	client := &mockLLMClient{streamTokens: []string{"첫", "둘", "셋"}}
	synth := NewAnswerSynthesizer(client, nil)

	var seen int
	err := synth.Synthesize(context.Background(), nil, nil, "질문", func(string) error {
		seen++
		if seen == 2 {
			return sentinel
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, seen)
}

func TestAnswerSynthesizer_LLMErrorWrapped(t *testing.T) {
	client := &mockLLMClient{streamErr: assert.AnError}
	synth := NewAnswerSynthesizer(client, nil)

	err := synth.Synthesize(context.Background(), nil, nil, "질문", func(string) error {
		return nil
	})

	require.Error(t, err)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "synthesize", genErr.Stage)
}
