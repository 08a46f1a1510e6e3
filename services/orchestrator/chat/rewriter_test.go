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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryRewriter_UsesDictionaryInPrompt(t *testing.T) {
	client := &mockLLMClient{generateResponse: "소득세법상 거주자의 정의가 뭐야?"}
	rewriter := NewDictionaryRewriter(client)

	rewritten, err := rewriter.Rewrite(context.Background(), "사람을 나타내는 표현이 뭐야?")

	require.NoError(t, err)
	assert.Equal(t, "소득세법상 거주자의 정의가 뭐야?", rewritten)
	require.Len(t, client.generateCalls, 1)
	assert.Contains(t, client.generateCalls[0], "사람을 나타내는 표현 -> 거주자")
	assert.Contains(t, client.generateCalls[0], "사람을 나타내는 표현이 뭐야?")
}

func TestDictionaryRewriter_TrimsWhitespace(t *testing.T) {
	client := &mockLLMClient{generateResponse: "  거주자의 정의가 뭐야?\n"}
	rewriter := NewDictionaryRewriter(client)

	rewritten, err := rewriter.Rewrite(context.Background(), "질문")

	require.NoError(t, err)
	assert.Equal(t, "거주자의 정의가 뭐야?", rewritten)
}

func TestDictionaryRewriter_EmptyResponseFallsBackToInput(t *testing.T) {
	client := &mockLLMClient{generateResponse: "   \n"}
	rewriter := NewDictionaryRewriter(client)

	rewritten, err := rewriter.Rewrite(context.Background(), "원래 질문")

	require.NoError(t, err)
	assert.Equal(t, "원래 질문", rewritten)
}

func TestDictionaryRewriter_WrapsLLMError(t *testing.T) {
	cause := errors.New("connection refused")
	client := &mockLLMClient{generateErr: cause}
	rewriter := NewDictionaryRewriter(client)

	_, err := rewriter.Rewrite(context.Background(), "질문")

	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "rewrite", genErr.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestDictionaryRewriter_CustomDictionary(t *testing.T) {
	client := &mockLLMClient{generateResponse: "변경된 질문"}
	rewriter := NewDictionaryRewriterWithDictionary(client,
		[]string{"피고 -> 피고인", "원고 -> 고소인"})

	_, err := rewriter.Rewrite(context.Background(), "피고는 누구야?")

	require.NoError(t, err)
	require.Len(t, client.generateCalls, 1)
	assert.Contains(t, client.generateCalls[0], "피고 -> 피고인, 원고 -> 고소인")
}
