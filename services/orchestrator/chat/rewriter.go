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
)

// QueryRewriter normalizes a raw user question before retrieval.
//
// # Description
//
// Rewriting maps colloquial vocabulary onto the terms used in the
// indexed corpus (for tax law, "사람" becomes "거주자"). Questions that
// need no change pass through untouched.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type QueryRewriter interface {
	// Rewrite returns the normalized question.
	//
	// # Outputs
	//
	//   - string: The rewritten question, or the input unchanged.
	//   - error: *GenerationError if the LLM call fails.
	Rewrite(ctx context.Context, question string) (string, error)
}

// DefaultDictionary is the corpus vocabulary mapping applied to every
// incoming question.
var DefaultDictionary = []string{"사람을 나타내는 표현 -> 거주자"}

const rewritePromptTemplate = `사용자의 질문을 보고, 우리의 사전을 참고해서 사용자의 질문을 변경해주세요.
만약 변경할 필요가 없다고 판단되면, 사용자의 질문을 변경하지 않아도 됩니다.
사전: [%s]

질문: %s`

// DictionaryRewriter rewrites questions with a single LLM call against
// a fixed dictionary.
type DictionaryRewriter struct {
	client     llm.LLMClient
	dictionary []string
}

// NewDictionaryRewriter builds a rewriter over DefaultDictionary.
func NewDictionaryRewriter(client llm.LLMClient) *DictionaryRewriter {
	return NewDictionaryRewriterWithDictionary(client, DefaultDictionary)
}

func NewDictionaryRewriterWithDictionary(client llm.LLMClient, dictionary []string) *DictionaryRewriter {
	return &DictionaryRewriter{client: client, dictionary: dictionary}
}

// Rewrite implements the QueryRewriter interface.
func (r *DictionaryRewriter) Rewrite(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(rewritePromptTemplate, strings.Join(r.dictionary, ", "), question)

	rewritten, err := r.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return "", &GenerationError{Stage: "rewrite", Err: err}
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		// Fall back to the original question on an empty rewrite.
		return question, nil
	}
	return rewritten, nil
}
