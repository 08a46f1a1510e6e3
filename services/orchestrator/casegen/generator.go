// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package casegen generates courtroom game content: case files, witness
// rosters, in-character interrogation answers, and verdicts.
package casegen

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
)

var tracer = otel.Tracer("courtroom.casegen")

const caseSummaryPrompt = `다음 형식에 맞춰 재판 게임을 위한 사건 개요와 증거를 생성해주세요.
사건 개요는 더 구체적이고 현실적이며, 용의자와 피해자의 관계, 사건 상황, 배경 등을 포함해주세요.
사건의 전후 맥락을 명확히 설명하고, 각 증거가 사건과 어떻게 연결되는지 논리적으로 설명해주세요.

[사건 제목]: (간단한 제목)
[사건 배경]: (사건 발생 이전의 상황, 인물들의 관계 등 2-3문장)
[사건 개요]: (3-4문장으로 상세한 사건 설명)
[용의자 정보]: (용의자의 신상정보, 동기, 알리바이 등)
[검사 측 증거]:
1. (검사 측 증거 1과 이 증거가 사건과 어떻게 연결되는지)
2. (검사 측 증거 2와 이 증거가 사건과 어떻게 연결되는지)
3. (검사 측 증거 3과 이 증거가 사건과 어떻게 연결되는지)
[변호사 측 증거]:
1. (변호사 측 증거 1과 이 증거가 용의자의 무죄를 어떻게 뒷받침하는지)
2. (변호사 측 증거 2와 이 증거가 용의자의 무죄를 어떻게 뒷받침하는지)
3. (변호사 측 증거 3과 이 증거가 용의자의 무죄를 어떻게 뒷받침하는지)
[핵심 쟁점]: (이 사건의 핵심 쟁점 2-3가지)`

// Generator produces courtroom game content through a single LLM backend.
type Generator struct {
	client llm.LLMClient
}

func NewGenerator(client llm.LLMClient) *Generator {
	return &Generator{client: client}
}

// CaseSummary generates a fresh case file in the fixed bracket format.
func (g *Generator) CaseSummary(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "casegen.case_summary")
	defer span.End()

	summary, err := g.client.Generate(ctx, caseSummaryPrompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "case generation failed")
		return "", &chat.GenerationError{Stage: "case_summary", Err: err}
	}
	return strings.TrimSpace(summary), nil
}
