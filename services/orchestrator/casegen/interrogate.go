// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package casegen

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

const characterWitnessPersona = `당신은 재판 게임에 등장하는 참고인 '%s'입니다. 아래 사건과 직접적으로 관련된 인물입니다.

사건 개요:
%s

참고인의 입장에서 기억하는 사실만을 바탕으로, 자연스러운 대화체로 답변해주세요.
모르는 내용은 모른다고 답하고, 사건 개요에 없는 사실을 지어내지 마세요.
2-3문장의 짧은 답변을 해주세요.`

const expertWitnessPersona = `당신은 재판 게임에 등장하는 전문가 참고인 '%s'입니다.

사건 개요:
%s

전문가의 관점에서 증거와 정황을 분석하여 객관적이고 논리적으로 답변해주세요.
단정할 수 없는 부분은 가능성의 수준으로 설명해주세요.
2-3문장의 짧은 답변을 해주세요.`

const defendantPersona = `당신은 재판 게임의 피고인 '%s'입니다. 당신은 자신의 무죄를 주장하고 있습니다.

사건 개요:
%s

피고인의 입장에서 일관성 있게 답변하되, 사건 개요의 사실관계를 벗어나지 마세요.
불리한 질문에는 방어적으로, 유리한 질문에는 적극적으로 답변해주세요.
2-3문장의 짧은 답변을 해주세요.`

// AskWitness answers a question in the voice of the named witness.
//
// # Inputs
//
//   - question: The player's question.
//   - name: Witness name from the case roster.
//   - witnessType: "character" or "expert"; unknown types are treated
//     as character witnesses.
//   - caseSummary: The generated case file the witness belongs to.
func (g *Generator) AskWitness(ctx context.Context, question, name, witnessType,
	caseSummary string) (string, error) {
	persona := characterWitnessPersona
	if witnessType == datatypes.WitnessTypeExpert {
		persona = expertWitnessPersona
	}
	return g.askInCharacter(ctx, "casegen.ask_witness", persona, name, caseSummary, question)
}

// AskDefendant answers a question in the voice of the defendant.
func (g *Generator) AskDefendant(ctx context.Context, question, name,
	caseSummary string) (string, error) {
	return g.askInCharacter(ctx, "casegen.ask_defendant", defendantPersona, name, caseSummary, question)
}

func (g *Generator) askInCharacter(ctx context.Context, spanName, persona, name,
	caseSummary, question string) (string, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	messages := []datatypes.Message{
		{Role: datatypes.MessageRoleSystem, Content: fmt.Sprintf(persona, name, caseSummary)},
		{Role: datatypes.MessageRoleUser, Content: question},
	}
	answer, err := g.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "interrogation failed")
		return "", &chat.GenerationError{Stage: "interrogate", Err: err}
	}
	return strings.TrimSpace(answer), nil
}
