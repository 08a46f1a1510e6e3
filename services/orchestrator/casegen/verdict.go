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

const judgePersona = "당신은 공정하고 논리적인 AI 판사입니다."

// Verdict markers the ruling text must end with.
const (
	VerdictGuilty    = "유죄"
	VerdictNotGuilty = "무죄"
)

const judgmentPromptTemplate = `당신은 AI 판사입니다. 아래 사건 설명을 바탕으로 용의자의 유죄 여부에 대한 판단을 내려주세요.

[사건 제목]: %s
[사건 설명]: %s
[용의자]: %s
[논쟁의 핵심]: %s

이 사람이 유죄라고 판단되는 이유 또는 무죄라고 판단되는 이유를 설명한 뒤,
마지막에 '판단: 유죄' 또는 '판단: 무죄'로 정리해 주세요.`

// Judge rules on a case and extracts the final verdict marker.
//
// # Outputs
//
//   - datatypes.VerdictResponse: Full ruling text plus "유죄"/"무죄",
//     or an empty Verdict when the ruling omitted the marker.
//   - error: *chat.GenerationError if the LLM call fails.
func (g *Generator) Judge(ctx context.Context, req datatypes.VerdictRequest) (datatypes.VerdictResponse, error) {
	ctx, span := tracer.Start(ctx, "casegen.judge")
	defer span.End()

	prompt := fmt.Sprintf(judgmentPromptTemplate, req.Title, req.Description, req.Suspect, req.Hint)
	messages := []datatypes.Message{
		{Role: datatypes.MessageRoleSystem, Content: judgePersona},
		{Role: datatypes.MessageRoleUser, Content: prompt},
	}

	ruling, err := g.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "judgment failed")
		return datatypes.VerdictResponse{}, &chat.GenerationError{Stage: "judge", Err: err}
	}

	ruling = strings.TrimSpace(ruling)
	return datatypes.VerdictResponse{
		Ruling:  ruling,
		Verdict: extractVerdict(ruling),
	}, nil
}

// extractVerdict finds the last "판단: 유죄/무죄" marker in the ruling.
func extractVerdict(ruling string) string {
	idx := strings.LastIndex(ruling, "판단:")
	if idx < 0 {
		return ""
	}
	tail := ruling[idx:]
	if strings.Contains(tail, VerdictNotGuilty) {
		return VerdictNotGuilty
	}
	if strings.Contains(tail, VerdictGuilty) {
		return VerdictGuilty
	}
	return ""
}
