// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package casegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

func TestExtractVerdict(t *testing.T) {
	tests := []struct {
		name   string
		ruling string
		want   string
	}{
		{"guilty", "증거가 충분합니다.\n판단: 유죄", VerdictGuilty},
		{"not guilty", "증거가 부족합니다.\n판단: 무죄", VerdictNotGuilty},
		{"last marker wins", "판단: 유죄라고 볼 수도 있으나...\n판단: 무죄", VerdictNotGuilty},
		{"missing marker", "판단을 내리기 어렵습니다.", ""},
		{"marker without verdict", "판단: 보류합니다.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractVerdict(tt.ruling))
		})
	}
}

func TestJudge_RulingAndVerdict(t *testing.T) {
	client := &mockGeneratorClient{
		chatResponse: "용의자의 지문이 발견되었고 알리바이가 없습니다.\n판단: 유죄",
	}
	gen := NewGenerator(client)

	resp, err := gen.Judge(context.Background(), datatypes.VerdictRequest{
		Title:       "보석 절도 사건",
		Description: "한밤중 박물관에서 보석이 사라졌다.",
		Suspect:     "김용의",
		Hint:        "지문과 알리바이",
	})

	require.NoError(t, err)
	assert.Equal(t, VerdictGuilty, resp.Verdict)
	assert.Contains(t, resp.Ruling, "지문")

	require.Len(t, client.chatCalls, 1)
	messages := client.chatCalls[0]
	require.Len(t, messages, 2)
	assert.Equal(t, judgePersona, messages[0].Content)
	assert.Contains(t, messages[1].Content, "[사건 제목]: 보석 절도 사건")
	assert.Contains(t, messages[1].Content, "[용의자]: 김용의")
}

func TestJudge_LLMErrorWrapped(t *testing.T) {
	client := &mockGeneratorClient{chatErr: assert.AnError}
	gen := NewGenerator(client)

	_, err := gen.Judge(context.Background(), datatypes.VerdictRequest{Title: "사건"})

	require.Error(t, err)
	assert.True(t, chat.IsGenerationError(err))
}

func TestCaseSummary_UsesFixedPrompt(t *testing.T) {
	client := &mockGeneratorClient{generateResponse: "[사건 제목]: 보석 절도 사건\n..."}
	gen := NewGenerator(client)

	summary, err := gen.CaseSummary(context.Background())

	require.NoError(t, err)
	assert.Contains(t, summary, "[사건 제목]")
	require.Len(t, client.generateCalls, 1)
	assert.Contains(t, client.generateCalls[0], "[사건 개요]")
}

func TestAskWitness_ExpertGetsExpertPersona(t *testing.T) {
	client := &mockGeneratorClient{chatResponse: "혈흔 분석 결과로는 단정할 수 없습니다."}
	gen := NewGenerator(client)

	answer, err := gen.AskWitness(context.Background(),
		"혈흔은 누구의 것입니까?", "이전문", datatypes.WitnessTypeExpert, "사건 개요 본문")

	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	require.Len(t, client.chatCalls, 1)
	system := client.chatCalls[0][0].Content
	assert.Contains(t, system, "전문가 참고인 '이전문'")
	assert.Contains(t, system, "사건 개요 본문")
}

func TestAskWitness_UnknownTypeTreatedAsCharacter(t *testing.T) {
	client := &mockGeneratorClient{chatResponse: "그날 밤 소리를 들었습니다."}
	gen := NewGenerator(client)

	_, err := gen.AskWitness(context.Background(), "무엇을 보았나요?", "홍길동", "unknown", "사건 개요")

	require.NoError(t, err)
	require.Len(t, client.chatCalls, 1)
	assert.Contains(t, client.chatCalls[0][0].Content, "참고인 '홍길동'")
}

func TestAskDefendant_UsesDefendantPersona(t *testing.T) {
	client := &mockGeneratorClient{chatResponse: "저는 그 시간에 집에 있었습니다."}
	gen := NewGenerator(client)

	_, err := gen.AskDefendant(context.Background(), "어디에 있었나요?", "김용의", "사건 개요")

	require.NoError(t, err)
	require.Len(t, client.chatCalls, 1)
	system := client.chatCalls[0][0].Content
	assert.Contains(t, system, "피고인 '김용의'")
	assert.Equal(t, "어디에 있었나요?", client.chatCalls[0][1].Content)
}
