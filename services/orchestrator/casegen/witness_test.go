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

func TestParseWitnessProfiles_WellFormedRoster(t *testing.T) {
	response := `참고인1:이름=홍길동|유형=character|배경=목격자
참고인2:이름=김철수|유형=character|배경=피해자
참고인3:이름=이전문|유형=expert|배경=법의학자`

	profiles := parseWitnessProfiles(response)

	require.Len(t, profiles, 3)
	assert.Equal(t, "홍길동", profiles[0].Name)
	assert.Equal(t, datatypes.WitnessTypeCharacter, profiles[0].Type)
	assert.Equal(t, "목격자", profiles[0].Background)
	assert.Equal(t, datatypes.WitnessTypeExpert, profiles[2].Type)
}

func TestParseWitnessProfiles_SkipsMalformedLines(t *testing.T) {
	response := `다음은 참고인 목록입니다.
참고인1:이름=홍길동|유형=character|배경=목격자
참고인2 이름 김철수
참고인3:이름=|유형=expert|배경=법의학자`

	profiles := parseWitnessProfiles(response)

	require.Len(t, profiles, 1)
	assert.Equal(t, "홍길동", profiles[0].Name)
}

func TestParseWitnessProfiles_StopsAtThree(t *testing.T) {
	response := `참고인1:이름=가|유형=character|배경=a
참고인2:이름=나|유형=character|배경=b
참고인3:이름=다|유형=expert|배경=c
참고인4:이름=라|유형=character|배경=d`

	profiles := parseWitnessProfiles(response)

	require.Len(t, profiles, 3)
	assert.Equal(t, "다", profiles[2].Name)
}

func TestWitnessProfiles_PadsShortRosterFromDefaults(t *testing.T) {
	client := &mockGeneratorClient{
		generateResponse: "참고인1:이름=홍길동|유형=character|배경=목격자",
	}
	gen := NewGenerator(client)

	set, err := gen.WitnessProfiles(context.Background(), "사건 개요")

	require.NoError(t, err)
	require.Len(t, set.Profiles, 3)
	assert.True(t, set.FromFallback)
	assert.Equal(t, "홍길동", set.Profiles[0].Name)
	assert.Equal(t, "김민수", set.Profiles[1].Name)
	assert.Equal(t, "박지연", set.Profiles[2].Name)
}

func TestWitnessProfiles_UnparseableResponseUsesAllDefaults(t *testing.T) {
	client := &mockGeneratorClient{generateResponse: "죄송합니다, 형식을 따를 수 없습니다."}
	gen := NewGenerator(client)

	set, err := gen.WitnessProfiles(context.Background(), "사건 개요")

	require.NoError(t, err)
	require.Len(t, set.Profiles, 3)
	assert.True(t, set.FromFallback)
	assert.Equal(t, "김민수", set.Profiles[0].Name)
	assert.Equal(t, datatypes.WitnessTypeExpert, set.Profiles[2].Type)
}

func TestWitnessProfiles_PromptCarriesCaseSummary(t *testing.T) {
	client := &mockGeneratorClient{
		generateResponse: `참고인1:이름=가|유형=character|배경=a
참고인2:이름=나|유형=character|배경=b
참고인3:이름=다|유형=expert|배경=c`,
	}
	gen := NewGenerator(client)

	set, err := gen.WitnessProfiles(context.Background(), "한밤중 보석 절도 사건")

	require.NoError(t, err)
	assert.False(t, set.FromFallback)
	require.Len(t, client.generateCalls, 1)
	assert.Contains(t, client.generateCalls[0], "한밤중 보석 절도 사건")
}

func TestWitnessProfiles_LLMErrorWrapped(t *testing.T) {
	client := &mockGeneratorClient{generateErr: assert.AnError}
	gen := NewGenerator(client)

	_, err := gen.WitnessProfiles(context.Background(), "사건 개요")

	require.Error(t, err)
	assert.True(t, chat.IsGenerationError(err))
}
