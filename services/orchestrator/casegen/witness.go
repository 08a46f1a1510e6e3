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
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/gavelworks/courtroom/services/llm"
	"github.com/gavelworks/courtroom/services/orchestrator/chat"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// witnessCount is the fixed roster size for every case.
const witnessCount = 3

const witnessProfilesPrompt = `다음 사건 개요를 바탕으로 게임에 등장할 참고인 3명의 프로필을 만들어주세요.
참고인은 사건과 직접적으로 관련된 인물 2명(피해자, 목격자 등)과 전문가 1명(법의학자, 심리학자 등)으로 구성해주세요.

사건 개요:
%s

다음 형식으로 각 참고인의 정보를 제공해주세요:

참고인1:이름=홍길동|유형=character|배경=목격자
참고인2:이름=김철수|유형=character|배경=피해자
참고인3:이름=이전문|유형=expert|배경=법의학자

각 참고인 정보는 새로운 줄에 제공하고, 정보 간에는 | 기호로 구분해주세요.
다른 설명 없이 위 형식의 응답만 제공해주세요.`

// defaultWitnessProfiles is the stock roster substituted when the
// model response cannot be parsed into three usable profiles.
func defaultWitnessProfiles() []datatypes.WitnessProfile {
	return []datatypes.WitnessProfile{
		{Name: "김민수", Type: datatypes.WitnessTypeCharacter, Background: "사건 목격자"},
		{Name: "박지연", Type: datatypes.WitnessTypeCharacter, Background: "관련자"},
		{Name: "박건우", Type: datatypes.WitnessTypeExpert, Background: "법의학 전문가"},
	}
}

// WitnessProfiles generates the three-person roster for a case.
//
// # Description
//
// The model is asked for a rigid line format and the response is parsed
// leniently: malformed lines are skipped, and a roster short of three
// profiles is padded from the stock defaults. FromFallback reports
// whether any padding happened, so callers can surface degraded output.
//
// # Outputs
//
//   - datatypes.WitnessProfileSet: Exactly three profiles.
//   - error: *chat.GenerationError if the LLM call itself fails.
func (g *Generator) WitnessProfiles(ctx context.Context, caseSummary string) (datatypes.WitnessProfileSet, error) {
	ctx, span := tracer.Start(ctx, "casegen.witness_profiles")
	defer span.End()

	prompt := fmt.Sprintf(witnessProfilesPrompt, caseSummary)
	response, err := g.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "witness generation failed")
		return datatypes.WitnessProfileSet{}, &chat.GenerationError{Stage: "witness_profiles", Err: err}
	}

	profiles := parseWitnessProfiles(response)
	set := datatypes.WitnessProfileSet{Profiles: profiles}
	if len(profiles) < witnessCount {
		slog.Warn("witness roster incomplete, padding from defaults",
			"parsed", len(profiles),
		)
		defaults := defaultWitnessProfiles()
		set.Profiles = append(set.Profiles, defaults[:witnessCount-len(profiles)]...)
		set.FromFallback = true
	}
	set.Profiles = set.Profiles[:witnessCount]
	return set, nil
}

// parseWitnessProfiles extracts profiles from the delimited line format.
// Lines that do not start with 참고인 or lack the = and | separators are
// ignored; a profile needs at least a name and a type to count.
func parseWitnessProfiles(response string) []datatypes.WitnessProfile {
	var profiles []datatypes.WitnessProfile
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "참고인") {
			continue
		}
		if !strings.Contains(line, "=") || !strings.Contains(line, "|") {
			continue
		}
		_, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		var profile datatypes.WitnessProfile
		for _, part := range strings.Split(rest, "|") {
			key, value, found := strings.Cut(part, "=")
			if !found {
				continue
			}
			switch strings.TrimSpace(key) {
			case "이름":
				profile.Name = strings.TrimSpace(value)
			case "유형":
				profile.Type = strings.TrimSpace(value)
			case "배경":
				profile.Background = strings.TrimSpace(value)
			}
		}
		if profile.Name != "" && profile.Type != "" {
			profiles = append(profiles, profile)
		}
		if len(profiles) == witnessCount {
			break
		}
	}
	return profiles
}
