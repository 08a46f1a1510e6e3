// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Witness profile types. "character" witnesses are people involved in
// the incident; "expert" witnesses give professional opinions.
const (
	WitnessTypeCharacter = "character"
	WitnessTypeExpert    = "expert"
)

// WitnessProfile is one participant in a generated courtroom case.
type WitnessProfile struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Background string `json:"background"`
}

// WitnessProfileSet is the parsed roster for a case plus a flag telling
// callers whether the model output was unusable and the stock roster was
// substituted instead.
type WitnessProfileSet struct {
	Profiles     []WitnessProfile `json:"profiles"`
	FromFallback bool             `json:"from_fallback"`
}

// CaseResponse carries a freshly generated case summary.
type CaseResponse struct {
	Case string `json:"case"`
}

// WitnessProfilesRequest asks for the roster of a previously generated case.
type WitnessProfilesRequest struct {
	Case string `json:"case" binding:"required"`
}

// InterrogateRequest is one question aimed at a witness or the defendant.
type InterrogateRequest struct {
	Case     string `json:"case" binding:"required"`
	Question string `json:"question" binding:"required"`
	Name     string `json:"name" binding:"required"`
	// Type is a witness type for witnesses, or "defendant".
	Type string `json:"type" binding:"required"`
}

// InterrogateResponse is the in-character reply.
type InterrogateResponse struct {
	Answer string `json:"answer"`
}

// VerdictRequest asks the judge to rule on a case.
type VerdictRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Suspect     string `json:"suspect" binding:"required"`
	// Hint names the core point of contention in the trial.
	Hint string `json:"hint"`
}

// VerdictResponse is the judge's ruling. Verdict is "유죄", "무죄", or
// empty when the ruling text did not state one.
type VerdictResponse struct {
	Ruling  string `json:"ruling"`
	Verdict string `json:"verdict,omitempty"`
}
