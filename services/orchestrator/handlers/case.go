// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gavelworks/courtroom/services/orchestrator/casegen"
	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
	"github.com/gavelworks/courtroom/services/orchestrator/observability"
)

// CaseHandler serves the courtroom game endpoints.
type CaseHandler struct {
	generator *casegen.Generator
	tracer    trace.Tracer
}

func NewCaseHandler(generator *casegen.Generator) *CaseHandler {
	return &CaseHandler{
		generator: generator,
		tracer:    otel.Tracer("courtroom.handlers.case"),
	}
}

// HandleCase serves POST /v1/case with a new case file.
func (h *CaseHandler) HandleCase(c *gin.Context) {
	endpoint := observability.EndpointCase
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleCase")
	defer span.End()

	summary, err := h.generator.CaseSummary(ctx)
	if err != nil {
		h.fail(c, span, endpoint, "case generation failed", err)
		return
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, datatypes.CaseResponse{Case: summary})
}

// HandleWitnessProfiles serves POST /v1/case/witnesses.
func (h *CaseHandler) HandleWitnessProfiles(c *gin.Context) {
	endpoint := observability.EndpointWitnesses
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleWitnessProfiles")
	defer span.End()

	var req datatypes.WitnessProfilesRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, span, endpoint, err)
		return
	}

	set, err := h.generator.WitnessProfiles(ctx, req.Case)
	if err != nil {
		h.fail(c, span, endpoint, "witness generation failed", err)
		return
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, set)
}

// HandleInterrogate serves POST /v1/case/interrogate.
//
// # Description
//
// Routes the question to the defendant persona when Type is
// "defendant", otherwise to the witness persona for the given type.
func (h *CaseHandler) HandleInterrogate(c *gin.Context) {
	endpoint := observability.EndpointInterrogate
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleInterrogate")
	defer span.End()

	var req datatypes.InterrogateRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, span, endpoint, err)
		return
	}

	var answer string
	var err error
	if req.Type == "defendant" {
		answer, err = h.generator.AskDefendant(ctx, req.Question, req.Name, req.Case)
	} else {
		answer, err = h.generator.AskWitness(ctx, req.Question, req.Name, req.Type, req.Case)
	}
	if err != nil {
		h.fail(c, span, endpoint, "interrogation failed", err)
		return
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, datatypes.InterrogateResponse{Answer: answer})
}

// HandleVerdict serves POST /v1/case/verdict.
func (h *CaseHandler) HandleVerdict(c *gin.Context) {
	endpoint := observability.EndpointVerdict
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleVerdict")
	defer span.End()

	var req datatypes.VerdictRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, span, endpoint, err)
		return
	}

	verdict, err := h.generator.Judge(ctx, req)
	if err != nil {
		h.fail(c, span, endpoint, "judgment failed", err)
		return
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, true)
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *CaseHandler) badRequest(c *gin.Context, span trace.Span, endpoint observability.Endpoint, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid request body")
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, observability.ErrorCodeValidation)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func (h *CaseHandler) fail(c *gin.Context, span trace.Span, endpoint observability.Endpoint, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	slog.Error(msg, "error", err)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, false)
		m.RecordError(endpoint, observability.ErrorCodeLLMError)
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": sanitizeErrorForClient(err)})
}
