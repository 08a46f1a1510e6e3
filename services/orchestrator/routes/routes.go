// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gavelworks/courtroom/services/orchestrator/handlers"
)

// SetupRoutes registers all HTTP endpoints on the router.
//
// The v1Middleware chain (auth, rate limiting) applies to the /v1
// group only. Health and metrics stay open for probes and scrapers.
func SetupRoutes(router *gin.Engine, chatHandler *handlers.ChatHandler,
	caseHandler *handlers.CaseHandler, documentsHandler *handlers.DocumentsHandler,
	v1Middleware ...gin.HandlerFunc) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(v1Middleware...)
	{
		v1.POST("/chat", chatHandler.HandleChat)
		v1.POST("/chat/stream", chatHandler.HandleChatStream)

		v1.POST("/documents", documentsHandler.HandleIngest)

		// Courtroom game routes
		caseGroup := v1.Group("/case")
		{
			caseGroup.POST("", caseHandler.HandleCase)
			caseGroup.POST("/witnesses", caseHandler.HandleWitnessProfiles)
			caseGroup.POST("/interrogate", caseHandler.HandleInterrogate)
			caseGroup.POST("/verdict", caseHandler.HandleVerdict)
		}
	}
}
