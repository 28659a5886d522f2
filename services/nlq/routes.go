// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlq

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all NLQ routes with the router.
//
// Description:
//
//	Registers all /v1/nlq/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/nlq/query - Ask a natural-language question
//	GET  /v1/nlq/schema - Inspect the active schema description
//	GET  /v1/nlq/history - List recent query records
//	GET  /v1/nlq/health - Health check
//	GET  /v1/nlq/ready - Readiness check
//
// Example:
//
//	svc := nlq.NewService(agent, historyStore)
//	handlers := nlq.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	nlq.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	nlq := rg.Group("/nlq")
	{
		// Question pipeline
		nlq.POST("/query", handlers.HandleQuery)

		// Schema inspection
		nlq.GET("/schema", handlers.HandleSchema)

		// Query history
		nlq.GET("/history", handlers.HandleHistory)

		// Health checks
		nlq.GET("/health", handlers.HandleHealth)
		nlq.GET("/ready", handlers.HandleReady)
	}
}
