// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flowmap

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all flowmap routes with the router group.
//
// Endpoints:
//
//	POST /v1/flowmap/scan - Scan a project and return edges + analysis
//	GET  /v1/flowmap/health - Health check
//
// Example:
//
//	service := flowmap.NewService()
//	handlers := flowmap.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	flowmap.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	fm := rg.Group("/flowmap")
	{
		fm.POST("/scan", handlers.HandleScan)
		fm.GET("/health", handlers.HandleHealth)
	}
}
