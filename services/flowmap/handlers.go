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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the service over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates Handlers around the given service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleScan runs a full scan of the requested project root.
//
// Request: ScanRequest JSON body.
// Response: 200 with ScanResponse, 400 for a bad request body,
// 500 when the scan itself fails.
func (h *Handlers) HandleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		slog.Error("scan request failed",
			slog.String("project_root", req.ProjectRoot),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleHealth reports service liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
