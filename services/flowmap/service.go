// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package flowmap wires scanning, analysis and rendering behind a small
// service facade consumed by the CLI and the HTTP API.
package flowmap

import (
	"context"
	"fmt"

	"github.com/AleutianAI/flowmap/services/flowmap/ast"
	"github.com/AleutianAI/flowmap/services/flowmap/config"
	"github.com/AleutianAI/flowmap/services/flowmap/graph"
	"github.com/AleutianAI/flowmap/services/flowmap/scan"
)

// ScanRequest describes one analysis run.
type ScanRequest struct {
	// ProjectRoot is the directory to scan. Required.
	ProjectRoot string `json:"project_root" binding:"required"`

	// MaxEdges overrides the edge budget for this run. 0 defers to the
	// project config, which defaults to unlimited.
	MaxEdges int `json:"max_edges"`
}

// ScanResponse bundles a run's edges and analysis.
type ScanResponse struct {
	Edges    graph.AnalysisResult              `json:"edges"`
	Analysis *graph.ArchitectureAnalysisResult `json:"analysis"`
}

// Service runs full scans: config load, discovery, extraction,
// aggregation, truncation, analysis.
//
// Thread Safety: Service is stateless and safe for concurrent use.
type Service struct{}

// NewService creates a Service.
func NewService() *Service {
	return &Service{}
}

// Run executes one full scan of the given project root.
//
// Description:
//
//	Loads flowmap.config.yaml from the project root (missing file means
//	defaults), builds a scanner and analyzer honoring the overrides, and
//	returns both the aggregated edge set and the architecture analysis.
//
// Outputs:
//
//	*ScanResponse - Edges and analysis. Never nil on success.
//	error - Non-nil when the project root is empty, the config is
//	malformed, or discovery fails.
func (s *Service) Run(ctx context.Context, req ScanRequest) (*ScanResponse, error) {
	if req.ProjectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}

	cfg, err := config.Load(req.ProjectRoot)
	if err != nil {
		return nil, err
	}

	maxEdges := cfg.MaxEdges
	if req.MaxEdges > 0 {
		maxEdges = req.MaxEdges
	}

	scannerOpts := []scan.ScannerOption{scan.WithMaxEdges(maxEdges)}
	if len(cfg.ExcludeSuffixes) > 0 {
		scannerOpts = append(scannerOpts, scan.WithExcludeSuffixes(cfg.ExcludeSuffixes))
	}
	if len(cfg.DispatchMethods) > 0 {
		scannerOpts = append(scannerOpts,
			scan.WithExtractor(ast.NewExtractor(ast.WithDispatchMethods(cfg.DispatchMethods))))
	}

	edges, err := scan.NewScanner(scannerOpts...).Scan(ctx, req.ProjectRoot)
	if err != nil {
		return nil, err
	}

	var analyzerOpts []graph.AnalyzerOption
	if cfg.CouplingThreshold > 0 {
		analyzerOpts = append(analyzerOpts, graph.WithCouplingThreshold(cfg.CouplingThreshold))
	}
	analysis := graph.NewAnalyzer(analyzerOpts...).Analyze(edges)

	return &ScanResponse{Edges: edges, Analysis: analysis}, nil
}
