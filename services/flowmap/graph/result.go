// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph aggregates extracted message-flow edges and derives
// architectural metrics and issues from the aggregate.
package graph

import (
	"github.com/AleutianAI/flowmap/services/flowmap/ast"
)

// AnalysisResult is the ordered aggregate of all extracted edges.
//
// Order reflects source-unit processing order as observed by the
// aggregator. It is user-visible: budget truncation is a prefix-take, so
// which edges survive depends on it. Aggregate folds per-unit results
// sequentially in input order, making the order — and therefore
// truncation — deterministic regardless of how units were scheduled.
type AnalysisResult struct {
	BusUsages []ast.BusUsageEdge `json:"busUsages"`
	Handlers  []ast.HandlerEdge  `json:"handlers"`
}

// EdgeCount returns the combined number of edges of both kinds.
func (r AnalysisResult) EdgeCount() int {
	return len(r.BusUsages) + len(r.Handlers)
}

// Aggregate concatenates per-unit results into one AnalysisResult,
// preserving input order. Nil entries (skipped units) are ignored.
func Aggregate(results []*ast.FileResult) AnalysisResult {
	agg := AnalysisResult{
		BusUsages: make([]ast.BusUsageEdge, 0),
		Handlers:  make([]ast.HandlerEdge, 0),
	}
	for _, fr := range results {
		if fr == nil {
			continue
		}
		agg.BusUsages = append(agg.BusUsages, fr.BusUsages...)
		agg.Handlers = append(agg.Handlers, fr.Handlers...)
	}
	return agg
}

// TruncateToBudget applies the deterministic edge-budget truncation.
//
// Description:
//
//	When maxEdges is positive and the combined edge count exceeds it, bus
//	usages are first truncated to a prefix of floor(maxEdges/2) if they
//	exceed that half; handlers are then truncated to a prefix of the
//	remaining budget. Truncation never reorders and never samples — it
//	keeps the earliest elements in aggregation order and drops the rest.
//	Applying the rule twice with the same budget is a fixed point.
//
//	maxEdges <= 0 means unlimited.
func (r AnalysisResult) TruncateToBudget(maxEdges int) AnalysisResult {
	if maxEdges <= 0 || r.EdgeCount() <= maxEdges {
		return r
	}

	if busBudget := maxEdges / 2; len(r.BusUsages) > busBudget {
		r.BusUsages = r.BusUsages[:busBudget]
	}

	if remaining := maxEdges - len(r.BusUsages); remaining > 0 && len(r.Handlers) > remaining {
		r.Handlers = r.Handlers[:remaining]
	}

	return r
}
