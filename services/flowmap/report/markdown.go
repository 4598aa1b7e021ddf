// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders analysis output as textual documents and
// diagrams. Rendering fidelity is best-effort; the analyzer's result
// shapes are the stable contract, not the rendered text.
package report

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/flowmap/services/flowmap/graph"
)

// RenderMarkdown turns metrics and issues into a Markdown document.
//
// AverageConnections is rounded to two decimals here; the analyzer keeps
// the fractional value.
func RenderMarkdown(analysis *graph.ArchitectureAnalysisResult, edges graph.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("# Message-Flow Architecture Report\n\n")

	b.WriteString("## Metrics\n\n")
	m := analysis.Metrics
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Classes | %d |\n", m.TotalClasses)
	fmt.Fprintf(&b, "| Event types | %d |\n", m.TotalEvents)
	fmt.Fprintf(&b, "| Event types with producers | %d |\n", m.EventProducers)
	fmt.Fprintf(&b, "| Event types with consumers | %d |\n", m.EventConsumers)
	fmt.Fprintf(&b, "| Dual-role classes | %d |\n", m.DualRoleClasses)
	fmt.Fprintf(&b, "| Unhandled event types | %d |\n", m.OrphanEvents)
	fmt.Fprintf(&b, "| Orphan handlers | %d |\n", m.OrphanHandlers)
	fmt.Fprintf(&b, "| Average connections per class | %.2f |\n", m.AverageConnections)

	b.WriteString("\n## Issues\n\n")
	if len(analysis.Issues) == 0 {
		b.WriteString("No issues found.\n")
	}
	for _, issue := range analysis.Issues {
		fmt.Fprintf(&b, "### %s (%s)\n\n", issue.Type, issue.Severity)
		fmt.Fprintf(&b, "%s\n\n", issue.Description)
		for _, element := range issue.Elements {
			fmt.Fprintf(&b, "- `%s`\n", element)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Bus Usages\n\n")
	if len(edges.BusUsages) == 0 {
		b.WriteString("None detected.\n")
	} else {
		b.WriteString("| Class | Method | Bus | Event type | Location |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, edge := range edges.BusUsages {
			method := edge.MethodName
			if method == "" {
				method = "(top level)"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s:%d |\n",
				edge.ClassName, method, edge.BusType, edge.EventType,
				edge.SourceFile, edge.Position.Line)
		}
	}

	b.WriteString("\n## Handler Declarations\n\n")
	if len(edges.Handlers) == 0 {
		b.WriteString("None detected.\n")
	} else {
		b.WriteString("| Class | Handler | Event type | Location |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, edge := range edges.Handlers {
			fmt.Fprintf(&b, "| %s | %s | %s | %s:%d |\n",
				edge.ClassName, edge.HandlerType, edge.EventType,
				edge.SourceFile, edge.Position.Line)
		}
	}

	return b.String()
}
