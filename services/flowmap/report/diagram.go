// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/flowmap/services/flowmap/graph"
)

// DiagramGenerator names a supported diagram output syntax.
type DiagramGenerator string

const (
	// GeneratorMermaid renders a Mermaid flowchart.
	GeneratorMermaid DiagramGenerator = "mermaid"

	// GeneratorDot renders a Graphviz digraph.
	GeneratorDot DiagramGenerator = "dot"
)

// ErrUnsupportedGenerator is returned for an unrecognized generator name.
// This is a hard failure: it indicates a configuration mistake, not a
// data condition.
var ErrUnsupportedGenerator = fmt.Errorf("unsupported diagram generator")

// DiagramRenderer turns an edge set into a node/edge visual description.
type DiagramRenderer interface {
	Render(edges graph.AnalysisResult) string
}

// NewDiagramRenderer returns the renderer for the given generator name.
func NewDiagramRenderer(generator DiagramGenerator) (DiagramRenderer, error) {
	switch generator {
	case GeneratorMermaid:
		return mermaidRenderer{}, nil
	case GeneratorDot:
		return dotRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGenerator, generator)
	}
}

type mermaidRenderer struct{}

// Render produces a Mermaid flowchart with classes as rectangles and
// event types as rounded nodes: producers point at event types, event
// types point at their handlers.
func (mermaidRenderer) Render(edges graph.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	emitted := make(map[string]bool)
	for _, edge := range edges.BusUsages {
		line := fmt.Sprintf("    %s -->|%s| %s([%s])\n",
			nodeID(edge.ClassName), edge.BusType, nodeID(edge.EventType), edge.EventType)
		if !emitted[line] {
			emitted[line] = true
			b.WriteString(line)
		}
	}
	for _, edge := range edges.Handlers {
		line := fmt.Sprintf("    %s([%s]) -->|%s| %s\n",
			nodeID(edge.EventType), edge.EventType, edge.HandlerType, nodeID(edge.ClassName))
		if !emitted[line] {
			emitted[line] = true
			b.WriteString(line)
		}
	}

	return b.String()
}

type dotRenderer struct{}

// Render produces a Graphviz digraph with the same topology as the
// Mermaid renderer.
func (dotRenderer) Render(edges graph.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("digraph flowmap {\n")
	b.WriteString("    rankdir=LR;\n")

	emitted := make(map[string]bool)
	for _, edge := range edges.BusUsages {
		line := fmt.Sprintf("    %q -> %q [label=%q];\n",
			edge.ClassName, edge.EventType, string(edge.BusType))
		if !emitted[line] {
			emitted[line] = true
			b.WriteString(line)
		}
	}
	for _, edge := range edges.Handlers {
		line := fmt.Sprintf("    %q -> %q [label=%q];\n",
			edge.EventType, edge.ClassName, string(edge.HandlerType))
		if !emitted[line] {
			emitted[line] = true
			b.WriteString(line)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// nodeID sanitizes a name into a Mermaid-safe node identifier.
func nodeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
