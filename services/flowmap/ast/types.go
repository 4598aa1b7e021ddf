// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts message-flow edges from TypeScript source units.
//
// The package recognizes two syntactic patterns:
//
//   - Bus usages: call expressions that dispatch a message through a named
//     bus (this.commandBus.execute(new CreateOrderCommand())).
//   - Handler declarations: class-level decorators asserting that a class
//     handles messages of a given type (@CommandHandler(CreateOrderCommand)).
//
// Detection is name-heuristic only. The extractor never resolves imports and
// never verifies that a receiver is actually a bus type; a receiver whose
// name does not match the bus naming heuristic is silently not recorded.
package ast

// Sentinel values used when inference fails.
const (
	// UnknownClass is recorded when a call expression has no enclosing
	// named class declaration.
	UnknownClass = "Unknown"

	// UnknownEvent is recorded when no message type can be inferred from a
	// dispatch call or handler annotation. Event types are never empty.
	UnknownEvent = "Unknown"
)

// BusType classifies the kind of bus a message was dispatched through.
type BusType string

const (
	// BusTypeEvent is a bus whose name contains both "event" and "bus".
	BusTypeEvent BusType = "EventBus"

	// BusTypeQuery is a bus whose name contains both "query" and "bus".
	BusTypeQuery BusType = "QueryBus"

	// BusTypeCommand is a bus whose name contains both "command" and "bus".
	BusTypeCommand BusType = "CommandBus"
)

// HandlerType classifies the kind of handler a class declares itself as.
type HandlerType string

const (
	// HandlerTypeQuery corresponds to the @QueryHandler decorator.
	HandlerTypeQuery HandlerType = "QueryHandler"

	// HandlerTypeCommand corresponds to the @CommandHandler decorator.
	HandlerTypeCommand HandlerType = "CommandHandler"

	// HandlerTypeEvents corresponds to the @EventsHandler decorator.
	HandlerTypeEvents HandlerType = "EventsHandler"
)

// Position is a one-based line/column pair relative to the originating
// source unit only. Positions from different units are not comparable.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// SourceUnit is one discovered source file: identity is the file path.
// Immutable once read.
type SourceUnit struct {
	Path    string
	Content []byte
}

// BusUsageEdge records that a class, inside a method (or at top level),
// sent a message of the inferred type through a bus of the given kind.
//
// ClassName is the bare class name, not a qualified identifier; two classes
// with the same name in different files are conflated by design. ClassName
// is UnknownClass when the call has no enclosing named class. MethodName is
// empty when the call occurs outside any method body.
type BusUsageEdge struct {
	SourceFile string   `json:"sourceFile"`
	ClassName  string   `json:"className"`
	MethodName string   `json:"methodName,omitempty"`
	BusType    BusType  `json:"busType"`
	EventType  string   `json:"eventType"`
	Position   Position `json:"position"`
}

// HandlerEdge records that a class declares itself a handler of the given
// kind for the given message type.
type HandlerEdge struct {
	SourceFile  string      `json:"sourceFile"`
	ClassName   string      `json:"className"`
	HandlerType HandlerType `json:"handlerType"`
	EventType   string      `json:"eventType"`
	Position    Position    `json:"position"`
}

// FileResult holds the edges extracted from a single source unit, in the
// order they were encountered during traversal.
//
// Errors records soft failures (syntax errors tolerated by tree-sitter);
// a file with errors still contributes whatever edges were extractable.
type FileResult struct {
	FilePath  string         `json:"filePath"`
	BusUsages []BusUsageEdge `json:"busUsages"`
	Handlers  []HandlerEdge  `json:"handlers"`
	Errors    []string       `json:"errors,omitempty"`
}
