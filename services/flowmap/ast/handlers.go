// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// handlerAnnotationRe matches @QueryHandler(...), @CommandHandler(...) and
// @EventsHandler(...) occurrences in rendered class source. A class may
// declare several handler annotations; every occurrence is matched.
var handlerAnnotationRe = regexp.MustCompile(`@(QueryHandler|CommandHandler|EventsHandler)\s*\(([^)]*)\)`)

// identTokenRe matches the first run of alphanumeric/underscore characters
// inside an annotation's argument text. This deliberately crude rule
// ignores qualified names, generics, and everything past the first
// recognizable token.
var identTokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// handlerTypeNames maps decorator identifier text to the handler kind.
var handlerTypeNames = map[string]HandlerType{
	"QueryHandler":   HandlerTypeQuery,
	"CommandHandler": HandlerTypeCommand,
	"EventsHandler":  HandlerTypeEvents,
}

// extractHandlers inspects a named class declaration for handler
// annotations. Every named class is inspected, independent of whether the
// traversal also matched bus usages inside it.
//
// Description:
//
//	Two independent detection paths run and their outputs are merged:
//
//	Path A (lexical) re-renders the class declaration's full source text —
//	including its decorators — and scans it with handlerAnnotationRe.
//
//	Path B (structural) walks the declaration's decorator nodes and
//	inspects call decorators whose callee matches a handler name. Path B is
//	best-effort: a decorator whose shape cannot be introspected is logged
//	at debug level and skipped, never surfaced as an error.
//
//	Reconciliation: a Path B result is discarded when an edge with the same
//	(className, handlerType) pair already exists in the accumulated result.
//	Suppression is keyed on class + handler kind only, not on event type,
//	so when the two paths disagree on the inferred type for the same
//	handler kind, Path A's value silently wins.
func (e *Extractor) extractHandlers(node *sitter.Node, content []byte, filePath string, result *FileResult) {
	className := classDeclarationName(node, content)
	if className == "" {
		return
	}

	e.extractHandlersLexical(node, content, filePath, className, result)
	e.extractHandlersStructural(node, content, filePath, className, result)
}

// extractHandlersLexical is Path A: a pattern scan over the class
// declaration's rendered source text.
func (e *Extractor) extractHandlersLexical(node *sitter.Node, content []byte, filePath, className string, result *FileResult) {
	renderNode := node
	if parent := node.Parent(); parent != nil && parent.Type() == tsNodeExportStatement {
		// Decorators on exported classes attach to the export statement,
		// not the class node; render the whole statement so they are seen.
		renderNode = parent
	}
	text := string(content[renderNode.StartByte():renderNode.EndByte()])
	base := positionOf(renderNode)

	for _, match := range handlerAnnotationRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[match[2]:match[3]]
		argText := text[match[4]:match[5]]

		eventType := UnknownEvent
		if token := identTokenRe.FindString(argText); token != "" {
			eventType = token
		}

		result.Handlers = append(result.Handlers, HandlerEdge{
			SourceFile:  filePath,
			ClassName:   className,
			HandlerType: handlerTypeNames[name],
			EventType:   eventType,
			Position:    offsetPosition(base, text, match[0]),
		})
	}
}

// extractHandlersStructural is Path B: a walk over the declaration's
// structured decorator list, deduplicated against Path A's results.
func (e *Extractor) extractHandlersStructural(node *sitter.Node, content []byte, filePath, className string, result *FileResult) {
	for _, dec := range classDecorators(node) {
		handlerType, eventType, pos, err := inspectHandlerDecorator(dec, content)
		if err != nil {
			slog.Debug("structural decorator introspection failed",
				slog.String("file", filePath),
				slog.String("class", className),
				slog.String("error", err.Error()))
			continue
		}
		if handlerType == "" {
			continue
		}

		if hasHandlerEdge(result.Handlers, className, handlerType) {
			continue
		}

		result.Handlers = append(result.Handlers, HandlerEdge{
			SourceFile:  filePath,
			ClassName:   className,
			HandlerType: handlerType,
			EventType:   eventType,
			Position:    pos,
		})
	}
}

// classDecorators collects the decorator nodes attached to a class
// declaration. When the class is exported, tree-sitter hangs the
// decorators off the enclosing export statement, so both locations are
// checked.
func classDecorators(node *sitter.Node) []*sitter.Node {
	var decorators []*sitter.Node

	collect := func(host *sitter.Node) {
		for i := 0; i < int(host.ChildCount()); i++ {
			child := host.Child(i)
			if child != nil && child.Type() == tsNodeDecorator {
				decorators = append(decorators, child)
			}
		}
	}

	collect(node)
	if parent := node.Parent(); parent != nil && parent.Type() == tsNodeExportStatement {
		collect(parent)
	}
	return decorators
}

// inspectHandlerDecorator introspects one decorator node.
//
// Returns a zero HandlerType when the decorator is well-formed but not a
// handler annotation (e.g. @Injectable()), and an error when the node
// shape cannot be introspected at all. The event type uses the same
// argument fallback rule as dispatch calls; decorators are rendered as
// call expressions, so no generic-argument path applies here.
func inspectHandlerDecorator(dec *sitter.Node, content []byte) (HandlerType, string, Position, error) {
	if dec == nil {
		return "", "", Position{}, fmt.Errorf("nil decorator node")
	}

	var call *sitter.Node
	for i := 0; i < int(dec.ChildCount()); i++ {
		child := dec.Child(i)
		if child != nil && child.Type() == tsNodeCallExpression {
			call = child
			break
		}
	}
	if call == nil {
		// Bare decorator (@Injectable without a call) — not a handler.
		return "", "", Position{}, nil
	}

	funcNode := call.ChildByFieldName("function")
	if funcNode == nil {
		return "", "", Position{}, fmt.Errorf("decorator call has no callee")
	}
	if funcNode.Type() != tsNodeIdentifier {
		return "", "", Position{}, nil
	}

	handlerType, ok := handlerTypeNames[string(content[funcNode.StartByte():funcNode.EndByte()])]
	if !ok {
		return "", "", Position{}, nil
	}

	eventType := UnknownEvent
	if name := eventTypeFromArgument(firstCallArgument(call), content); name != "" {
		eventType = name
	}

	return handlerType, eventType, positionOf(dec), nil
}

// hasHandlerEdge reports whether an edge for the (className, handlerType)
// pair is already present in the accumulated result.
func hasHandlerEdge(edges []HandlerEdge, className string, handlerType HandlerType) bool {
	for _, edge := range edges {
		if edge.ClassName == className && edge.HandlerType == handlerType {
			return true
		}
	}
	return false
}

// offsetPosition translates a byte offset inside rendered text into a
// one-based position relative to the source unit, given the position of
// the rendered text's first byte.
func offsetPosition(base Position, text string, offset int) Position {
	prefix := text[:offset]
	lines := strings.Count(prefix, "\n")
	pos := Position{Line: base.Line + lines}
	if lines == 0 {
		pos.Column = base.Column + offset
	} else {
		pos.Column = offset - strings.LastIndexByte(prefix, '\n')
	}
	return pos
}
