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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// busKindRules is the ordered, case-insensitive substring rule table for
// bus kind inference. First match wins. A receiver name matching none of
// the rules is silent non-detection, not an error.
//
// The order matters: "eventBus" must not fall through to a later rule, and
// a hypothetical "commandQueryBus" classifies as QueryBus because the query
// rule is evaluated first.
var busKindRules = []struct {
	needles [2]string
	kind    BusType
}{
	{[2]string{"event", "bus"}, BusTypeEvent},
	{[2]string{"query", "bus"}, BusTypeQuery},
	{[2]string{"command", "bus"}, BusTypeCommand},
}

// extractBusUsage inspects a call expression and records a BusUsageEdge if
// it matches the dispatch heuristic.
//
// Description:
//
//	A call matches when its callee is a member expression whose property is
//	exactly one of the configured dispatch method names and whose receiver
//	name matches the bus naming heuristic. The receiver name is the
//	identifier text for simple receivers (commandBus.execute(...)) and the
//	rightmost property for nested member expressions
//	(this.commandBus.execute(...) identifies the bus as "commandBus").
func (e *Extractor) extractBusUsage(node *sitter.Node, content []byte, filePath string, result *FileResult) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil || funcNode.Type() != tsNodeMemberExpression {
		return
	}

	propertyNode := funcNode.ChildByFieldName("property")
	if propertyNode == nil {
		return
	}
	methodName := string(content[propertyNode.StartByte():propertyNode.EndByte()])
	if !e.dispatchMethods[methodName] {
		return
	}

	receiver := receiverName(funcNode.ChildByFieldName("object"), content)
	busType, ok := inferBusType(receiver)
	if !ok {
		return
	}

	result.BusUsages = append(result.BusUsages, BusUsageEdge{
		SourceFile: filePath,
		ClassName:  enclosingClassName(node, content),
		MethodName: enclosingMethodName(node, content),
		BusType:    busType,
		EventType:  inferDispatchEventType(node, content),
		Position:   positionOf(node),
	})
}

// receiverName resolves the identifying name of a dispatch receiver.
//
// A simple identifier yields its own text; a nested member expression
// yields its property (rightmost segment), so the bus field name wins over
// the base object. Any other receiver shape (this, call results, element
// access) yields "" and therefore never matches the bus heuristic.
func receiverName(object *sitter.Node, content []byte) string {
	if object == nil {
		return ""
	}
	switch object.Type() {
	case tsNodeIdentifier:
		return string(content[object.StartByte():object.EndByte()])
	case tsNodeMemberExpression:
		if prop := object.ChildByFieldName("property"); prop != nil {
			return string(content[prop.StartByte():prop.EndByte()])
		}
	}
	return ""
}

// inferBusType applies the ordered substring rule table to a receiver name.
func inferBusType(receiver string) (BusType, bool) {
	if receiver == "" {
		return "", false
	}
	lower := strings.ToLower(receiver)
	for _, rule := range busKindRules {
		if strings.Contains(lower, rule.needles[0]) && strings.Contains(lower, rule.needles[1]) {
			return rule.kind, true
		}
	}
	return "", false
}

// inferDispatchEventType infers the message type of a confirmed dispatch
// call using the ordered fallback:
//
//  1. An explicit generic type argument is used verbatim, no normalization:
//     bus.execute<Namespaced.Query<T>>(q) yields "Namespaced.Query<T>".
//  2. Otherwise the first call argument: a new-expression constructor
//     identifier, a simple identifier, or the rightmost segment of a
//     member expression.
//  3. Otherwise the UnknownEvent sentinel.
//
// This ordered fallback is the entire type inference capability; there is
// no semantic verification behind it.
func inferDispatchEventType(call *sitter.Node, content []byte) string {
	if typeArgs := call.ChildByFieldName("type_arguments"); typeArgs != nil {
		for i := 0; i < int(typeArgs.NamedChildCount()); i++ {
			arg := typeArgs.NamedChild(i)
			if arg != nil {
				return string(content[arg.StartByte():arg.EndByte()])
			}
		}
	}

	if name := eventTypeFromArgument(firstCallArgument(call), content); name != "" {
		return name
	}
	return UnknownEvent
}

// firstCallArgument returns the first named child of the call's arguments
// node, or nil when the call has no arguments.
func firstCallArgument(call *sitter.Node) *sitter.Node {
	argsNode := call.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	return argsNode.NamedChild(0)
}

// eventTypeFromArgument applies the argument half of the type inference
// fallback. Returns "" when the argument shape is not recognized; callers
// substitute the UnknownEvent sentinel.
//
// The same rule is shared by dispatch calls and structural decorator
// arguments, so the two extraction paths infer types identically.
func eventTypeFromArgument(arg *sitter.Node, content []byte) string {
	if arg == nil {
		return ""
	}
	switch arg.Type() {
	case tsNodeNewExpression:
		ctor := arg.ChildByFieldName("constructor")
		if ctor != nil && ctor.Type() == tsNodeIdentifier {
			return string(content[ctor.StartByte():ctor.EndByte()])
		}
	case tsNodeIdentifier:
		return string(content[arg.StartByte():arg.EndByte()])
	case tsNodeMemberExpression:
		if prop := arg.ChildByFieldName("property"); prop != nil {
			return string(content[prop.StartByte():prop.EndByte()])
		}
	}
	return ""
}
