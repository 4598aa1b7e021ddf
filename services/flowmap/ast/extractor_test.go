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
	"context"
	"strings"
	"testing"
)

// extract is a test helper running the default extractor over source text.
func extract(t *testing.T, source string) *FileResult {
	t.Helper()
	result, err := NewExtractor().Extract(context.Background(), []byte(source), "src/test.ts")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return result
}

// TestExtract_BusUsageInsideMethod verifies the canonical dispatch shape:
// a nested member expression receiver inside a class method.
func TestExtract_BusUsageInsideMethod(t *testing.T) {
	source := `
export class OrderService {
  constructor(private readonly commandBus: CommandBus) {}

  placeOrder(dto: PlaceOrderDto) {
    this.commandBus.execute(new CreateOrderCommand());
  }
}
`
	result := extract(t, source)

	if len(result.BusUsages) != 1 {
		t.Fatalf("expected 1 bus usage, got %d", len(result.BusUsages))
	}

	edge := result.BusUsages[0]
	if edge.ClassName != "OrderService" {
		t.Errorf("ClassName = %q, want OrderService", edge.ClassName)
	}
	if edge.MethodName != "placeOrder" {
		t.Errorf("MethodName = %q, want placeOrder", edge.MethodName)
	}
	if edge.BusType != BusTypeCommand {
		t.Errorf("BusType = %q, want CommandBus", edge.BusType)
	}
	if edge.EventType != "CreateOrderCommand" {
		t.Errorf("EventType = %q, want CreateOrderCommand", edge.EventType)
	}
	if edge.SourceFile != "src/test.ts" {
		t.Errorf("SourceFile = %q, want src/test.ts", edge.SourceFile)
	}
	if edge.Position.Line != 6 {
		t.Errorf("Position.Line = %d, want 6", edge.Position.Line)
	}
}

// TestExtract_BusUsageTopLevel verifies that a dispatch outside any class
// uses the Unknown class sentinel and leaves the method name empty.
func TestExtract_BusUsageTopLevel(t *testing.T) {
	source := `
const commandBus = new CommandBus();
commandBus.execute(new SeedDataCommand());
`
	result := extract(t, source)

	if len(result.BusUsages) != 1 {
		t.Fatalf("expected 1 bus usage, got %d", len(result.BusUsages))
	}

	edge := result.BusUsages[0]
	if edge.ClassName != UnknownClass {
		t.Errorf("ClassName = %q, want %q", edge.ClassName, UnknownClass)
	}
	if edge.MethodName != "" {
		t.Errorf("MethodName = %q, want empty", edge.MethodName)
	}
	if edge.EventType != "SeedDataCommand" {
		t.Errorf("EventType = %q, want SeedDataCommand", edge.EventType)
	}
}

// TestExtract_BusKindInference exercises the ordered substring rule table.
func TestExtract_BusKindInference(t *testing.T) {
	tests := []struct {
		name     string
		receiver string
		want     BusType
		matched  bool
	}{
		{"event bus", "eventBus", BusTypeEvent, true},
		{"query bus", "queryBus", BusTypeQuery, true},
		{"command bus", "commandBus", BusTypeCommand, true},
		{"case insensitive", "EVENTBUS", BusTypeEvent, true},
		{"prefixed", "domainEventBus", BusTypeEvent, true},
		// "event"+"bus" wins over "command"+"bus" because the event rule
		// is evaluated first.
		{"priority order", "eventCommandBus", BusTypeEvent, true},
		{"bus without kind", "bus", "", false},
		{"kind without bus", "commandQueue", "", false},
		{"unrelated", "logger", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "this." + tt.receiver + ".dispatch(new Thing());"
			result := extract(t, source)

			if !tt.matched {
				if len(result.BusUsages) != 0 {
					t.Fatalf("receiver %q: expected silent non-detection, got %d edges",
						tt.receiver, len(result.BusUsages))
				}
				return
			}
			if len(result.BusUsages) != 1 {
				t.Fatalf("receiver %q: expected 1 edge, got %d", tt.receiver, len(result.BusUsages))
			}
			if got := result.BusUsages[0].BusType; got != tt.want {
				t.Errorf("receiver %q: BusType = %q, want %q", tt.receiver, got, tt.want)
			}
		})
	}
}

// TestExtract_DispatchMethodExactMatch verifies that only the exact method
// names publish/execute/dispatch trigger detection.
func TestExtract_DispatchMethodExactMatch(t *testing.T) {
	source := `
class Notifier {
  run() {
    this.eventBus.publish(new UserCreatedEvent());
    this.eventBus.publishAll([a, b]);
    this.eventBus.send(new IgnoredEvent());
    this.eventBus.executeNow(new IgnoredEvent());
  }
}
`
	result := extract(t, source)

	if len(result.BusUsages) != 1 {
		t.Fatalf("expected 1 bus usage (publish only), got %d", len(result.BusUsages))
	}
	if result.BusUsages[0].EventType != "UserCreatedEvent" {
		t.Errorf("EventType = %q, want UserCreatedEvent", result.BusUsages[0].EventType)
	}
}

// TestExtract_SimpleIdentifierReceiver verifies that a bare identifier
// receiver is identified by its own text.
func TestExtract_SimpleIdentifierReceiver(t *testing.T) {
	source := `queryBus.execute(new GetOrderQuery());`
	result := extract(t, source)

	if len(result.BusUsages) != 1 {
		t.Fatalf("expected 1 bus usage, got %d", len(result.BusUsages))
	}
	if result.BusUsages[0].BusType != BusTypeQuery {
		t.Errorf("BusType = %q, want QueryBus", result.BusUsages[0].BusType)
	}
}

// TestExtract_EventTypeInferenceFallback exercises the ordered event-type
// fallback: generic type argument, new expression, identifier, member
// expression, Unknown sentinel.
func TestExtract_EventTypeInferenceFallback(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "generic type argument verbatim",
			source: `this.queryBus.execute<GetOrderQuery>(query);`,
			want:   "GetOrderQuery",
		},
		{
			// The generic argument wins even when the value argument would
			// also be inferable.
			name:   "generic beats argument",
			source: `this.queryBus.execute<GetOrderQuery>(new OtherQuery());`,
			want:   "GetOrderQuery",
		},
		{
			name:   "new expression constructor",
			source: `this.commandBus.execute(new ShipOrderCommand(id));`,
			want:   "ShipOrderCommand",
		},
		{
			name:   "identifier argument",
			source: `this.commandBus.dispatch(shipOrderCommand);`,
			want:   "shipOrderCommand",
		},
		{
			name:   "member expression rightmost segment",
			source: `this.eventBus.publish(events.OrderShipped);`,
			want:   "OrderShipped",
		},
		{
			name:   "no arguments",
			source: `this.eventBus.publish();`,
			want:   UnknownEvent,
		},
		{
			name:   "unrecognized argument shape",
			source: `this.eventBus.publish(buildEvent());`,
			want:   UnknownEvent,
		},
		{
			name:   "string literal argument",
			source: `this.eventBus.publish("order.shipped");`,
			want:   UnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extract(t, tt.source)
			if len(result.BusUsages) != 1 {
				t.Fatalf("expected 1 bus usage, got %d", len(result.BusUsages))
			}
			if got := result.BusUsages[0].EventType; got != tt.want {
				t.Errorf("EventType = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestExtract_NoMemberExpressionCallee verifies that plain function calls
// never match, even with dispatch-method names.
func TestExtract_NoMemberExpressionCallee(t *testing.T) {
	source := `
execute(new CreateOrderCommand());
dispatch(something);
publish();
`
	result := extract(t, source)

	if len(result.BusUsages) != 0 {
		t.Fatalf("expected 0 bus usages for plain calls, got %d", len(result.BusUsages))
	}
}

// TestExtract_CustomDispatchMethods verifies the dispatch-method override.
func TestExtract_CustomDispatchMethods(t *testing.T) {
	source := `this.commandBus.send(new CreateOrderCommand());`

	ex := NewExtractor(WithDispatchMethods([]string{"send"}))
	result, err := ex.Extract(context.Background(), []byte(source), "src/test.ts")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(result.BusUsages) != 1 {
		t.Fatalf("expected 1 bus usage with custom method set, got %d", len(result.BusUsages))
	}
}

// TestExtract_InvalidUTF8 verifies the hard-failure path for bad content.
func TestExtract_InvalidUTF8(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, "src/bad.ts")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 content")
	}
}

// TestExtract_FileTooLarge verifies the size limit.
func TestExtract_FileTooLarge(t *testing.T) {
	ex := NewExtractor(WithMaxFileSize(16))
	_, err := ex.Extract(context.Background(), []byte(strings.Repeat("x", 32)), "src/big.ts")
	if err == nil {
		t.Fatal("expected error for oversized content")
	}
}

// TestExtract_SyntaxErrorsTolerated verifies that invalid syntax yields
// partial results with a recorded soft error, not a hard failure.
func TestExtract_SyntaxErrorsTolerated(t *testing.T) {
	source := `
class Broken {
  run() {
    this.commandBus.execute(new GoodCommand());
  }
  !!!
`
	result := extract(t, source)

	if len(result.Errors) == 0 {
		t.Error("expected a recorded syntax error")
	}
	if len(result.BusUsages) != 1 {
		t.Errorf("expected partial extraction despite syntax errors, got %d edges", len(result.BusUsages))
	}
}
