// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree lays out a file tree under a temp dir; keys are
// slash-separated relative paths.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestDiscoverUnits(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.ts":                 "",
		"src/view.tsx":               "",
		"src/types.d.ts":             "",
		"src/app.spec.ts":            "",
		"src/app.test.ts":            "",
		"src/api.mock.ts":            "",
		"src/seed.fixture.ts":        "",
		"src/app.e2e-spec.ts":        "",
		"src/util.js":                "",
		"node_modules/dep/index.ts":  "",
		"dist/app.ts":                "",
		"build/app.ts":               "",
		".git/hooks/pre-commit.ts":   "",
		".hidden/secret.ts":          "",
		"nested/deep/module.ts":      "",
		"nested/deep/module.spec.ts": "",
	})

	units, err := NewScanner().DiscoverUnits(root)
	require.NoError(t, err)

	rel := make([]string, len(units))
	for i, u := range units {
		r, err := filepath.Rel(root, u)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}

	// WalkDir yields lexical order.
	assert.Equal(t, []string{
		"nested/deep/module.ts",
		"src/app.ts",
		"src/view.tsx",
	}, rel)
}

func TestDiscoverUnits_CustomExcludeSuffixes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.ts":      "",
		"src/app.spec.ts": "",
		"src/legacy.ts":   "",
	})

	scanner := NewScanner(WithExcludeSuffixes([]string{"legacy.ts"}))
	units, err := scanner.DiscoverUnits(root)
	require.NoError(t, err)

	// Replacing the defaults means spec files are no longer excluded.
	require.Len(t, units, 2)
	assert.Equal(t, "app.spec.ts", filepath.Base(units[0]))
	assert.Equal(t, "app.ts", filepath.Base(units[1]))
}

func TestScan_AggregatesAcrossUnits(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/orders/order.service.ts": `
export class OrderService {
  placeOrder() {
    this.commandBus.execute(new CreateOrderCommand());
  }
}
`,
		"src/orders/order.handler.ts": `
@CommandHandler(CreateOrderCommand)
export class OrderHandler {
  execute(command: CreateOrderCommand) {}
}
`,
	})

	result, err := NewScanner().Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.BusUsages, 1)
	assert.Equal(t, "OrderService", result.BusUsages[0].ClassName)
	assert.Equal(t, "CreateOrderCommand", result.BusUsages[0].EventType)

	require.Len(t, result.Handlers, 1)
	assert.Equal(t, "OrderHandler", result.Handlers[0].ClassName)
}

func TestScan_DeterministicOrder(t *testing.T) {
	files := make(map[string]string)
	// Several units so parallel extraction actually interleaves.
	names := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, name := range names {
		files["src/"+name+".ts"] = `
export class Service {
  run() { this.eventBus.publish(new Event()); }
}
`
	}
	root := writeTree(t, files)

	scanner := NewScanner(WithWorkerCount(4))

	first, err := scanner.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, first.BusUsages, len(names))

	for run := 0; run < 3; run++ {
		again, err := scanner.Scan(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, first.BusUsages, again.BusUsages)
	}

	// Edges appear in discovery (lexical) order regardless of which worker
	// finished first.
	for i, name := range names {
		assert.Equal(t, filepath.Join(root, "src", name+".ts"), first.BusUsages[i].SourceFile)
	}
}

func TestScan_AppliesEdgeBudget(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/busy.ts": `
export class Busy {
  run() {
    this.eventBus.publish(new A());
    this.eventBus.publish(new B());
    this.eventBus.publish(new C());
    this.eventBus.publish(new D());
  }
}
`,
		"src/handlers.ts": `
@EventsHandler(A)
export class AHandler {}

@EventsHandler(B)
export class BHandler {}
`,
	})

	result, err := NewScanner(WithMaxEdges(3)).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, result.BusUsages, 1)
	assert.Len(t, result.Handlers, 2)
}

func TestScan_SkipsUnparseableUnit(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/bad.ts": string([]byte{0xff, 0xfe, 0xfd}),
		"src/good.ts": `
export class Good {
  run() { this.queryBus.execute(new GetThingQuery()); }
}
`,
	})

	result, err := NewScanner().Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.BusUsages, 1)
	assert.Equal(t, "Good", result.BusUsages[0].ClassName)
}

func TestScan_CanceledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"src/app.ts": "export class A {}"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner().Scan(ctx, root)
	assert.Error(t, err)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := NewScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

// TestScan_SampleProject runs the scanner over the checked-in sample
// project fixture end to end.
func TestScan_SampleProject(t *testing.T) {
	root := filepath.Join("..", "..", "..", "test", "fixtures", "sample-ts-project")
	if _, err := os.Stat(root); err != nil {
		t.Skipf("fixture project not available: %v", err)
	}

	result, err := NewScanner().Scan(context.Background(), root)
	require.NoError(t, err)

	// order.service.ts dispatches twice, payment.saga.ts once; the spec
	// file and node_modules content contribute nothing.
	require.Len(t, result.BusUsages, 3)
	assert.Equal(t, "OrderService", result.BusUsages[0].ClassName)
	assert.Equal(t, "placeOrder", result.BusUsages[0].MethodName)
	assert.Equal(t, "CreateOrderCommand", result.BusUsages[0].EventType)
	assert.Equal(t, "OrderCreatedEvent", result.BusUsages[1].EventType)
	assert.Equal(t, "PaymentSaga", result.BusUsages[2].ClassName)

	require.Len(t, result.Handlers, 2)
	assert.Equal(t, "CreateOrderHandler", result.Handlers[0].ClassName)
	assert.Equal(t, "PaymentSaga", result.Handlers[1].ClassName)
}
