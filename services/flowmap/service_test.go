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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/flowmap/services/flowmap/config"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const orderProjectService = `
export class OrderService {
  placeOrder() {
    this.commandBus.execute(new CreateOrderCommand());
    this.eventBus.publish(new OrderCreatedEvent());
  }
}
`

const orderProjectHandler = `
@CommandHandler(CreateOrderCommand)
export class OrderHandler {
  execute(command: CreateOrderCommand) {}
}
`

func TestServiceRun(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/order.service.ts": orderProjectService,
		"src/order.handler.ts": orderProjectHandler,
	})

	resp, err := NewService().Run(context.Background(), ScanRequest{ProjectRoot: root})
	require.NoError(t, err)

	assert.Len(t, resp.Edges.BusUsages, 2)
	assert.Len(t, resp.Edges.Handlers, 1)

	// OrderCreatedEvent has no handler anywhere in the project.
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, 1, resp.Analysis.Metrics.OrphanEvents)
}

func TestServiceRun_RequiresProjectRoot(t *testing.T) {
	_, err := NewService().Run(context.Background(), ScanRequest{})
	assert.Error(t, err)
}

func TestServiceRun_ConfigOverrides(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/order.service.ts": `
export class OrderService {
  placeOrder() {
    this.commandBus.send(new CreateOrderCommand());
    this.commandBus.execute(new CancelOrderCommand());
  }
}
`,
		config.ConfigFileName: "dispatch_methods:\n  - send\n",
	})

	resp, err := NewService().Run(context.Background(), ScanRequest{ProjectRoot: root})
	require.NoError(t, err)

	// The override replaces the default method set entirely, so execute()
	// is no longer recognized.
	require.Len(t, resp.Edges.BusUsages, 1)
	assert.Equal(t, "CreateOrderCommand", resp.Edges.BusUsages[0].EventType)
}

func TestServiceRun_RequestBudgetBeatsConfig(t *testing.T) {
	root := writeProject(t, map[string]string{
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
		config.ConfigFileName: "max_edges: 100\n",
	})

	resp, err := NewService().Run(context.Background(), ScanRequest{ProjectRoot: root, MaxEdges: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Edges.BusUsages, 1)
}

func TestServiceRun_MalformedConfig(t *testing.T) {
	root := writeProject(t, map[string]string{
		config.ConfigFileName: "max_edges: [oops\n",
	})

	_, err := NewService().Run(context.Background(), ScanRequest{ProjectRoot: root})
	assert.Error(t, err)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(NewService()))
	return router
}

func TestHandleScan(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/order.service.ts": orderProjectService,
		"src/order.handler.ts": orderProjectHandler,
	})

	body, err := json.Marshal(ScanRequest{ProjectRoot: root})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/flowmap/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Edges.BusUsages, 2)
	assert.Len(t, resp.Edges.Handlers, 1)
	require.NotNil(t, resp.Analysis)
}

func TestHandleScan_MissingProjectRoot(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/flowmap/scan", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleScan_ScanFailure(t *testing.T) {
	body := []byte(`{"project_root": "/definitely/not/a/real/path"}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/flowmap/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleHealth(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/flowmap/health", nil)
	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
