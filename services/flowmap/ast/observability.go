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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// tracer is the package-level tracer for extraction spans.
var tracer = otel.Tracer("flowmap/ast")

var (
	// extractDurationSeconds measures per-unit extraction latency.
	extractDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowmap",
		Subsystem: "extract",
		Name:      "duration_seconds",
		Help:      "Per-unit extraction latency including tree-sitter parse",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// extractEdgesTotal counts extracted edges by kind.
	// Labels: kind (bus_usage, handler)
	extractEdgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowmap",
		Subsystem: "extract",
		Name:      "edges_total",
		Help:      "Total extracted edges by kind",
	}, []string{"kind"})
)

// startExtractSpan starts a tracing span for one unit extraction.
func startExtractSpan(ctx context.Context, filePath string, sizeBytes int) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "Extractor.Extract",
		oteltrace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", sizeBytes),
		))
}

// setExtractSpanResult records edge counts on the span and the edge
// counters.
func setExtractSpanResult(span oteltrace.Span, busUsages, handlers int) {
	span.SetAttributes(
		attribute.Int("bus_usages", busUsages),
		attribute.Int("handlers", handlers),
	)
	extractEdgesTotal.WithLabelValues("bus_usage").Add(float64(busUsages))
	extractEdgesTotal.WithLabelValues("handler").Add(float64(handlers))
}

// recordExtractDuration records one unit's extraction latency.
func recordExtractDuration(_ string, d time.Duration) {
	extractDurationSeconds.Observe(d.Seconds())
}
