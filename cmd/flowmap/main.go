// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command flowmap scans TypeScript codebases for message-bus communication
// patterns and derives architectural metrics and anti-pattern diagnostics.
//
// Usage:
//
//	flowmap scan ./my-project
//	flowmap scan ./my-project --format markdown --diagram mermaid
//	flowmap scan ./my-project --max-edges 500 --watch
//	flowmap serve --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// version is set at build time via -ldflags.
var version = "dev"

// verbose and traceEnabled hold global flag values.
var (
	verbose      bool
	traceEnabled bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flowmap",
		Short: "Message-flow architecture analyzer for TypeScript codebases",
		Long: "flowmap scans TypeScript source for command/query/event bus dispatch\n" +
			"calls and handler declarations, builds a message-flow graph, and flags\n" +
			"structural anti-patterns (dual-role classes, high coupling, unhandled\n" +
			"events, orphan handlers).",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "emit OpenTelemetry spans to stdout")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the flowmap version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging configures the process-wide slog handler.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// setupTracing installs a stdout span exporter when --trace is set.
// Returns a shutdown function; a no-op when tracing is disabled.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if !traceEnabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
