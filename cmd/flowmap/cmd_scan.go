// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/flowmap/services/flowmap"
	"github.com/AleutianAI/flowmap/services/flowmap/report"
)

// scanMaxEdges, scanFormat, scanDiagram and scanWatch hold flag values for
// the scan command.
var (
	scanMaxEdges int
	scanFormat   string
	scanDiagram  string
	scanWatch    bool
)

// debounceWindow coalesces filesystem event bursts (editors fire several
// events per save) into one re-scan.
const debounceWindow = 500 * time.Millisecond

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <project-root>",
		Short: "Scan a TypeScript project and report its message-flow architecture",
		Args:  cobra.ExactArgs(1),
		RunE:  runScanCommand,
	}

	cmd.Flags().IntVar(&scanMaxEdges, "max-edges", 0, "edge budget (0 = unlimited)")
	cmd.Flags().StringVar(&scanFormat, "format", "markdown", "output format: markdown or json")
	cmd.Flags().StringVar(&scanDiagram, "diagram", "", "append a diagram: mermaid or dot")
	cmd.Flags().BoolVar(&scanWatch, "watch", false, "re-run the scan when source files change")

	return cmd
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := setupTracing(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("trace shutdown failed", slog.String("error", err.Error()))
		}
	}()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	service := flowmap.NewService()

	if err := scanOnce(ctx, service, root); err != nil {
		return err
	}

	if scanWatch {
		return watchAndRescan(ctx, service, root)
	}
	return nil
}

// scanOnce runs one scan and writes the rendered output to stdout.
func scanOnce(ctx context.Context, service *flowmap.Service, root string) error {
	resp, err := service.Run(ctx, flowmap.ScanRequest{
		ProjectRoot: root,
		MaxEdges:    scanMaxEdges,
	})
	if err != nil {
		return err
	}

	switch scanFormat {
	case "json":
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(data))
	case "markdown":
		fmt.Print(report.RenderMarkdown(resp.Analysis, resp.Edges))
	default:
		return fmt.Errorf("unsupported format %q (want markdown or json)", scanFormat)
	}

	if scanDiagram != "" {
		renderer, err := report.NewDiagramRenderer(report.DiagramGenerator(scanDiagram))
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(renderer.Render(resp.Edges))
	}

	return nil
}

// watchAndRescan blocks, re-running the scan whenever a TypeScript source
// file under root changes. Returns when the context is done or on SIGINT.
func watchAndRescan(ctx context.Context, service *flowmap.Service, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch every directory under root; fsnotify does not recurse.
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		name := d.Name()
		if name == "node_modules" || name == ".git" || name == "dist" || name == "build" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	slog.Info("watching for changes", slog.String("root", root))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var debounce *time.Timer
	rescan := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigCh:
			slog.Info("shutting down watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".ts") && !strings.HasSuffix(event.Name, ".tsx") {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case rescan <- struct{}{}:
				default:
				}
			})
		case <-rescan:
			slog.Info("source changed, re-scanning")
			if err := scanOnce(ctx, service, root); err != nil {
				slog.Error("re-scan failed", slog.String("error", err.Error()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
