// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan discovers TypeScript source units under a project root and
// runs extraction over them in parallel.
//
// Units are processed concurrently but folded sequentially in discovery
// order, so the aggregation order — and therefore which edges survive
// budget truncation — is deterministic across runs on the same input.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/flowmap/services/flowmap/ast"
	"github.com/AleutianAI/flowmap/services/flowmap/graph"
)

// DefaultExcludeSuffixes lists the file suffixes excluded from scanning:
// type declarations, spec/test files, mocks, fixtures, and end-to-end
// spec files.
var DefaultExcludeSuffixes = []string{
	".d.ts",
	".spec.ts",
	".test.ts",
	".mock.ts",
	".fixture.ts",
	".e2e-spec.ts",
}

// skipDirNames are directory names never descended into.
var skipDirNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
}

// ScannerOption configures a Scanner instance.
type ScannerOption func(*Scanner)

// WithWorkerCount sets the number of parallel extraction workers.
// Values <= 0 use runtime.NumCPU().
func WithWorkerCount(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithExcludeSuffixes replaces the default exclusion suffix list.
func WithExcludeSuffixes(suffixes []string) ScannerOption {
	return func(s *Scanner) {
		if len(suffixes) > 0 {
			s.excludeSuffixes = suffixes
		}
	}
}

// WithMaxEdges sets the edge budget applied after aggregation.
// 0 or negative means unlimited.
func WithMaxEdges(n int) ScannerOption {
	return func(s *Scanner) {
		s.maxEdges = n
	}
}

// WithExtractor replaces the default extractor (used to apply config
// overrides such as custom dispatch method names).
func WithExtractor(e *ast.Extractor) ScannerOption {
	return func(s *Scanner) {
		if e != nil {
			s.extractor = e
		}
	}
}

// Scanner discovers and extracts source units.
//
// Thread Safety:
//
//	Scanner is safe for concurrent use. Each Scan call operates on its own
//	state.
type Scanner struct {
	extractor       *ast.Extractor
	excludeSuffixes []string
	workerCount     int
	maxEdges        int
}

// NewScanner creates a Scanner with the given options.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		extractor:       ast.NewExtractor(),
		excludeSuffixes: DefaultExcludeSuffixes,
		workerCount:     runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverUnits walks the project root and returns the paths of all
// scannable source units in lexical order.
//
// A file qualifies when it carries the .ts or .tsx suffix and none of the
// exclusion suffixes. Directory traversal skips node_modules, .git, dist
// and build.
func (s *Scanner) DiscoverUnits(root string) ([]string, error) {
	var units []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirNames[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.isSourceUnit(path) {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return units, nil
}

// isSourceUnit applies the suffix inclusion/exclusion rules to one path.
func (s *Scanner) isSourceUnit(path string) bool {
	if !strings.HasSuffix(path, ".ts") && !strings.HasSuffix(path, ".tsx") {
		return false
	}
	for _, suffix := range s.excludeSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

// Scan discovers all source units under root, extracts them in parallel,
// and returns the aggregated, budget-truncated edge set.
//
// Description:
//
//	Units are extracted concurrently with a bounded worker pool. Each
//	worker writes only its own slot of an index-addressed results slice;
//	the fold over that slice happens sequentially in discovery order, so
//	no shared accumulator is mutated concurrently and the edge order is
//	reproducible. A unit-level failure (read error, parse failure) is
//	logged and the unit skipped; it never aborts the remaining units.
//
// Inputs:
//
//	ctx - Context for cancellation, checked per unit.
//	root - Project root directory.
//
// Outputs:
//
//	graph.AnalysisResult - Aggregated edges, truncated to the edge budget.
//	error - Non-nil only when discovery itself fails or ctx is canceled.
func (s *Scanner) Scan(ctx context.Context, root string) (graph.AnalysisResult, error) {
	start := time.Now()

	units, err := s.DiscoverUnits(root)
	if err != nil {
		return graph.AnalysisResult{}, err
	}

	slog.Info("scanning project",
		slog.String("root", root),
		slog.Int("units", len(units)))

	results := make([]*ast.FileResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for i, path := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable unit",
					slog.String("file", path),
					slog.String("error", err.Error()))
				recordUnitSkipped()
				return nil
			}

			fr, err := s.extractor.Extract(gctx, content, path)
			if err != nil {
				slog.Warn("skipping unit after extraction failure",
					slog.String("file", path),
					slog.String("error", err.Error()))
				recordUnitSkipped()
				return nil
			}

			results[i] = fr
			recordUnitScanned()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return graph.AnalysisResult{}, fmt.Errorf("scan canceled: %w", err)
	}

	agg := graph.Aggregate(results).TruncateToBudget(s.maxEdges)

	slog.Info("scan complete",
		slog.Int("bus_usages", len(agg.BusUsages)),
		slog.Int("handlers", len(agg.Handlers)),
		slog.Duration("elapsed", time.Since(start)))
	recordScanDuration(time.Since(start))

	return agg, nil
}
