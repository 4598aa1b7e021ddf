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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// File size limits shared by all extraction entry points.
const (
	// DefaultMaxFileSize is the maximum file size accepted for extraction (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize triggers a warning log for unusually large files (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Tree-sitter node type names for the TypeScript grammar.
const (
	tsNodeCallExpression    = "call_expression"
	tsNodeMemberExpression  = "member_expression"
	tsNodeIdentifier        = "identifier"
	tsNodeNewExpression     = "new_expression"
	tsNodeClassDeclaration  = "class_declaration"
	tsNodeAbstractClassDecl = "abstract_class_declaration"
	tsNodeMethodDefinition  = "method_definition"
	tsNodeExportStatement   = "export_statement"
	tsNodeDecorator         = "decorator"
)

// Extraction errors.
var (
	// ErrFileTooLarge is returned when content exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent is returned when content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
)

// defaultDispatchMethods are the exact method names recognized as bus
// dispatch calls. No partial matching: "executeAll" is not a dispatch.
var defaultDispatchMethods = []string{"publish", "execute", "dispatch"}

// ExtractorOption configures an Extractor instance.
type ExtractorOption func(*Extractor)

// WithMaxFileSize sets the maximum file size the extractor will accept.
func WithMaxFileSize(bytes int64) ExtractorOption {
	return func(e *Extractor) {
		if bytes > 0 {
			e.maxFileSize = bytes
		}
	}
}

// WithDispatchMethods overrides the set of method names treated as bus
// dispatch calls. Names are matched exactly, case-sensitively.
func WithDispatchMethods(names []string) ExtractorOption {
	return func(e *Extractor) {
		if len(names) > 0 {
			e.dispatchMethods = make(map[string]bool, len(names))
			for _, n := range names {
				e.dispatchMethods[n] = true
			}
		}
	}
}

// Extractor walks TypeScript syntax trees and extracts message-flow edges.
//
// Description:
//
//	Extractor uses tree-sitter to parse a source unit and performs a single
//	pre-order depth-first traversal of every node. Extraction decisions are
//	side effects triggered at two node kinds — call expressions (bus usages)
//	and class declarations (handler declarations) — without altering
//	traversal order or skipping subtrees.
//
// Thread Safety:
//
//	Extractor instances are safe for concurrent use. Each Extract call
//	creates its own tree-sitter parser internally.
type Extractor struct {
	maxFileSize     int64
	dispatchMethods map[string]bool
}

// NewExtractor creates a new Extractor with the given options.
//
// Example:
//
//	ex := ast.NewExtractor()
//	result, err := ex.Extract(ctx, content, "src/order.service.ts")
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		maxFileSize:     DefaultMaxFileSize,
		dispatchMethods: make(map[string]bool, len(defaultDispatchMethods)),
	}
	for _, n := range defaultDispatchMethods {
		e.dispatchMethods[n] = true
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract parses one source unit and extracts all message-flow edges.
//
// Description:
//
//	Parses the content with tree-sitter (TSX grammar for .tsx files,
//	TypeScript grammar otherwise) and walks every node exactly once.
//	The extractor is error-tolerant: syntactically invalid code yields
//	partial results with the syntax error recorded in FileResult.Errors.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked before and after parsing.
//	content - Raw TypeScript source bytes. Must be valid UTF-8.
//	filePath - Path of the source unit, used for edge identity and positions.
//
// Outputs:
//
//	*FileResult - Extracted edges in traversal order. Never nil on success.
//	error - Non-nil for complete failures (size limit, invalid UTF-8,
//	tree-sitter failure, canceled context). Callers treat these as
//	unit-level failures: log and skip, never abort other units.
//
// Thread Safety: Safe for concurrent use.
func (e *Extractor) Extract(ctx context.Context, content []byte, filePath string) (*FileResult, error) {
	ctx, span := startExtractSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract canceled before start: %w", err)
	}

	if int64(len(content)) > e.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), e.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("extracting large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	if strings.HasSuffix(filePath, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract canceled after parse: %w", err)
	}

	result := &FileResult{
		FilePath:  filePath,
		BusUsages: make([]BusUsageEdge, 0),
		Handlers:  make([]HandlerEdge, 0),
	}

	root := tree.RootNode()
	if root == nil {
		result.Errors = append(result.Errors, "tree-sitter returned nil root node")
		return result, nil
	}
	if root.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors")
	}

	e.walk(root, content, filePath, result)

	setExtractSpanResult(span, len(result.BusUsages), len(result.Handlers))
	recordExtractDuration(filePath, time.Since(start))

	return result, nil
}

// walk performs a pre-order depth-first visit of every node, triggering
// extraction at call expressions and class declarations. Traversal never
// skips subtrees: a class body is still walked for bus usages after its
// declaration has been inspected for handler decorators.
func (e *Extractor) walk(root *sitter.Node, content []byte, filePath string, result *FileResult) {
	stack := make([]*sitter.Node, 0, 64)
	stack = append(stack, root)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		switch node.Type() {
		case tsNodeCallExpression:
			e.extractBusUsage(node, content, filePath, result)
		case tsNodeClassDeclaration, tsNodeAbstractClassDecl:
			e.extractHandlers(node, content, filePath, result)
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// enclosingClassName walks the ancestor chain upward until the first class
// declaration with a name. Returns UnknownClass when no enclosing named
// class exists.
func enclosingClassName(node *sitter.Node, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type() != tsNodeClassDeclaration && parent.Type() != tsNodeAbstractClassDecl {
			continue
		}
		if name := classDeclarationName(parent, content); name != "" {
			return name
		}
	}
	return UnknownClass
}

// enclosingMethodName walks the ancestor chain upward until the first
// method definition with an identifier name. Returns "" when the node is
// not inside any method body; absence is not a sentinel.
func enclosingMethodName(node *sitter.Node, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type() != tsNodeMethodDefinition {
			continue
		}
		for i := 0; i < int(parent.ChildCount()); i++ {
			child := parent.Child(i)
			if child != nil && child.Type() == "property_identifier" {
				return string(content[child.StartByte():child.EndByte()])
			}
		}
	}
	return ""
}

// classDeclarationName returns the declared name of a class node, or ""
// for anonymous class expressions.
func classDeclarationName(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "type_identifier" {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// positionOf converts a node's start point to a one-based Position.
func positionOf(node *sitter.Node) Position {
	return Position{
		Line:   int(node.StartPoint().Row) + 1,
		Column: int(node.StartPoint().Column) + 1,
	}
}
