// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
)

// DefaultCouplingThreshold is the connection count above which a class is
// flagged as highly coupled. Strictly greater-than: a class with exactly
// this many connections is not flagged.
const DefaultCouplingThreshold = 5

// Severity grades an architecture issue.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// IssueType identifies the structural anti-pattern an issue reports.
type IssueType string

const (
	// IssueSingleResponsibility flags classes that both dispatch and
	// handle messages.
	IssueSingleResponsibility IssueType = "SingleResponsibilityViolation"

	// IssueHighCoupling flags classes whose connection count exceeds the
	// coupling threshold.
	IssueHighCoupling IssueType = "HighCoupling"

	// IssueUnhandledEvents flags dispatched event types with no declared
	// handler anywhere in the analyzed source.
	IssueUnhandledEvents IssueType = "UnhandledEvents"

	// IssueOrphanHandlers flags declared handlers for event types that are
	// never observed to be dispatched.
	IssueOrphanHandlers IssueType = "OrphanHandlers"
)

// ArchitectureIssue is one flagged anti-pattern.
type ArchitectureIssue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Elements    []string  `json:"elements"`
	Context     any       `json:"context,omitempty"`
}

// CouplingEntry pairs a class with its connection count; used as the
// context payload of HighCoupling issues.
type CouplingEntry struct {
	ClassName   string `json:"className"`
	Connections int    `json:"connections"`
}

// Metrics summarizes the architecture graph.
//
// AverageConnections is fractional and not rounded here; rounding, if any,
// is a presentation concern of the report renderer.
type Metrics struct {
	TotalClasses       int     `json:"totalClasses"`
	TotalEvents        int     `json:"totalEvents"`
	EventProducers     int     `json:"eventProducers"`
	EventConsumers     int     `json:"eventConsumers"`
	DualRoleClasses    int     `json:"dualRoleClasses"`
	OrphanEvents       int     `json:"orphanEvents"`
	OrphanHandlers     int     `json:"orphanHandlers"`
	AverageConnections float64 `json:"averageConnections"`
}

// ArchitectureAnalysisResult is the analyzer's output: typed issues in a
// fixed emission order plus the metrics record.
type ArchitectureAnalysisResult struct {
	Issues  []ArchitectureIssue `json:"issues"`
	Metrics Metrics             `json:"metrics"`
}

// AnalyzerOption configures an Analyzer instance.
type AnalyzerOption func(*Analyzer)

// WithCouplingThreshold overrides the high-coupling threshold.
func WithCouplingThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.couplingThreshold = n
		}
	}
}

// Analyzer computes coupling, orphan and dual-role diagnostics from an
// aggregated edge set.
//
// Thread Safety:
//
//	Analyzer is stateless between calls and safe for concurrent use.
type Analyzer struct {
	couplingThreshold int
}

// NewAnalyzer creates an Analyzer with the given options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{couplingThreshold: DefaultCouplingThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// stringSet is an insertion-ordered set of strings. Derived indices keep
// insertion order so issue element lists are deterministic.
type stringSet struct {
	keys []string
	seen map[string]bool
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]bool)}
}

func (s *stringSet) add(key string) {
	if !s.seen[key] {
		s.seen[key] = true
		s.keys = append(s.keys, key)
	}
}

func (s *stringSet) has(key string) bool { return s.seen[key] }
func (s *stringSet) len() int            { return len(s.keys) }

// eventIndex maps event types to participating class names in insertion
// order, with duplicates allowed in the value lists.
type eventIndex struct {
	keys    []string
	classes map[string][]string
}

func newEventIndex() *eventIndex {
	return &eventIndex{classes: make(map[string][]string)}
}

func (ix *eventIndex) add(eventType, className string) {
	if _, ok := ix.classes[eventType]; !ok {
		ix.keys = append(ix.keys, eventType)
	}
	ix.classes[eventType] = append(ix.classes[eventType], className)
}

func (ix *eventIndex) has(eventType string) bool {
	return len(ix.classes[eventType]) > 0
}

// Analyze derives architectural metrics and issues from the aggregate.
//
// Description:
//
//	Pure function of the AnalysisResult. Builds, in order: the producer and
//	consumer class sets, their intersection (dual-role classes), per-class
//	coupling counts (bus-usage edges plus handler edges), the high-coupling
//	set (strictly greater than the threshold), the event→emitters and
//	event→handlers indices, the unhandled-event and orphan-handler sets,
//	and the average connection count (0 when no class has a nonzero count).
//
//	Analyze never fails: every derived collection defaults to empty and
//	absence of data yields no issues rather than an error.
//
// Outputs:
//
//	*ArchitectureAnalysisResult - Issues in fixed emission order
//	(SingleResponsibilityViolation, HighCoupling, UnhandledEvents,
//	OrphanHandlers; each present only if its triggering set is non-empty)
//	plus the metrics record.
func (a *Analyzer) Analyze(result AnalysisResult) *ArchitectureAnalysisResult {
	// Step 1: distinct producer and consumer classes.
	busUsers := newStringSet()
	for _, edge := range result.BusUsages {
		busUsers.add(edge.ClassName)
	}
	handlerClasses := newStringSet()
	for _, edge := range result.Handlers {
		handlerClasses.add(edge.ClassName)
	}

	// Step 2: classes that both dispatch and handle.
	dualRole := newStringSet()
	for _, class := range busUsers.keys {
		if handlerClasses.has(class) {
			dualRole.add(class)
		}
	}

	// Step 3: coupling counts over all edges mentioning the class in
	// either role. allClasses preserves first-seen order.
	allClasses := newStringSet()
	coupling := make(map[string]int)
	for _, edge := range result.BusUsages {
		allClasses.add(edge.ClassName)
		coupling[edge.ClassName]++
	}
	for _, edge := range result.Handlers {
		allClasses.add(edge.ClassName)
		coupling[edge.ClassName]++
	}

	// Step 4: classes strictly above the threshold, paired with counts.
	var highCoupling []CouplingEntry
	for _, class := range allClasses.keys {
		if count := coupling[class]; count > a.couplingThreshold {
			highCoupling = append(highCoupling, CouplingEntry{ClassName: class, Connections: count})
		}
	}

	// Step 5: event → emitters and event → handlers indices.
	emitters := newEventIndex()
	for _, edge := range result.BusUsages {
		emitters.add(edge.EventType, edge.ClassName)
	}
	handlers := newEventIndex()
	for _, edge := range result.Handlers {
		handlers.add(edge.EventType, edge.ClassName)
	}

	// Steps 6–7: one-sided event types.
	var unhandled, orphans []string
	for _, eventType := range emitters.keys {
		if !handlers.has(eventType) {
			unhandled = append(unhandled, eventType)
		}
	}
	for _, eventType := range handlers.keys {
		if !emitters.has(eventType) {
			orphans = append(orphans, eventType)
		}
	}

	// Step 8: average connections, guarding the denominator.
	var averageConnections float64
	if allClasses.len() > 0 {
		sum := 0
		for _, count := range coupling {
			sum += count
		}
		averageConnections = float64(sum) / float64(allClasses.len())
	}

	out := &ArchitectureAnalysisResult{
		Issues: make([]ArchitectureIssue, 0, 4),
		Metrics: Metrics{
			TotalClasses:       allClasses.len(),
			TotalEvents:        totalEventTypes(emitters, handlers),
			EventProducers:     len(emitters.keys),
			EventConsumers:     len(handlers.keys),
			DualRoleClasses:    dualRole.len(),
			OrphanEvents:       len(unhandled),
			OrphanHandlers:     len(orphans),
			AverageConnections: averageConnections,
		},
	}

	if dualRole.len() > 0 {
		out.Issues = append(out.Issues, ArchitectureIssue{
			Type:     IssueSingleResponsibility,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("%d class(es) both dispatch and handle messages",
				dualRole.len()),
			Elements: dualRole.keys,
		})
	}

	if len(highCoupling) > 0 {
		elements := make([]string, len(highCoupling))
		for i, entry := range highCoupling {
			elements[i] = entry.ClassName
		}
		out.Issues = append(out.Issues, ArchitectureIssue{
			Type:     IssueHighCoupling,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("%d class(es) exceed the coupling threshold of %d connections",
				len(highCoupling), a.couplingThreshold),
			Elements: elements,
			Context:  highCoupling,
		})
	}

	if len(unhandled) > 0 {
		context := make(map[string][]string, len(unhandled))
		for _, eventType := range unhandled {
			context[eventType] = emitters.classes[eventType]
		}
		out.Issues = append(out.Issues, ArchitectureIssue{
			Type:     IssueUnhandledEvents,
			Severity: SeverityError,
			Description: fmt.Sprintf("%d dispatched event type(s) have no declared handler",
				len(unhandled)),
			Elements: unhandled,
			Context:  context,
		})
	}

	if len(orphans) > 0 {
		context := make(map[string][]string, len(orphans))
		for _, eventType := range orphans {
			context[eventType] = handlers.classes[eventType]
		}
		out.Issues = append(out.Issues, ArchitectureIssue{
			Type:     IssueOrphanHandlers,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("%d handler(s) declared for event types that are never dispatched",
				len(orphans)),
			Elements: orphans,
			Context:  context,
		})
	}

	return out
}

// totalEventTypes counts distinct event types across both edge kinds.
func totalEventTypes(emitters, handlers *eventIndex) int {
	union := newStringSet()
	for _, eventType := range emitters.keys {
		union.add(eventType)
	}
	for _, eventType := range handlers.keys {
		union.add(eventType)
	}
	return union.len()
}
