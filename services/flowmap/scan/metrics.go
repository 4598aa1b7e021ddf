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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scanFilesTotal counts scanned units by outcome.
	// Labels: status (scanned, skipped)
	scanFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowmap",
		Subsystem: "scan",
		Name:      "files_total",
		Help:      "Total source units processed by outcome",
	}, []string{"status"})

	// scanDurationSeconds measures whole-project scan latency.
	scanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowmap",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Whole-project scan latency including aggregation",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// recordUnitScanned records one successfully extracted unit.
func recordUnitScanned() {
	scanFilesTotal.WithLabelValues("scanned").Inc()
}

// recordUnitSkipped records one unit skipped after a unit-level failure.
func recordUnitSkipped() {
	scanFilesTotal.WithLabelValues("skipped").Inc()
}

// recordScanDuration records one whole-project scan.
func recordScanDuration(d time.Duration) {
	scanDurationSeconds.Observe(d.Seconds())
}
