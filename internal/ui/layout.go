package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutProgressWidth is the minimum width to show the progress column.
	LayoutProgressWidth = 72
)

// Log display limits.
const (
	// LogFetchLimit is the number of records requested from /logs.
	LogFetchLimit = 500

	// LogBufferLimit is the maximum number of log lines kept in memory.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// RequestTimeout bounds every request the UI issues.
	RequestTimeout = 10 * time.Second

	// DefaultUIInterval is how often the UI re-reads the store.
	DefaultUIInterval = time.Second
)

// chromeHeight is the number of rows used by the header and command bar.
const chromeHeight = 2
