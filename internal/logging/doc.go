// Package logging assembles structured slog loggers and formatting helpers used
// across the poster pipeline.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with item guids, stages, and run identifiers. When a log directory is
// configured the console stream is teed into a JSON run log. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
