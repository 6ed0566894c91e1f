// Package services defines shared utilities consumed by the poster pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item guids, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent item outcomes (skipped vs failed).
//
// Integrations with the media server live in subpackages.
package services
