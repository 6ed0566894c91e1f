package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers tag errors so the pipeline can decide what an item failure means.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with marker and prefixes it with the non-empty parts of
// stage, operation and message. A nil marker means ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(stage, operation, message)
	if detail == "" {
		detail = "unspecified failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Outcome is the per-item result recorded after a processing failure.
type Outcome string

const (
	// OutcomeSkipped items fail the same way until the input or configuration changes.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed items are retried on the next run.
	OutcomeFailed Outcome = "failed"
)

// Classify maps a processing error to the outcome the pipeline records.
func Classify(err error) Outcome {
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, marker) {
			return OutcomeSkipped
		}
	}
	return OutcomeFailed
}

func joinNonEmpty(values ...string) string {
	var b strings.Builder
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(v)
	}
	return b.String()
}
