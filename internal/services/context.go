package services

import "context"

type contextKey string

const (
	itemGUIDKey contextKey = "item_guid"
	stageKey    contextKey = "stage"
	runIDKey    contextKey = "run_id"
)

// WithItemGUID annotates context with the media server item guid.
func WithItemGUID(ctx context.Context, guid string) context.Context {
	if guid == "" {
		return ctx
	}
	return context.WithValue(ctx, itemGUIDKey, guid)
}

// ItemGUIDFromContext extracts the item guid if present.
func ItemGUIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemGUIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the processing stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the batch run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
