package services_test

import (
	"context"
	"testing"

	"plexbanner/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemGUID(ctx, "plex://movie/abc")
	ctx = services.WithStage(ctx, "detect")
	ctx = services.WithRunID(ctx, "run-123")

	if guid, ok := services.ItemGUIDFromContext(ctx); !ok || guid != "plex://movie/abc" {
		t.Fatalf("unexpected item guid: %v %v", guid, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "detect" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithItemGUID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ItemGUIDFromContext(ctx); ok {
		t.Fatal("expected no guid value")
	}
}
