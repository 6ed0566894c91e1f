package testsupport

import (
	"context"
	"testing"

	"plexbanner/internal/config"
	"plexbanner/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedItem persists an item for tests.
func SeedItem(t testing.TB, st *store.Store, item *store.Item) *store.Item {
	t.Helper()

	if err := st.Upsert(context.Background(), item); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return item
}
