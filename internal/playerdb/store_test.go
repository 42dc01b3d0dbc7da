package playerdb

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryStoreScopedUpsertsFoldIntoSubDocument(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Init(ctx, "p1", "Tester"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.Upsert(ctx, "", "rank", map[string]string{"constructed": "Gold"}); err != nil {
		t.Fatalf("upsert rank: %v", err)
	}
	if err := store.Upsert(ctx, "deck_changes", "c1", map[string]string{"id": "c1"}); err != nil {
		t.Fatalf("upsert change: %v", err)
	}

	raw, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if _, ok := raw["rank"]; !ok {
		t.Fatal("top-level rank missing")
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(raw["deck_changes"], &changes); err != nil {
		t.Fatalf("decode folded scope: %v", err)
	}
	if _, ok := changes["c1"]; !ok {
		t.Fatalf("folded sub-document = %v", changes)
	}
}

func TestMemoryStoreSwitchingAccountsClearsDocument(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Init(ctx, "p1", ""); err != nil {
		t.Fatalf("init p1: %v", err)
	}
	if err := store.Upsert(ctx, "", "rank", "Gold"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Init(ctx, "p2", ""); err != nil {
		t.Fatalf("init p2: %v", err)
	}
	raw, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("p2 document = %v, want empty", raw)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewSQLiteStore(dir)
	ctx := context.Background()
	if err := store.Init(ctx, "p1", "Tester"); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer store.Close()

	if err := store.Upsert(ctx, "", "settings", map[string]any{"sound_priority": true}); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}
	if err := store.Upsert(ctx, "", "settings", map[string]any{"sound_priority": false}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := store.Upsert(ctx, "deck_changes", "c1", map[string]string{"id": "c1"}); err != nil {
		t.Fatalf("upsert scoped: %v", err)
	}

	raw, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	var settings map[string]any
	if err := json.Unmarshal(raw["settings"], &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings["sound_priority"] != false {
		t.Fatalf("settings = %v, want overwritten value", settings)
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(raw["deck_changes"], &changes); err != nil {
		t.Fatalf("decode folded scope: %v", err)
	}
	if _, ok := changes["c1"]; !ok {
		t.Fatalf("folded sub-document = %v", changes)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	store := NewSQLiteStore(dir)
	if err := store.Init(ctx, "p1", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.Upsert(ctx, "", "rank", "Gold"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dir)
	if err := reopened.Init(ctx, "p1", ""); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	raw, err := reopened.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	var rank string
	if err := json.Unmarshal(raw["rank"], &rank); err != nil {
		t.Fatalf("decode rank: %v", err)
	}
	if rank != "Gold" {
		t.Fatalf("rank = %q, want Gold", rank)
	}
}
