package ports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/parley-ai/parley/pkg/domain"
)

// RunSnapshotStoreContract verifies that a SnapshotStore adapter complies
// with the port semantics. Adapter test files call this with a fresh store.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-session")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		snapshot := json.RawMessage(`{"stage":"verified","cart":[{"id":"espresso","quantity":2}]}`)
		if err := store.Save(ctx, "session-1", snapshot); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		var want, got map[string]any
		if err := json.Unmarshal(snapshot, &want); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(loaded, &got); err != nil {
			t.Fatalf("loaded snapshot is not valid JSON: %v", err)
		}
		if got["stage"] != want["stage"] {
			t.Errorf("round-trip mismatch: got %v, want %v", got, want)
		}
	})

	t.Run("OverwriteReplaces", func(t *testing.T) {
		if err := store.Save(ctx, "session-1", json.RawMessage(`{"stage":"resolved"}`)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(loaded, &got); err != nil {
			t.Fatal(err)
		}
		if got["stage"] != "resolved" {
			t.Errorf("expected overwritten snapshot, got %v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := store.Save(ctx, "session-2", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		ids, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		found := map[string]bool{}
		for _, id := range ids {
			found[id] = true
		}
		if !found["session-1"] || !found["session-2"] {
			t.Errorf("expected both sessions listed, got %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "session-1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Load(ctx, "session-1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
		}
		// Deleting a missing session is not an error.
		if err := store.Delete(ctx, "session-1"); err != nil {
			t.Errorf("double delete should be a no-op, got %v", err)
		}
	})
}
