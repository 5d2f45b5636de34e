package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

type caseBank struct {
	FraudCases []map[string]any `json:"fraud_cases"`
}

func TestLoadOrInit_MissingFileMaterializesDefault(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fraud_cases.json")
	store := jsonfile.New()

	var loaded caseBank
	def := caseBank{FraudCases: []map[string]any{}}
	if err := store.LoadOrInit(ctx, path, &loaded, def); err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if loaded.FraudCases == nil || len(loaded.FraudCases) != 0 {
		t.Errorf("expected empty default, got %+v", loaded)
	}

	// The default must have been written to disk.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default file on disk: %v", err)
	}

	// Reloading reproduces an equal document.
	var reloaded caseBank
	if err := store.LoadOrInit(ctx, path, &reloaded, caseBank{}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(reloaded.FraudCases) != 0 {
		t.Errorf("round-trip mismatch: %+v", reloaded)
	}
}

func TestLoadOrInit_MalformedSubstitutesDefault(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := jsonfile.New()
	var loaded caseBank
	def := caseBank{FraudCases: []map[string]any{{"userName": "sam"}}}
	if err := store.LoadOrInit(ctx, path, &loaded, def); err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if len(loaded.FraudCases) != 1 {
		t.Errorf("expected default document, got %+v", loaded)
	}

	// The broken file is left untouched for diagnostics.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{not json" {
		t.Errorf("malformed file should not be rewritten, got %q", data)
	}
}

func TestOverwrite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doc.json")
	store := jsonfile.New()

	doc := map[string]any{"company_name": "BrewBuddy", "faq": []any{}}
	if err := store.Overwrite(ctx, path, doc); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	var loaded map[string]any
	if err := store.LoadOrInit(ctx, path, &loaded, map[string]any{}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded["company_name"] != "BrewBuddy" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.json")
	store := jsonfile.New()

	if err := store.Append(ctx, path, map[string]any{"order_id": "ORD-1"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, path, map[string]any{"order_id": "ORD-2"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var orders []map[string]any
	if err := store.ReadLog(path, &orders); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 records, got %d", len(orders))
	}
	if orders[0]["order_id"] != "ORD-1" || orders[1]["order_id"] != "ORD-2" {
		t.Errorf("append order not preserved: %+v", orders)
	}
}

func TestAppend_MalformedLogTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"}`), 0644); err != nil {
		t.Fatal(err)
	}

	store := jsonfile.New()
	if err := store.Append(ctx, path, map[string]any{"id": 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var records []map[string]any
	if err := store.ReadLog(path, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected log rebuilt from the new record, got %d entries", len(records))
	}
}

func TestPersistHooks(t *testing.T) {
	ctx := context.Background()
	var events []*domain.PersistEvent
	store := jsonfile.New(jsonfile.WithHooks(domain.LifecycleHooks{
		OnPersist: func(_ context.Context, e *domain.PersistEvent) {
			events = append(events, e)
		},
	}))

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := store.Overwrite(ctx, path, map[string]any{"a": 1}); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	if err := store.Append(ctx, path+".log", "entry"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 persist events, got %d", len(events))
	}
	if events[0].Op != "overwrite" || events[1].Op != "append" {
		t.Errorf("unexpected ops: %q, %q", events[0].Op, events[1].Op)
	}
}
