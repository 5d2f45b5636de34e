package coffee_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/agents/coffee"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

func newTestAgent(t *testing.T) (*coffee.Agent, string) {
	t.Helper()
	ordersLog := filepath.Join(t.TempDir(), "orders.json")
	agent := coffee.New(jsonfile.New(), ordersLog,
		coffee.WithClock(func() time.Time {
			return time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
		}))
	return agent, ordersLog
}

func dispatch(t *testing.T, a *coffee.Agent, tool string, args map[string]any) string {
	t.Helper()
	result, err := a.Registry().Dispatch(context.Background(), tool, args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool, err)
	}
	return result
}

func TestUpdateOrder_ReportsMissingFields(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := dispatch(t, agent, "update_order", map[string]any{
		"drink_type": "latte", "size": "large",
	})
	if !strings.Contains(result, "milk, name") {
		t.Errorf("expected remaining fields in order, got %q", result)
	}

	result = dispatch(t, agent, "update_order", map[string]any{
		"milk": "oat", "name": "Sam",
	})
	if strings.Contains(result, "still need") {
		t.Errorf("complete order should not report missing fields: %q", result)
	}
	if !strings.Contains(result, "large latte") || !strings.Contains(result, "oat milk") {
		t.Errorf("summary should read the order back: %q", result)
	}
}

func TestSaveOrder_RefusedWhileIncomplete(t *testing.T) {
	agent, ordersLog := newTestAgent(t)
	dispatch(t, agent, "update_order", map[string]any{"drink_type": "mocha"})

	result := dispatch(t, agent, "save_order", nil)
	if !strings.Contains(result, "size, milk, name") {
		t.Errorf("refusal should list the missing fields: %q", result)
	}
	if agent.Stage() != coffee.StageCollecting {
		t.Errorf("refused save must not advance the stage, got %q", agent.Stage())
	}

	var records []coffee.OrderRecord
	if err := jsonfile.New().ReadLog(ordersLog, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("refused save must not append, got %d records", len(records))
	}
}

func TestSaveOrder_AppendsOnceComplete(t *testing.T) {
	agent, ordersLog := newTestAgent(t)
	dispatch(t, agent, "update_order", map[string]any{
		"drink_type": "Latte", "size": "Large", "milk": "Oat", "name": "Sam",
	})

	result := dispatch(t, agent, "save_order", nil)
	if !strings.Contains(result, "large latte") || !strings.Contains(result, "oat milk") {
		t.Errorf("confirmation should read the order back: %q", result)
	}
	if agent.Stage() != coffee.StageSaved {
		t.Errorf("expected stage %q, got %q", coffee.StageSaved, agent.Stage())
	}

	var records []coffee.OrderRecord
	if err := jsonfile.New().ReadLog(ordersLog, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].CreatedAt != "2025-11-03T09:00:00Z" {
		t.Errorf("unexpected created_at %q", records[0].CreatedAt)
	}
	if records[0].Order.Name != "Sam" || records[0].Order.DrinkType != "latte" {
		t.Errorf("unexpected record %+v", records[0].Order)
	}
}

func TestSaveOrder_TerminalRefusesFurtherMutation(t *testing.T) {
	agent, ordersLog := newTestAgent(t)
	dispatch(t, agent, "update_order", map[string]any{
		"drink_type": "latte", "size": "small", "milk": "whole", "name": "Ava",
	})
	dispatch(t, agent, "save_order", nil)

	result := dispatch(t, agent, "save_order", nil)
	if !strings.Contains(result, "already saved") {
		t.Errorf("unexpected result: %q", result)
	}
	result = dispatch(t, agent, "update_order", map[string]any{"size": "large"})
	if !strings.Contains(result, "already saved") {
		t.Errorf("unexpected result: %q", result)
	}

	var records []coffee.OrderRecord
	if err := jsonfile.New().ReadLog(ordersLog, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("repeat save must not append again, got %d records", len(records))
	}
}

func TestStartOver_ClearsOrderAndStage(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "update_order", map[string]any{
		"drink_type": "latte", "size": "small", "milk": "whole", "name": "Ava",
	})
	dispatch(t, agent, "save_order", nil)
	dispatch(t, agent, "start_over", nil)

	if agent.Stage() != coffee.StageCollecting {
		t.Errorf("expected collecting after start over, got %q", agent.Stage())
	}
	if agent.Order() != (coffee.Order{}) {
		t.Errorf("expected empty order, got %+v", agent.Order())
	}
}

func TestSnapshotRestore(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "update_order", map[string]any{"drink_type": "latte", "milk": "oat"})

	snap, err := agent.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	restored, _ := newTestAgent(t)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Order().DrinkType != "latte" || restored.Order().Milk != "oat" {
		t.Errorf("restored order mismatch: %+v", restored.Order())
	}
}
