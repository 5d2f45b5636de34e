package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/observability"
)

func TestMetricsHooks(t *testing.T) {
	m := observability.New()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: domain.EventBase{Agent: "fraud"},
		ToolName:  "verify_customer",
	})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase:   domain.EventBase{Agent: "fraud"},
		ToolName:    "verify_customer",
		IsRefusal:   true,
		RefusalKind: domain.RefusalPrecondition,
		Duration:    50 * time.Millisecond,
	})
	hooks.OnStageChange(ctx, &domain.StageEvent{
		EventBase: domain.EventBase{Agent: "fraud"},
		From:      "not_started",
		To:        "case_loaded",
	})
	hooks.OnPersist(ctx, &domain.PersistEvent{Op: "append"})

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"parley_tool_invocations_total",
		"parley_tool_refusals_total",
		"parley_tool_duration_seconds",
		"parley_stage_changes_total",
		"parley_persist_flushes_total",
	} {
		if !found[name] {
			t.Errorf("expected metric family %q to be gathered", name)
		}
	}
}
