package cafe_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/agents/cafe"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	catalog := cafe.Catalog{
		Items: []cafe.Item{
			{ID: "espresso", Name: "Espresso", Price: 2.50, Category: "drinks"},
			{ID: "tomato", Name: "Tomato", Price: 0.80, Category: "produce"},
			{ID: "pasta", Name: "Spaghetti Pasta", Price: 1.90, Category: "pantry"},
			{ID: "basil", Name: "Fresh Basil", Price: 1.20, Category: "produce"},
		},
		Recipes: map[string][]string{
			"pasta al pomodoro": {"tomato", "pasta", "basil", "parmesan"},
		},
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestAgent(t *testing.T) (*cafe.Agent, string) {
	t.Helper()
	dir := t.TempDir()
	ordersLog := filepath.Join(dir, "orders.json")
	agent, err := cafe.New(jsonfile.New(), writeCatalog(t, dir), ordersLog,
		cafe.WithClock(func() time.Time {
			return time.Unix(1762160400, 0).UTC()
		}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return agent, ordersLog
}

func dispatch(t *testing.T, a *cafe.Agent, tool string, args map[string]any) string {
	t.Helper()
	result, err := a.Registry().Dispatch(context.Background(), tool, args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool, err)
	}
	return result
}

func TestAddItem_MergesQuantity(t *testing.T) {
	agent, _ := newTestAgent(t)

	dispatch(t, agent, "add_item", map[string]any{"item": "espresso"})
	dispatch(t, agent, "add_item", map[string]any{"item": "Espresso", "quantity": 2})

	if agent.Cart().Len() != 1 {
		t.Fatalf("expected a single merged line, got %d", agent.Cart().Len())
	}
	if q := agent.Cart().Lines()[0].Quantity; q != 3 {
		t.Errorf("expected quantity 3, got %d", q)
	}
}

func TestAddItem_TotalMatchesSum(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "espresso", "quantity": 2})
	dispatch(t, agent, "add_item", map[string]any{"item": "tomato", "quantity": 3})
	dispatch(t, agent, "update_quantity", map[string]any{"item": "tomato", "quantity": 5})

	want := 2*2.50 + 5*0.80
	if got := agent.Cart().Total(); got != want {
		t.Errorf("expected total %.2f, got %.2f", want, got)
	}
}

func TestAddItem_UnknownLeavesCartUnchanged(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "espresso"})

	result := dispatch(t, agent, "add_item", map[string]any{"item": "unicorn frappuccino"})
	if !strings.Contains(result, "unicorn frappuccino") {
		t.Errorf("failure should name the unresolved term: %q", result)
	}
	if agent.Cart().Len() != 1 {
		t.Errorf("failed add must not change cart size, got %d", agent.Cart().Len())
	}
}

func TestRecipe_StepFunctionScaling(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := dispatch(t, agent, "add_recipe_ingredients", map[string]any{"recipe": "pomodoro", "servings": 2})
	// parmesan is not on the menu: skipped, omitted from the confirmation.
	if strings.Contains(result, "parmesan") {
		t.Errorf("unresolved ingredient should be omitted: %q", result)
	}
	for _, l := range agent.Cart().Lines() {
		if l.Quantity != 1 {
			t.Errorf("2 servings should add 1 unit of %s, got %d", l.Name, l.Quantity)
		}
	}

	agent.Reset(context.Background())
	dispatch(t, agent, "add_recipe_ingredients", map[string]any{"recipe": "pasta al pomodoro", "servings": 6})
	for _, l := range agent.Cart().Lines() {
		if l.Quantity != 2 {
			t.Errorf("6 servings should add 2 units of %s, got %d", l.Name, l.Quantity)
		}
	}
}

func TestRecipe_Unknown(t *testing.T) {
	agent, _ := newTestAgent(t)
	result := dispatch(t, agent, "add_recipe_ingredients", map[string]any{"recipe": "beef wellington"})
	if !strings.Contains(result, "beef wellington") {
		t.Errorf("unexpected result: %q", result)
	}
	if agent.Cart().Len() != 0 {
		t.Error("unknown recipe must not mutate the cart")
	}
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "espresso"})
	dispatch(t, agent, "update_quantity", map[string]any{"item": "espresso", "quantity": 0})
	if agent.Cart().Len() != 0 {
		t.Errorf("quantity 0 should remove the line, got %d lines", agent.Cart().Len())
	}
}

func TestRemoveItem_NotFoundEchoesCart(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "tomato"})

	result := dispatch(t, agent, "remove_item", map[string]any{"item": "basil"})
	if !strings.Contains(result, "Tomato") {
		t.Errorf("not-found removal should echo the current cart: %q", result)
	}
	if agent.Cart().Len() != 1 {
		t.Error("not-found removal must not mutate the cart")
	}
}

func TestPlaceOrder_EmptyCartRefused(t *testing.T) {
	agent, ordersLog := newTestAgent(t)

	result := dispatch(t, agent, "place_order", nil)
	if !strings.Contains(result, "empty") {
		t.Errorf("unexpected refusal: %q", result)
	}
	if _, err := os.Stat(ordersLog); !os.IsNotExist(err) {
		t.Error("refused order must not create the log file")
	}
}

func TestPlaceOrder_AppendsAndClears(t *testing.T) {
	agent, ordersLog := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "espresso", "quantity": 2})

	result := dispatch(t, agent, "place_order", nil)
	if !strings.Contains(result, "ORD-1762160400") {
		t.Errorf("expected time-derived order id, got %q", result)
	}
	if !strings.Contains(result, "$5.00") {
		t.Errorf("expected spoken total, got %q", result)
	}
	if agent.Cart().Len() != 0 {
		t.Error("placing the order must clear the cart")
	}

	var records []cafe.OrderRecord
	if err := jsonfile.New().ReadLog(ordersLog, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one appended record, got %d", len(records))
	}
	if records[0].OrderID != "ORD-1762160400" || records[0].Total != 5.00 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestSnapshotRestore(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "add_item", map[string]any{"item": "espresso", "quantity": 2})

	snap, err := agent.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	restored, _ := newTestAgent(t)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Cart().Len() != 1 || restored.Cart().Lines()[0].Quantity != 2 {
		t.Errorf("restored cart mismatch: %+v", restored.Cart().Lines())
	}
}
