// Package cafe implements the food-ordering assistant: a cart built from a
// static catalog, with recipe expansion and an append-only order log.
package cafe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/classify"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/registry"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// Agent owns one food-ordering conversation.
type Agent struct {
	store     *jsonfile.Store
	ordersLog string
	logger    *slog.Logger
	clock     func() time.Time
	hooks     domain.LifecycleHooks

	registry *registry.Registry
	catalog  Catalog
	cart     Cart
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source used for order IDs.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

// WithHooks registers lifecycle hooks on the registry.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// New creates a cafe agent. catalogPath is the read-only menu document;
// ordersLog is the append-only log of placed orders.
func New(store *jsonfile.Store, catalogPath, ordersLog string, opts ...Option) (*Agent, error) {
	a := &Agent{
		store:     store,
		ordersLog: ordersLog,
		logger:    logging.NewNop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	def := Catalog{Items: []Item{}, Recipes: map[string][]string{}}
	if err := store.LoadOrInit(context.Background(), catalogPath, &a.catalog, def); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.logger.Info("catalog loaded", "path", catalogPath,
		"items", len(a.catalog.Items), "recipes", len(a.catalog.Recipes))

	a.registry = registry.New("cafe", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a, nil
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "cafe" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are a friendly ordering assistant for a small cafe. Help the caller build
an order from the menu, suggest recipes when they describe a dish, confirm
the cart before placing the order, and keep responses short and spoken.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// Cart exposes the aggregate for inspection.
func (a *Agent) Cart() *Cart { return &a.cart }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "add_item",
		Description: "Add a menu item to the cart by name.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"item":     registry.StringParam("Item name, matched as a substring of the menu"),
			"quantity": registry.IntParam("How many to add; defaults to 1"),
		}, "item"),
		Handler: a.addItem,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "add_recipe_ingredients",
		Description: "Add every ingredient of a named recipe to the cart.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"recipe":   registry.StringParam("Recipe name"),
			"servings": registry.IntParam("Number of servings; defaults to 2"),
		}, "recipe"),
		Handler: a.addRecipeIngredients,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "remove_item",
		Description: "Remove an item from the cart.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"item": registry.StringParam("Item name to remove"),
		}, "item"),
		Handler: a.removeItem,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "update_quantity",
		Description: "Change the quantity of an item already in the cart.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"item":     registry.StringParam("Item name to update"),
			"quantity": registry.IntParam("New quantity; zero or less removes the item"),
		}, "item", "quantity"),
		Handler: a.updateQuantity,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "show_cart",
		Description: "Read the current cart contents and total back to the caller.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return a.cart.Describe(), nil
		},
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "place_order",
		Description: "Place the order: persist it to the order log and clear the cart.",
		Handler:     a.placeOrder,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "start_over",
		Description: "Discard the cart and start a fresh order.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "Okay, I've cleared your cart. What would you like to order?", nil
		},
	})
}

func (a *Agent) itemNames() []string {
	names := make([]string, len(a.catalog.Items))
	for i, item := range a.catalog.Items {
		names[i] = item.Name
	}
	return names
}

func (a *Agent) findItem(query string) (Item, bool) {
	i := classify.MatchSubstring(query, a.itemNames())
	if i < 0 {
		return Item{}, false
	}
	return a.catalog.Items[i], true
}

func (a *Agent) addItem(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Item     string `json:"item"`
		Quantity int    `json:"quantity"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	item, ok := a.findItem(in.Item)
	if !ok {
		return "", domain.NotFoundf("I couldn't find %q on the menu. %s", in.Item, a.cart.Describe())
	}
	a.cart.Add(item, in.Quantity)
	a.logger.Info("item added", "item", item.Name, "quantity", in.Quantity)
	return fmt.Sprintf("Added %d x %s. %s", in.Quantity, item.Name, a.cart.Describe()), nil
}

// servingUnits is the coarse recipe scaling step: one unit of each
// ingredient for up to two servings, two units beyond that.
func servingUnits(servings int) int {
	if servings <= 2 {
		return 1
	}
	return 2
}

func (a *Agent) findRecipe(query string) (string, []string, bool) {
	// Exact (case-insensitive) name first.
	for name, ingredients := range a.catalog.Recipes {
		if strings.EqualFold(name, query) {
			return name, ingredients, true
		}
	}
	// Fall back to substring in a stable order.
	names := make([]string, 0, len(a.catalog.Recipes))
	for name := range a.catalog.Recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	if i := classify.MatchSubstring(query, names); i >= 0 {
		return names[i], a.catalog.Recipes[names[i]], true
	}
	return "", nil, false
}

func (a *Agent) addRecipeIngredients(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Recipe   string `json:"recipe"`
		Servings int    `json:"servings"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Servings < 1 {
		in.Servings = 2
	}

	name, ingredients, ok := a.findRecipe(in.Recipe)
	if !ok {
		return "", domain.NotFoundf("I don't have a recipe called %q.", in.Recipe)
	}

	units := servingUnits(in.Servings)
	var added []string
	for _, ingredient := range ingredients {
		item, ok := a.findItem(ingredient)
		if !ok {
			// Unresolved ingredients are skipped; they are simply
			// omitted from the confirmation.
			continue
		}
		a.cart.Add(item, units)
		added = append(added, item.Name)
	}
	if len(added) == 0 {
		return "", domain.NotFoundf("None of the ingredients for %s are on the menu right now.", name)
	}
	return fmt.Sprintf("Added ingredients for %s (%d servings): %s. %s",
		name, in.Servings, strings.Join(added, ", "), a.cart.Describe()), nil
}

func (a *Agent) cartIndex(query string) int {
	names := make([]string, a.cart.Len())
	for i, l := range a.cart.Lines() {
		names[i] = l.Name
	}
	return classify.MatchSubstring(query, names)
}

func (a *Agent) removeItem(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Item string `json:"item"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	i := a.cartIndex(in.Item)
	if i < 0 {
		return "", domain.NotFoundf("%q isn't in your cart. %s", in.Item, a.cart.Describe())
	}
	name := a.cart.Lines()[i].Name
	a.cart.Remove(i)
	return fmt.Sprintf("Removed %s. %s", name, a.cart.Describe()), nil
}

func (a *Agent) updateQuantity(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Item     string `json:"item"`
		Quantity int    `json:"quantity"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	i := a.cartIndex(in.Item)
	if i < 0 {
		return "", domain.NotFoundf("%q isn't in your cart. %s", in.Item, a.cart.Describe())
	}
	name := a.cart.Lines()[i].Name
	if in.Quantity <= 0 {
		a.cart.Remove(i)
		return fmt.Sprintf("Removed %s. %s", name, a.cart.Describe()), nil
	}
	a.cart.SetQuantity(i, in.Quantity)
	return fmt.Sprintf("Updated %s to %d. %s", name, in.Quantity, a.cart.Describe()), nil
}

func (a *Agent) placeOrder(ctx context.Context, args map[string]any) (string, error) {
	if a.cart.Len() == 0 {
		return "", domain.Preconditionf("Your cart is empty. Add something to the order before placing it.")
	}

	now := a.clock()
	record := OrderRecord{
		OrderID:   fmt.Sprintf("ORD-%d", now.Unix()),
		CreatedAt: now.Format(time.RFC3339),
		Items:     append([]LineItem(nil), a.cart.Lines()...),
		Total:     a.cart.Total(),
	}
	if err := a.store.Append(ctx, a.ordersLog, record); err != nil {
		return "", fmt.Errorf("failed to persist order: %w", err)
	}

	total := a.cart.Total()
	a.cart.Clear()
	a.logger.Info("order placed", "order_id", record.OrderID, "total", total)
	return fmt.Sprintf("Order %s placed! Your total is $%.2f. Thank you!", record.OrderID, total), nil
}

type snapshot struct {
	Cart []LineItem `json:"cart"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Cart: a.cart.Lines()})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode cafe snapshot: %w", err)
	}
	a.cart.Clear()
	a.cart.lines = s.Cart
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.cart.Clear()
}
