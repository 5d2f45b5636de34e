// Package coffee implements the coffee-order taker: a single order record
// collected field by field in any sequence, saved once complete.
package coffee

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/guard"
	"github.com/parley-ai/parley/pkg/registry"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// Order is the aggregate collected over the conversation. All four fields
// are required before the order can be saved.
type Order struct {
	DrinkType string `json:"drink_type"`
	Size      string `json:"size"`
	Milk      string `json:"milk"`
	Name      string `json:"name"`
}

// Missing lists the required fields still unset, in collection order.
func (o Order) Missing() []string {
	missing := []string{}
	if o.DrinkType == "" {
		missing = append(missing, "drink_type")
	}
	if o.Size == "" {
		missing = append(missing, "size")
	}
	if o.Milk == "" {
		missing = append(missing, "milk")
	}
	if o.Name == "" {
		missing = append(missing, "name")
	}
	return missing
}

// Complete reports whether every required field is populated.
func (o Order) Complete() bool {
	return len(o.Missing()) == 0
}

// Summary renders the order the way the barista would call it out.
func (o Order) Summary() string {
	drink := strings.TrimSpace(o.Size + " " + o.DrinkType)
	return fmt.Sprintf("A %s with %s milk for %s.", drink, o.Milk, o.Name)
}

// OrderRecord is one saved order in the append-only log.
type OrderRecord struct {
	CreatedAt string `json:"created_at"`
	Order     Order  `json:"order"`
}

// Conversation stages.
const (
	StageCollecting guard.Stage = "collecting"
	StageSaved      guard.Stage = "saved"
)

// Agent owns one coffee-order conversation.
type Agent struct {
	store     *jsonfile.Store
	ordersLog string
	logger    *slog.Logger
	clock     func() time.Time
	hooks     domain.LifecycleHooks

	registry *registry.Registry
	machine  *guard.Machine
	order    Order
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source for saved orders.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

// WithHooks registers lifecycle hooks on the registry and stage machine.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// New creates a coffee agent writing saved orders to ordersLog.
func New(store *jsonfile.Store, ordersLog string, opts ...Option) *Agent {
	a := &Agent{
		store:     store,
		ordersLog: ordersLog,
		logger:    logging.NewNop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.machine = guard.NewMachine("coffee", StageCollecting,
		guard.WithTransitions(map[guard.Stage][]guard.Stage{
			StageCollecting: {StageSaved},
		}),
		guard.WithTerminal(StageSaved),
		guard.WithHooks(a.hooks),
	)
	a.registry = registry.New("coffee", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "coffee" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are a cheerful barista taking a coffee order. Collect the drink type,
size, milk choice, and the customer's name, in whatever order they give
them. Once everything is collected, confirm and save the order.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// Order exposes the aggregate for inspection.
func (a *Agent) Order() Order { return a.order }

// Stage returns the current workflow stage.
func (a *Agent) Stage() guard.Stage { return a.machine.Current() }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "update_order",
		Description: "Record one or more order fields the customer just gave.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"drink_type": registry.StringParam("Drink the customer wants, like latte or cappuccino"),
			"size":       registry.StringParam("Drink size: small, medium, or large"),
			"milk":       registry.StringParam("Milk choice, like whole, oat, or almond"),
			"name":       registry.StringParam("Name for the order"),
		}),
		Handler: a.updateOrder,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "save_order",
		Description: "Save the completed order so the baristas can make it.",
		Handler:     a.saveOrder,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "start_over",
		Description: "Discard the order in progress and start again.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "No problem, let's start over. What can I get you?", nil
		},
	})
}

func (a *Agent) updateOrder(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("That order is already saved. Say start over if you'd like another.")
	}
	var in Order
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.DrinkType != "" {
		a.order.DrinkType = strings.ToLower(strings.TrimSpace(in.DrinkType))
	}
	if in.Size != "" {
		a.order.Size = strings.ToLower(strings.TrimSpace(in.Size))
	}
	if in.Milk != "" {
		a.order.Milk = strings.ToLower(strings.TrimSpace(in.Milk))
	}
	if in.Name != "" {
		a.order.Name = strings.TrimSpace(in.Name)
	}
	a.logger.Info("order updated", "order", a.order)

	missing := a.order.Missing()
	if len(missing) == 0 {
		return fmt.Sprintf("Got it. %s Shall I save the order?", a.order.Summary()), nil
	}
	return fmt.Sprintf("Got it. I still need: %s.", strings.Join(missing, ", ")), nil
}

func (a *Agent) saveOrder(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("That order is already saved. Say start over if you'd like another.")
	}
	if missing := a.order.Missing(); len(missing) > 0 {
		return "", domain.Preconditionf("I can't save the order yet, I still need: %s.",
			strings.Join(missing, ", "))
	}

	record := OrderRecord{
		CreatedAt: a.clock().Format(time.RFC3339),
		Order:     a.order,
	}
	if err := a.store.Append(ctx, a.ordersLog, record); err != nil {
		return "", fmt.Errorf("failed to persist order: %w", err)
	}
	if err := a.machine.Advance(ctx, StageSaved); err != nil {
		return "", err
	}
	a.logger.Info("order saved", "order", a.order)
	return fmt.Sprintf("Order saved! %s It'll be ready shortly.", a.order.Summary()), nil
}

type snapshot struct {
	Stage guard.Stage `json:"stage"`
	Order Order       `json:"order"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Stage: a.machine.Current(), Order: a.order})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	a.order = snap.Order
	a.machine.Restore(snap.Stage)
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.order = Order{}
	a.machine.Reset(ctx)
}
