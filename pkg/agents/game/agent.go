// Package game implements the tabletop game master: dice rolls, bounded
// player stats with a defeat condition, and a simple inventory. The world is
// per-conversation state; it survives only through session snapshots.
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/classify"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/guard"
	"github.com/parley-ai/parley/pkg/registry"
)

// Conversation stages.
const (
	StagePlaying  guard.Stage = "playing"
	StageDefeated guard.Stage = "defeated"
)

// Agent owns one adventure.
type Agent struct {
	logger *slog.Logger
	rng    *rand.Rand
	hooks  domain.LifecycleHooks

	registry *registry.Registry
	machine  *guard.Machine
	world    World
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithRand sets the dice source. Tests pin it for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) {
		a.rng = rng
	}
}

// WithHooks registers lifecycle hooks on the registry and stage machine.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// New creates a game master agent with a fresh world.
func New(opts ...Option) *Agent {
	a := &Agent{
		logger: logging.NewNop(),
		world:  NewWorld(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	a.machine = guard.NewMachine("game", StagePlaying,
		guard.WithTransitions(map[guard.Stage][]guard.Stage{
			StagePlaying: {StageDefeated},
		}),
		guard.WithTerminal(StageDefeated),
		guard.WithHooks(a.hooks),
	)
	a.registry = registry.New("game", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "game" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are an enthusiastic game master running a short fantasy adventure.
Narrate vividly, call for dice rolls when the player attempts something
risky, and track their stats and inventory through the tools. If their
health reaches zero the adventure is over until the world is reset.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// World exposes the aggregate for inspection.
func (a *Agent) World() *World { return &a.world }

// Stage returns the current workflow stage.
func (a *Agent) Stage() guard.Stage { return a.machine.Current() }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "roll_dice",
		Description: "Roll a die and report the result.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"sides":    registry.IntParam("Number of sides; defaults to 20"),
			"modifier": registry.IntParam("Added to the roll; may be negative"),
		}),
		Handler: a.rollDice,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "update_stat",
		Description: "Apply a change to a player stat, like damage or healing.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"stat":  registry.StringParam("Stat name, like health or gold"),
			"delta": registry.IntParam("Amount to add; negative to subtract"),
		}, "stat", "delta"),
		Handler: a.updateStat,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "grant_item",
		Description: "Give the player an item.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"item": registry.StringParam("Item to add to the inventory"),
		}, "item"),
		Handler: a.grantItem,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "use_item",
		Description: "Use up an item from the player's inventory.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"item": registry.StringParam("Item to use"),
		}, "item"),
		Handler: a.useItem,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "show_world",
		Description: "Read the player's stats and inventory back.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return a.world.Describe(), nil
		},
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "reset_world",
		Description: "Start the adventure over with a fresh world.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "The world resets. A new adventure begins! " + a.world.Describe(), nil
		},
	})
}

func (a *Agent) rollDice(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Sides    int `json:"sides"`
		Modifier int `json:"modifier"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Sides < 2 {
		in.Sides = 20
	}
	roll := a.rng.Intn(in.Sides) + 1
	total := roll + in.Modifier
	a.logger.Info("dice rolled", "sides", in.Sides, "roll", roll, "modifier", in.Modifier)
	if in.Modifier == 0 {
		return fmt.Sprintf("You rolled a %d on a d%d.", roll, in.Sides), nil
	}
	return fmt.Sprintf("You rolled a %d on a d%d, for a total of %d.", roll, in.Sides, total), nil
}

func (a *Agent) updateStat(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("The adventure is over. Reset the world to play again.")
	}
	var in struct {
		Stat  string `json:"stat"`
		Delta int    `json:"delta"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	name := strings.ToLower(strings.TrimSpace(in.Stat))
	s, ok := a.world.AdjustStat(name, in.Delta)
	if !ok {
		return "", domain.NotFoundf("There is no stat called %q.", in.Stat)
	}
	a.logger.Info("stat updated", "stat", name, "delta", in.Delta, "value", s.Value)

	if a.world.Defeated {
		if err := a.machine.Advance(ctx, StageDefeated); err != nil {
			return "", err
		}
		return fmt.Sprintf("Your %s falls to 0. You have been defeated! The adventure is over.", name), nil
	}
	return fmt.Sprintf("Your %s is now %d of %d.", name, s.Value, s.Max), nil
}

func (a *Agent) grantItem(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("The adventure is over. Reset the world to play again.")
	}
	var in struct {
		Item string `json:"item"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return "", domain.Ambiguousf("What item should the player receive?")
	}
	a.world.Grant(item)
	return fmt.Sprintf("You receive: %s. %s", item, a.world.Describe()), nil
}

func (a *Agent) useItem(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("The adventure is over. Reset the world to play again.")
	}
	var in struct {
		Item string `json:"item"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	i := classify.MatchSubstring(in.Item, a.world.Inventory)
	if i < 0 {
		return "", domain.NotFoundf("You aren't carrying %q.", in.Item)
	}
	used := a.world.Use(i)
	return fmt.Sprintf("You use the %s. %s", used, a.world.Describe()), nil
}

type snapshot struct {
	Stage guard.Stage `json:"stage"`
	World World       `json:"world"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Stage: a.machine.Current(), World: a.world})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	a.world = snap.World
	a.machine.Restore(snap.Stage)
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.world = NewWorld()
	a.machine.Reset(ctx)
}
