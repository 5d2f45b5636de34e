package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/parley-ai/parley"
	"github.com/parley-ai/parley/pkg/agents/cafe"
	"github.com/parley-ai/parley/pkg/agents/coffee"
	"github.com/parley-ai/parley/pkg/agents/fraud"
	"github.com/parley-ai/parley/pkg/agents/game"
	"github.com/parley-ai/parley/pkg/agents/sdr"
	"github.com/parley-ai/parley/pkg/agents/study"
	"github.com/parley-ai/parley/pkg/agents/wellness"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// builders maps agent names to their constructors. Data file names follow
// the layout under the configured data directory.
var builders = map[string]func(*jsonfile.Store, string, *slog.Logger, domain.LifecycleHooks) (parley.Agent, error){
	"fraud": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return fraud.New(store, filepath.Join(dataDir, "fraud_cases.json"),
			fraud.WithLogger(logger), fraud.WithHooks(hooks))
	},
	"cafe": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return cafe.New(store, filepath.Join(dataDir, "catalog.json"), filepath.Join(dataDir, "orders.json"),
			cafe.WithLogger(logger), cafe.WithHooks(hooks))
	},
	"coffee": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return coffee.New(store, filepath.Join(dataDir, "coffee_orders.json"),
			coffee.WithLogger(logger), coffee.WithHooks(hooks)), nil
	},
	"wellness": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return wellness.New(store, filepath.Join(dataDir, "checkins.json"),
			wellness.WithLogger(logger), wellness.WithHooks(hooks)), nil
	},
	"game": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return game.New(game.WithLogger(logger), game.WithHooks(hooks)), nil
	},
	"study": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return study.New(store, filepath.Join(dataDir, "concepts.json"), filepath.Join(dataDir, "progress.json"),
			study.WithLogger(logger), study.WithHooks(hooks))
	},
	"sdr": func(store *jsonfile.Store, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
		return sdr.New(store, filepath.Join(dataDir, "faq.json"), filepath.Join(dataDir, "leads.json"),
			sdr.WithLogger(logger), sdr.WithHooks(hooks))
	},
}

// AgentNames lists the available agent variants, sorted.
func AgentNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAgent constructs the named agent variant with its data files rooted at
// dataDir.
func NewAgent(name, dataDir string, logger *slog.Logger, hooks domain.LifecycleHooks) (parley.Agent, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, AgentNames())
	}
	store := jsonfile.New(jsonfile.WithLogger(logger), jsonfile.WithHooks(hooks))
	return build(store, dataDir, logger, hooks)
}
