/*
Package parley is a toolkit for building tool-driven conversational agents:
an in-memory domain aggregate mutated exclusively through named operations,
each gated by a workflow stage machine, with state flushed to a durable JSON
store at workflow-defined completion points.

The library core (guard, registry, store) is transport-agnostic; adapters
expose an agent's tool registry over MCP or HTTP, and a small REPL shell
stands in for the external voice session during development.
*/
package parley

import (
	"context"
	"encoding/json"

	"github.com/parley-ai/parley/pkg/registry"
)

// Version is the library version, injected at release time.
var Version = "0.3.0"

// Agent is one conversational agent variant: a named persona plus the tool
// registry it exposes to the driving conversational layer.
type Agent interface {
	// Name identifies the agent variant (e.g. "fraud", "cafe").
	Name() string

	// Instructions returns the spoken-persona system prompt handed to the
	// driving LLM.
	Instructions() string

	// Registry returns the agent's operation dispatcher. The registry is
	// the only surface the external session shell interacts with.
	Registry() *registry.Registry

	// Snapshot serializes the conversation aggregate for session resume.
	Snapshot() (json.RawMessage, error)

	// Restore rehydrates the aggregate from a snapshot.
	Restore(snapshot json.RawMessage) error

	// Reset restores the aggregate to its initial default shape.
	Reset(ctx context.Context)
}
