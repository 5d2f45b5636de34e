// Package registry implements the operation dispatcher: the set of named
// tools an agent exposes to the driving conversational layer.
//
// Each tool carries a fixed name, a documented natural-language purpose, a
// typed argument schema, and a handler returning a plain string describing
// the outcome. The string is what gets spoken to the end user, so its wording
// is part of the contract. The registry is the only thing exposed to the
// external session shell; handlers are ordinary core functions decoupled from
// any particular LLM-invocation mechanism.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/domain"
)

// Handler is the signature of a tool implementation. It receives free-form
// arguments already validated against the tool schema and returns the spoken
// result. Refusals are returned as *domain.Refusal errors; the registry
// collapses them into result strings so that no refusal ever raises into the
// session shell.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is one named operation.
type Tool struct {
	Name        string
	Description string

	// Schema describes the argument object (openapi3). A nil schema skips
	// validation; the handler receives the raw arguments.
	Schema *openapi3.Schema

	Handler Handler
}

// Registry manages the tools of one agent variant.
type Registry struct {
	agent  string
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHooks registers lifecycle hooks fired around every dispatch.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// New creates an empty registry for the named agent.
func New(agent string, opts ...Option) *Registry {
	r := &Registry{
		agent:  agent,
		logger: logging.NewNop(),
		tools:  make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Agent returns the owning agent name.
func (r *Registry) Agent() string {
	return r.agent
}

// Register adds a tool. Registration order is preserved for listing.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers a tool and panics on error. Intended for agent
// constructors where a duplicate name is a programming error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Tools returns all tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch validates args against the tool schema and invokes the handler.
//
// Refusals (including argument validation failures) are returned as result
// strings with a nil error: the conversation continues and the string is
// spoken back. A non-nil error indicates an infrastructure fault or an
// unknown tool name.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	r.fireCall(ctx, name, args)
	start := time.Now()

	result, err := r.invoke(ctx, tool, args)
	duration := time.Since(start)

	if err != nil {
		if refusal, ok := domain.AsRefusal(err); ok {
			r.logger.Warn("tool refused",
				"agent", r.agent, "tool", name, "kind", refusal.Kind, "reason", refusal.Reason)
			r.fireReturn(ctx, name, refusal.Reason, refusal, false, duration)
			return refusal.Reason, nil
		}
		r.logger.Error("tool failed", "agent", r.agent, "tool", name, "err", err)
		r.fireReturn(ctx, name, "", nil, true, duration)
		return "", fmt.Errorf("tool %s failed: %w", name, err)
	}

	r.logger.Info("tool completed", "agent", r.agent, "tool", name, "duration", duration)
	r.fireReturn(ctx, name, result, nil, false, duration)
	return result, nil
}

func (r *Registry) invoke(ctx context.Context, tool Tool, args map[string]any) (string, error) {
	if tool.Schema != nil {
		if err := tool.Schema.VisitJSON(args); err != nil {
			return "", domain.Ambiguousf(
				"I couldn't use those inputs for %s: %v. Please try again.", tool.Name, err)
		}
	}
	return tool.Handler(ctx, args)
}

func (r *Registry) fireCall(ctx context.Context, name string, args map[string]any) {
	if r.hooks.OnToolCall == nil {
		return
	}
	r.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolCall, Agent: r.agent},
		ToolName:  name,
		Args:      args,
	})
}

func (r *Registry) fireReturn(ctx context.Context, name, result string, refusal *domain.Refusal, isError bool, d time.Duration) {
	if r.hooks.OnToolReturn == nil {
		return
	}
	e := &domain.ToolEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolReturn, Agent: r.agent},
		ToolName:  name,
		Result:    result,
		IsError:   isError,
		Duration:  d,
	}
	if refusal != nil {
		e.IsRefusal = true
		e.RefusalKind = refusal.Kind
	}
	r.hooks.OnToolReturn(ctx, e)
}

// DecodeArgs decodes a free-form argument map into a typed argument struct.
// Fields are matched by json tag; weak typing tolerates the numeric and
// string representations LLM hosts tend to produce.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return nil
}
