package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventToolCall    EventType = "tool_call"
	EventToolReturn  EventType = "tool_return"
	EventStageChange EventType = "stage_change"
	EventPersist     EventType = "persist"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Agent     string    `json:"agent,omitempty"`
}

// ToolEvent represents a tool dispatch or its completion.
type ToolEvent struct {
	EventBase
	ToolName    string         `json:"tool_name"`
	Args        map[string]any `json:"args,omitempty"`
	Result      string         `json:"result,omitempty"`
	IsRefusal   bool           `json:"is_refusal,omitempty"`
	RefusalKind RefusalKind    `json:"refusal_kind,omitempty"`
	IsError     bool           `json:"is_error,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
}

// StageEvent represents a workflow stage transition.
type StageEvent struct {
	EventBase
	From string `json:"from"`
	To   string `json:"to"`
}

// PersistEvent represents a durable-store flush (append or overwrite).
type PersistEvent struct {
	EventBase
	Path    string `json:"path"`
	Op      string `json:"op"` // "append" or "overwrite"
	IsError bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for conversation observability.
// All callbacks are optional; nil hooks are skipped.
type LifecycleHooks struct {
	OnToolCall    func(context.Context, *ToolEvent)
	OnToolReturn  func(context.Context, *ToolEvent)
	OnStageChange func(context.Context, *StageEvent)
	OnPersist     func(context.Context, *PersistEvent)
}

// Merge combines two hook sets, invoking both where both are set.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnToolCall:    chain(h.OnToolCall, other.OnToolCall),
		OnToolReturn:  chain(h.OnToolReturn, other.OnToolReturn),
		OnStageChange: chain(h.OnStageChange, other.OnStageChange),
		OnPersist:     chain(h.OnPersist, other.OnPersist),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
