// Package guard encodes the legal ordering of conversation operations.
//
// Each agent variant declares a stage machine (stages, legal transitions,
// terminal stages) and a policy table mapping operation names to the stages
// in which they may run. Out-of-order calls are rejected with a descriptive
// refusal instead of mutating anything.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/parley-ai/parley/pkg/domain"
)

// Stage identifies a point in a conversation workflow.
type Stage string

// Machine tracks the current workflow stage of one conversation.
// It is owned by exactly one conversation handler and is not safe for
// concurrent use; the session shell delivers one operation at a time.
type Machine struct {
	agent       string
	current     Stage
	initial     Stage
	transitions map[Stage][]Stage
	terminal    map[Stage]bool
	hooks       domain.LifecycleHooks
}

// Option configures a Machine.
type Option func(*Machine)

// WithTransitions declares the legal moves out of each stage. A machine
// without declared transitions permits any advance.
func WithTransitions(t map[Stage][]Stage) Option {
	return func(m *Machine) {
		m.transitions = t
	}
}

// WithTerminal marks stages that block all further advances except Reset.
func WithTerminal(stages ...Stage) Option {
	return func(m *Machine) {
		for _, s := range stages {
			m.terminal[s] = true
		}
	}
}

// WithHooks registers lifecycle hooks fired on stage changes.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// NewMachine creates a machine positioned at the initial stage.
func NewMachine(agent string, initial Stage, opts ...Option) *Machine {
	m := &Machine{
		agent:    agent,
		current:  initial,
		initial:  initial,
		terminal: make(map[Stage]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the stage the conversation is in.
func (m *Machine) Current() Stage {
	return m.current
}

// At reports whether the machine is in any of the given stages.
func (m *Machine) At(stages ...Stage) bool {
	for _, s := range stages {
		if m.current == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the current stage blocks further mutation.
func (m *Machine) Terminal() bool {
	return m.terminal[m.current]
}

// Advance moves the machine to the given stage. It fails if the current
// stage is terminal or the move is not declared legal.
func (m *Machine) Advance(ctx context.Context, to Stage) error {
	if m.terminal[m.current] {
		return fmt.Errorf("stage %q is terminal; cannot advance to %q", m.current, to)
	}
	if m.transitions != nil {
		legal := false
		for _, next := range m.transitions[m.current] {
			if next == to {
				legal = true
				break
			}
		}
		if !legal {
			return fmt.Errorf("illegal transition from %q to %q", m.current, to)
		}
	}
	m.move(ctx, to)
	return nil
}

// Reset returns the machine to its initial stage. Reset is the only move
// allowed out of a terminal stage.
func (m *Machine) Reset(ctx context.Context) {
	m.move(ctx, m.initial)
}

// Restore positions the machine at a stage without transition checks or
// hooks. Used when resuming a persisted session snapshot.
func (m *Machine) Restore(to Stage) {
	m.current = to
}

func (m *Machine) move(ctx context.Context, to Stage) {
	from := m.current
	m.current = to
	if m.hooks.OnStageChange != nil {
		m.hooks.OnStageChange(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventStageChange,
				Agent:     m.agent,
			},
			From: string(from),
			To:   string(to),
		})
	}
}
