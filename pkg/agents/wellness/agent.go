// Package wellness implements the daily check-in companion: free-form
// check-in fields accumulated per conversation and appended to a log, with
// recall of recent entries.
package wellness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/registry"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// Checkin is one saved wellness entry.
type Checkin struct {
	CreatedAt   string   `json:"created_at"`
	Mood        string   `json:"mood"`
	EnergyLevel string   `json:"energy_level"`
	Objectives  []string `json:"objectives"`
	Notes       string   `json:"notes"`
}

// Agent owns one wellness check-in conversation.
type Agent struct {
	store      *jsonfile.Store
	checkinLog string
	logger     *slog.Logger
	clock      func() time.Time
	hooks      domain.LifecycleHooks

	registry *registry.Registry
	current  Checkin
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source for check-ins and recall cutoffs.
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

// New creates a wellness agent appending check-ins to checkinLog.
func New(store *jsonfile.Store, checkinLog string, opts ...Option) *Agent {
	a := &Agent{
		store:      store,
		checkinLog: checkinLog,
		logger:     logging.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.registry = registry.New("wellness", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "wellness" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are a warm, attentive wellness companion doing a short daily check-in.
Ask how the person is feeling, their energy level, and what they'd like to
get done today. Keep it gentle and brief, and save the check-in when they
are done.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// Current exposes the in-progress check-in for inspection.
func (a *Agent) Current() Checkin { return a.current }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "save_checkin",
		Description: "Save today's check-in with whatever was shared.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"mood":         registry.StringParam("How the person says they feel"),
			"energy_level": registry.StringParam("Their energy level, like low or high"),
			"objectives":   registry.StringArrayParam("Things they want to get done today"),
			"notes":        registry.StringParam("Anything else they mentioned"),
		}),
		Handler: a.saveCheckin,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "note_topic",
		Description: "Record something shared that doesn't fit the other fields.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"topic":  registry.StringParam("Short label for what was shared"),
			"detail": registry.StringParam("What they said about it"),
		}, "detail"),
		Handler: a.noteTopic,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "load_previous_checkins",
		Description: "Read back check-ins from the last few days.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"days_back": registry.IntParam("How many days to look back; defaults to 7"),
		}),
		Handler: a.loadPreviousCheckins,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "start_over",
		Description: "Discard the check-in in progress.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "Okay, we'll start fresh. How are you feeling today?", nil
		},
	})
}

func (a *Agent) saveCheckin(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Mood        string   `json:"mood"`
		EnergyLevel string   `json:"energy_level"`
		Objectives  []string `json:"objectives"`
		Notes       string   `json:"notes"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Mood != "" {
		a.current.Mood = in.Mood
	}
	if in.EnergyLevel != "" {
		a.current.EnergyLevel = in.EnergyLevel
	}
	if len(in.Objectives) > 0 {
		a.current.Objectives = append(a.current.Objectives, in.Objectives...)
	}
	if in.Notes != "" {
		a.appendNote(in.Notes)
	}

	a.current.CreatedAt = a.clock().Format(time.RFC3339)
	if a.current.Objectives == nil {
		a.current.Objectives = []string{}
	}
	if err := a.store.Append(ctx, a.checkinLog, a.current); err != nil {
		return "", fmt.Errorf("failed to persist check-in: %w", err)
	}
	a.logger.Info("check-in saved", "mood", a.current.Mood, "energy", a.current.EnergyLevel)

	saved := a.current
	a.current = Checkin{}
	return fmt.Sprintf("Check-in saved. Mood: %s. Energy: %s. Take care of yourself today!",
		orUnspecified(saved.Mood), orUnspecified(saved.EnergyLevel)), nil
}

func (a *Agent) noteTopic(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Topic  string `json:"topic"`
		Detail string `json:"detail"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	note := in.Detail
	if in.Topic != "" {
		note = in.Topic + ": " + in.Detail
	}
	a.appendNote(note)
	return "Noted. Anything else on your mind?", nil
}

func (a *Agent) appendNote(note string) {
	if a.current.Notes == "" {
		a.current.Notes = note
		return
	}
	a.current.Notes += "; " + note
}

func (a *Agent) loadPreviousCheckins(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		DaysBack int `json:"days_back"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if _, ok := args["days_back"]; !ok {
		in.DaysBack = 7
	}

	var entries []Checkin
	if err := a.store.ReadLog(a.checkinLog, &entries); err != nil {
		return "", fmt.Errorf("failed to read check-in log: %w", err)
	}

	cutoff := a.clock().AddDate(0, 0, -in.DaysBack)
	var recent []Checkin
	for _, e := range entries {
		ts, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			recent = append(recent, e)
		}
	}
	if len(recent) == 0 {
		return fmt.Sprintf("I found no check-ins from the last %d days.", in.DaysBack), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d check-in(s) from the last %d days. ", len(recent), in.DaysBack)
	for _, e := range recent {
		fmt.Fprintf(&b, "On %s you felt %s with %s energy. ",
			e.CreatedAt[:10], orUnspecified(e.Mood), orUnspecified(e.EnergyLevel))
	}
	return strings.TrimSpace(b.String()), nil
}

func orUnspecified(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}

type snapshot struct {
	Current Checkin `json:"current"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Current: a.current})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	a.current = snap.Current
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.current = Checkin{}
}
