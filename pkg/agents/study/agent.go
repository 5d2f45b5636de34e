// Package study implements the study coach: a read-only concept list used
// for explanations and quizzing, with progress appended to a study log.
package study

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/classify"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/registry"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// Concept is one entry of the read-only study material.
type Concept struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SampleQuestion string `json:"sample_question"`
}

// ProgressRecord is one appended study-log entry.
type ProgressRecord struct {
	CreatedAt string `json:"created_at"`
	ConceptID string `json:"concept_id"`
	Outcome   string `json:"outcome"`
	Notes     string `json:"notes,omitempty"`
}

// Agent owns one study session.
type Agent struct {
	store       *jsonfile.Store
	progressLog string
	logger      *slog.Logger
	clock       func() time.Time
	rng         *rand.Rand
	hooks       domain.LifecycleHooks

	registry *registry.Registry
	concepts []Concept

	// lastQuizzed remembers the concept of the most recent quiz question so
	// record_progress can default to it.
	lastQuizzed string
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source for progress records.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

// WithRand sets the quiz-question picker. Tests pin it for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) {
		a.rng = rng
	}
}

// WithHooks registers lifecycle hooks on the registry.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// New creates a study agent. conceptsPath is the read-only concept list;
// progressLog is the append-only study log.
func New(store *jsonfile.Store, conceptsPath, progressLog string, opts ...Option) (*Agent, error) {
	a := &Agent{
		store:       store,
		progressLog: progressLog,
		logger:      logging.NewNop(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(rand.Int63()))
	}

	if err := store.LoadOrInit(context.Background(), conceptsPath, &a.concepts, []Concept{}); err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}
	a.logger.Info("concepts loaded", "path", conceptsPath, "count", len(a.concepts))

	a.registry = registry.New("study", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a, nil
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "study" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are a patient study coach. Explain concepts from the study material in
plain language, quiz the student when they're ready, and record how each
review went. Encourage, never lecture.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// Concepts exposes the loaded study material.
func (a *Agent) Concepts() []Concept { return a.concepts }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "lookup_concept",
		Description: "Explain a concept from the study material.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"concept": registry.StringParam("Concept name or topic the student asked about"),
		}, "concept"),
		Handler: a.lookupConcept,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "quiz_me",
		Description: "Ask the student a practice question.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"concept": registry.StringParam("Concept to quiz on; omit for a random one"),
		}),
		Handler: a.quizMe,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "record_progress",
		Description: "Record how a review or quiz went.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"concept": registry.StringParam("Concept that was reviewed; defaults to the last quizzed one"),
			"outcome": registry.StringParam("How it went, like correct, incorrect, or reviewed"),
			"notes":   registry.StringParam("Anything worth remembering for next time"),
		}, "outcome"),
		Handler: a.recordProgress,
	})
}

func (a *Agent) findConcept(query string) (Concept, bool) {
	titles := make([]string, len(a.concepts))
	for i, c := range a.concepts {
		titles[i] = c.Title
	}
	if i := classify.MatchSubstring(query, titles); i >= 0 {
		return a.concepts[i], true
	}
	if i := classify.BestOverlap(query, titles); i >= 0 {
		return a.concepts[i], true
	}
	for _, c := range a.concepts {
		if strings.EqualFold(c.ID, strings.TrimSpace(query)) {
			return c, true
		}
	}
	return Concept{}, false
}

func (a *Agent) lookupConcept(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Concept string `json:"concept"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	c, ok := a.findConcept(in.Concept)
	if !ok {
		return "", domain.NotFoundf("I don't have %q in the study material.", in.Concept)
	}
	a.logger.Info("concept looked up", "concept", c.ID)
	return fmt.Sprintf("%s: %s", c.Title, c.Summary), nil
}

func (a *Agent) quizMe(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Concept string `json:"concept"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if len(a.concepts) == 0 {
		return "", domain.Preconditionf("There's no study material loaded to quiz from.")
	}

	var c Concept
	if strings.TrimSpace(in.Concept) != "" {
		found, ok := a.findConcept(in.Concept)
		if !ok {
			return "", domain.NotFoundf("I don't have %q in the study material.", in.Concept)
		}
		c = found
	} else {
		c = a.concepts[a.rng.Intn(len(a.concepts))]
	}
	a.lastQuizzed = c.ID
	return fmt.Sprintf("Here's one on %s: %s", c.Title, c.SampleQuestion), nil
}

func (a *Agent) recordProgress(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Concept string `json:"concept"`
		Outcome string `json:"outcome"`
		Notes   string `json:"notes"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	conceptID := a.lastQuizzed
	if strings.TrimSpace(in.Concept) != "" {
		c, ok := a.findConcept(in.Concept)
		if !ok {
			return "", domain.NotFoundf("I don't have %q in the study material.", in.Concept)
		}
		conceptID = c.ID
	}
	if conceptID == "" {
		return "", domain.Preconditionf("Which concept was that for? We haven't quizzed on one yet.")
	}

	record := ProgressRecord{
		CreatedAt: a.clock().Format(time.RFC3339),
		ConceptID: conceptID,
		Outcome:   in.Outcome,
		Notes:     in.Notes,
	}
	if err := a.store.Append(ctx, a.progressLog, record); err != nil {
		return "", fmt.Errorf("failed to persist progress: %w", err)
	}
	a.logger.Info("progress recorded", "concept", conceptID, "outcome", in.Outcome)
	return fmt.Sprintf("Recorded: %s on %s. Keep it up!", in.Outcome, conceptID), nil
}

type snapshot struct {
	LastQuizzed string `json:"last_quizzed"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{LastQuizzed: a.lastQuizzed})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	a.lastQuizzed = snap.LastQuizzed
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.lastQuizzed = ""
}
