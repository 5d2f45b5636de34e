// Package sdr implements the sales-development rep: answers product
// questions from a read-only FAQ by keyword overlap and collects lead
// details, appending captured leads to a log.
package sdr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/classify"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/guard"
	"github.com/parley-ai/parley/pkg/registry"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

// FAQEntry is one question/answer pair of the reference data.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQ is the read-only company reference document.
type FAQ struct {
	CompanyName string     `json:"company_name"`
	Description string     `json:"description"`
	Entries     []FAQEntry `json:"faq"`
}

// Lead is the aggregate collected over the conversation. Name, company, and
// email are required before the lead can be saved.
type Lead struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Interest string `json:"interest"`
}

// Missing lists the required fields still unset, in collection order.
func (l Lead) Missing() []string {
	missing := []string{}
	if l.Name == "" {
		missing = append(missing, "name")
	}
	if l.Company == "" {
		missing = append(missing, "company")
	}
	if l.Email == "" {
		missing = append(missing, "email")
	}
	return missing
}

// LeadRecord is one saved lead in the append-only log.
type LeadRecord struct {
	CreatedAt string `json:"created_at"`
	Lead      Lead   `json:"lead"`
}

// Conversation stages.
const (
	StageQualifying guard.Stage = "qualifying"
	StageSaved      guard.Stage = "saved"
)

// Agent owns one prospect conversation.
type Agent struct {
	store    *jsonfile.Store
	leadsLog string
	logger   *slog.Logger
	clock    func() time.Time
	hooks    domain.LifecycleHooks

	registry *registry.Registry
	machine  *guard.Machine
	faq      FAQ
	lead     Lead
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source for saved leads.
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

// New creates an SDR agent. faqPath is the read-only company document;
// leadsLog is the append-only log of captured leads.
func New(store *jsonfile.Store, faqPath, leadsLog string, opts ...Option) (*Agent, error) {
	a := &Agent{
		store:    store,
		leadsLog: leadsLog,
		logger:   logging.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	def := FAQ{Entries: []FAQEntry{}}
	if err := store.LoadOrInit(context.Background(), faqPath, &a.faq, def); err != nil {
		return nil, fmt.Errorf("failed to load FAQ: %w", err)
	}
	a.logger.Info("faq loaded", "path", faqPath, "company", a.faq.CompanyName, "entries", len(a.faq.Entries))

	a.machine = guard.NewMachine("sdr", StageQualifying,
		guard.WithTransitions(map[guard.Stage][]guard.Stage{
			StageQualifying: {StageSaved},
		}),
		guard.WithTerminal(StageSaved),
		guard.WithHooks(a.hooks),
	)
	a.registry = registry.New("sdr", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a, nil
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "sdr" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	company := a.faq.CompanyName
	if company == "" {
		company = "the company"
	}
	return strings.TrimSpace(fmt.Sprintf(`
You are a friendly sales development representative for %s. Answer the
caller's questions from the FAQ, learn who they are and what they need,
and capture their details so the team can follow up. Never invent answers
that aren't in the FAQ.`, company))
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

// Lead exposes the aggregate for inspection.
func (a *Agent) Lead() Lead { return a.lead }

// Stage returns the current workflow stage.
func (a *Agent) Stage() guard.Stage { return a.machine.Current() }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "answer_question",
		Description: "Answer a question about the company from the FAQ.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"question": registry.StringParam("The caller's question, as asked"),
		}, "question"),
		Handler: a.answerQuestion,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "capture_lead",
		Description: "Record lead details the caller just shared.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"name":     registry.StringParam("The caller's name"),
			"company":  registry.StringParam("Where they work"),
			"email":    registry.StringParam("Email for follow-up"),
			"interest": registry.StringParam("What they're interested in"),
		}),
		Handler: a.captureLead,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "save_lead",
		Description: "Save the captured lead for the sales team.",
		Handler:     a.saveLead,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "start_over",
		Description: "Discard the captured details and start again.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "Sure, let's start fresh. How can I help?", nil
		},
	})
}

func (a *Agent) answerQuestion(ctx context.Context, args map[string]any) (string, error) {
	var in struct {
		Question string `json:"question"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	questions := make([]string, len(a.faq.Entries))
	for i, e := range a.faq.Entries {
		questions[i] = e.Question
	}
	i := classify.BestOverlap(in.Question, questions)
	if i < 0 {
		return "", domain.NotFoundf("I don't have that in our FAQ, but I can have someone follow up. Could I get your details?")
	}
	a.logger.Info("faq answered", "question", a.faq.Entries[i].Question)
	return a.faq.Entries[i].Answer, nil
}

func (a *Agent) captureLead(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("That lead is already saved. Say start over to capture another.")
	}
	var in Lead
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Name != "" {
		a.lead.Name = strings.TrimSpace(in.Name)
	}
	if in.Company != "" {
		a.lead.Company = strings.TrimSpace(in.Company)
	}
	if in.Email != "" {
		a.lead.Email = strings.TrimSpace(in.Email)
	}
	if in.Interest != "" {
		a.lead.Interest = strings.TrimSpace(in.Interest)
	}
	a.logger.Info("lead updated", "lead", a.lead)

	missing := a.lead.Missing()
	if len(missing) == 0 {
		return "Thanks, I have everything I need. Shall I pass this along to the team?", nil
	}
	return fmt.Sprintf("Got it. I still need your %s.", strings.Join(missing, ", ")), nil
}

func (a *Agent) saveLead(ctx context.Context, args map[string]any) (string, error) {
	if a.machine.Terminal() {
		return "", domain.Preconditionf("That lead is already saved. Say start over to capture another.")
	}
	if missing := a.lead.Missing(); len(missing) > 0 {
		return "", domain.Preconditionf("I can't save the lead yet, I still need your %s.",
			strings.Join(missing, ", "))
	}

	record := LeadRecord{
		CreatedAt: a.clock().Format(time.RFC3339),
		Lead:      a.lead,
	}
	if err := a.store.Append(ctx, a.leadsLog, record); err != nil {
		return "", fmt.Errorf("failed to persist lead: %w", err)
	}
	if err := a.machine.Advance(ctx, StageSaved); err != nil {
		return "", err
	}
	a.logger.Info("lead saved", "name", a.lead.Name, "company", a.lead.Company)
	return fmt.Sprintf("Perfect, %s. Someone from the team will reach out at %s shortly. Thanks for your time!",
		a.lead.Name, a.lead.Email), nil
}

type snapshot struct {
	Stage guard.Stage `json:"stage"`
	Lead  Lead        `json:"lead"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Stage: a.machine.Current(), Lead: a.lead})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	a.lead = snap.Lead
	a.machine.Restore(snap.Stage)
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.lead = Lead{}
	a.machine.Reset(ctx)
}
