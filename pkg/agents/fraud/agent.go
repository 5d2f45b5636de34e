// Package fraud implements the fraud-alert IVR agent: a bank representative
// that loads a pending case, verifies the caller against a security
// question, discloses the suspicious transaction, and records the outcome.
package fraud

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

// Workflow stages. Verification failure and resolution are terminal: they
// block every domain-mutating operation except an explicit start_over.
const (
	StageNotStarted           guard.Stage = "not_started"
	StageCaseLoaded           guard.Stage = "case_loaded"
	StageVerified             guard.Stage = "verified"
	StageVerificationFailed   guard.Stage = "verification_failed"
	StageTransactionDescribed guard.Stage = "transaction_described"
	StageResolved             guard.Stage = "resolved"
)

// Agent owns one fraud-alert conversation. It is constructed per
// conversation and never shared: simultaneous calls must not share state.
type Agent struct {
	store  *jsonfile.Store
	path   string
	logger *slog.Logger
	clock  func() time.Time

	hooks    domain.LifecycleHooks
	machine  *guard.Machine
	policy   *guard.Policy
	registry *registry.Registry

	bank    caseBank
	current int // index into bank.FraudCases, -1 when no case is loaded
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}

// WithHooks registers lifecycle hooks on the stage machine and registry.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// New creates a fraud agent reading its case bank from path. A missing bank
// file is materialized empty; a malformed one degrades to empty.
func New(store *jsonfile.Store, path string, opts ...Option) (*Agent, error) {
	a := &Agent{
		store:   store,
		path:    path,
		logger:  logging.NewNop(),
		clock:   time.Now,
		current: -1,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := store.LoadOrInit(context.Background(), path, &a.bank, caseBank{FraudCases: []Case{}}); err != nil {
		return nil, fmt.Errorf("failed to load fraud case bank: %w", err)
	}
	a.logger.Info("fraud case bank loaded", "path", path, "cases", len(a.bank.FraudCases))

	a.machine = guard.NewMachine("fraud", StageNotStarted,
		guard.WithTransitions(map[guard.Stage][]guard.Stage{
			StageNotStarted:           {StageCaseLoaded},
			StageCaseLoaded:           {StageCaseLoaded, StageVerified, StageVerificationFailed},
			StageVerified:             {StageTransactionDescribed},
			StageTransactionDescribed: {StageResolved},
		}),
		guard.WithTerminal(StageVerificationFailed, StageResolved),
		guard.WithHooks(a.hooks),
	)
	a.policy = guard.NewPolicy(a.machine, map[string]guard.Gate{
		"load_fraud_case": {
			Allowed: []guard.Stage{StageNotStarted, StageCaseLoaded},
			Refusal: "This call is already past case selection. Say start over to begin a new review.",
		},
		"get_security_question": {
			Allowed: []guard.Stage{StageCaseLoaded, StageVerified, StageTransactionDescribed},
			Refusal: "No fraud case loaded. Please load a fraud case first.",
		},
		"verify_customer": {
			Allowed: []guard.Stage{StageCaseLoaded},
			Refusal: "No fraud case loaded. Please load a fraud case first.",
		},
		"describe_transaction": {
			Allowed: []guard.Stage{StageVerified},
			Refusal: "Customer verification required before describing transaction.",
		},
		"confirm_transaction": {
			Allowed: []guard.Stage{StageTransactionDescribed},
			Refusal: "Please describe the transaction first.",
		},
	})

	a.registry = registry.New("fraud", registry.WithLogger(a.logger), registry.WithHooks(a.hooks))
	a.registerTools()
	return a, nil
}

// Name implements parley.Agent.
func (a *Agent) Name() string { return "fraud" }

// Instructions returns the spoken persona for the driving LLM.
func (a *Agent) Instructions() string {
	return strings.TrimSpace(`
You are a professional fraud detection representative for SecureBank handling
fraud alert calls. Never ask for full card numbers, PINs, passwords, or
sensitive credentials; use only the stored security question for
verification. Speak calmly and professionally. Follow the call flow exactly:
greet, load the customer's case, ask the security question, verify, describe
the suspicious transaction, ask for a yes/no confirmation, then explain the
action taken and end the call.`)
}

// Registry implements parley.Agent.
func (a *Agent) Registry() *registry.Registry { return a.registry }

func (a *Agent) registerTools() {
	a.registry.MustRegister(registry.Tool{
		Name:        "load_fraud_case",
		Description: "Load the pending fraud case for the specified customer.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"username": registry.StringParam("Customer name as stored in the case bank"),
		}, "username"),
		Handler: a.loadFraudCase,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "get_security_question",
		Description: "Get the security question for the current fraud case.",
		Handler:     a.getSecurityQuestion,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "verify_customer",
		Description: "Verify the customer's identity using the stored security answer.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"answer": registry.StringParam("The customer's answer to the security question"),
		}, "answer"),
		Handler: a.verifyCustomer,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "describe_transaction",
		Description: "Describe the suspicious transaction details to the customer.",
		Handler:     a.describeTransaction,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "confirm_transaction",
		Description: "Record whether the customer recognizes the transaction.",
		Schema: registry.ObjectParams(map[string]*registry.Schema{
			"customer_response": registry.StringParam("The customer's verbatim yes/no response"),
		}, "customer_response"),
		Handler: a.confirmTransaction,
	})
	a.registry.MustRegister(registry.Tool{
		Name:        "start_over",
		Description: "Abandon the current review and return to the start of the call.",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			a.Reset(ctx)
			return "Starting over. Which customer is this call about?", nil
		},
	})
}

func (a *Agent) loadFraudCase(ctx context.Context, args map[string]any) (string, error) {
	if err := a.policy.CanPerform("load_fraud_case"); err != nil {
		return "", err
	}
	var in struct {
		Username string `json:"username"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	for i, c := range a.bank.FraudCases {
		if strings.EqualFold(c.UserName, in.Username) && c.Status == StatusPendingReview {
			a.current = i
			if err := a.machine.Advance(ctx, StageCaseLoaded); err != nil {
				return "", err
			}
			a.logger.Info("fraud case loaded", "username", in.Username)
			return fmt.Sprintf("Found pending fraud case for %s. Ready for verification.", in.Username), nil
		}
	}
	return "", domain.NotFoundf(
		"No pending fraud cases found for %s. Please check the username and try again.", in.Username)
}

func (a *Agent) getSecurityQuestion(ctx context.Context, args map[string]any) (string, error) {
	if err := a.policy.CanPerform("get_security_question"); err != nil {
		return "", err
	}
	q := a.bank.FraudCases[a.current].SecurityQuestion
	if q == "" {
		return "No security question available.", nil
	}
	return q, nil
}

func (a *Agent) verifyCustomer(ctx context.Context, args map[string]any) (string, error) {
	if err := a.policy.CanPerform("verify_customer"); err != nil {
		return "", err
	}
	var in struct {
		Answer string `json:"answer"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	c := &a.bank.FraudCases[a.current]
	given := strings.TrimSpace(strings.ToLower(in.Answer))
	correct := strings.TrimSpace(strings.ToLower(c.SecurityAnswer))

	if given == correct {
		if err := a.machine.Advance(ctx, StageVerified); err != nil {
			return "", err
		}
		return "Verification successful. I can now proceed with the transaction review.", nil
	}

	c.Status = StatusVerificationFailed
	c.Outcome = fmt.Sprintf("Customer failed verification on %s", a.clock().Format(time.RFC3339))
	if err := a.store.Overwrite(ctx, a.path, a.bank); err != nil {
		a.logger.Error("failed to persist verification failure", "err", err)
	}
	if err := a.machine.Advance(ctx, StageVerificationFailed); err != nil {
		return "", err
	}
	return "Verification failed. For security reasons, I cannot proceed with this call. " +
		"Please contact our customer service department for assistance. Goodbye.", nil
}

func (a *Agent) describeTransaction(ctx context.Context, args map[string]any) (string, error) {
	if err := a.policy.CanPerform("describe_transaction"); err != nil {
		return "", err
	}
	c := a.bank.FraudCases[a.current]
	if err := a.machine.Advance(ctx, StageTransactionDescribed); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"I'm calling about a suspicious transaction on your card ending in %s. "+
			"We noticed a transaction for %s at %s (%s) on %s from %s. "+
			"This was categorized as %s.",
		c.CardEnding, c.TransactionAmount, c.TransactionName, c.TransactionSource,
		c.TransactionTime, c.Location, c.TransactionCategory), nil
}

func (a *Agent) confirmTransaction(ctx context.Context, args map[string]any) (string, error) {
	if err := a.policy.CanPerform("confirm_transaction"); err != nil {
		return "", err
	}
	var in struct {
		Response string `json:"customer_response"`
	}
	if err := registry.DecodeArgs(args, &in); err != nil {
		return "", err
	}

	c := &a.bank.FraudCases[a.current]
	switch classify.Confirmation.Classify(in.Response) {
	case classify.LabelConfirm:
		c.Status = StatusConfirmedSafe
		c.Outcome = fmt.Sprintf("Customer confirmed transaction as legitimate on %s", a.clock().Format(time.RFC3339))
		if err := a.store.Overwrite(ctx, a.path, a.bank); err != nil {
			a.logger.Error("failed to persist outcome", "err", err)
		}
		if err := a.machine.Advance(ctx, StageResolved); err != nil {
			return "", err
		}
		return "Thank you for confirming. We'll mark this transaction as legitimate and no " +
			"further action is needed. Your card remains active. Thank you for your time and " +
			"helping us keep your account secure.", nil

	case classify.LabelDeny:
		c.Status = StatusConfirmedFraud
		c.Outcome = fmt.Sprintf("Customer denied transaction - marked as fraudulent on %s", a.clock().Format(time.RFC3339))
		if err := a.store.Overwrite(ctx, a.path, a.bank); err != nil {
			a.logger.Error("failed to persist outcome", "err", err)
		}
		if err := a.machine.Advance(ctx, StageResolved); err != nil {
			return "", err
		}
		return "Thank you for confirming this was not your transaction. We're immediately " +
			"blocking your card to prevent further unauthorized use and initiating a dispute " +
			"process. A new card will be mailed to you within 3-5 business days. Please check " +
			"your email for further instructions. Thank you for your prompt attention to this " +
			"security matter.", nil

	default:
		return "", domain.Ambiguousf(
			"I apologize, I didn't understand. Could you please confirm if you made this " +
				"transaction? Please answer yes or no.")
	}
}

// Stage returns the current workflow stage.
func (a *Agent) Stage() guard.Stage {
	return a.machine.Current()
}

// CurrentCase returns a copy of the loaded case, if any.
func (a *Agent) CurrentCase() (Case, bool) {
	if a.current < 0 {
		return Case{}, false
	}
	return a.bank.FraudCases[a.current], true
}

type snapshot struct {
	Stage     guard.Stage `json:"stage"`
	CaseIndex int         `json:"case_index"`
}

// Snapshot implements parley.Agent.
func (a *Agent) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{Stage: a.machine.Current(), CaseIndex: a.current})
}

// Restore implements parley.Agent.
func (a *Agent) Restore(data json.RawMessage) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode fraud snapshot: %w", err)
	}
	if s.CaseIndex >= len(a.bank.FraudCases) {
		return fmt.Errorf("snapshot case index %d out of range", s.CaseIndex)
	}
	a.machine.Restore(s.Stage)
	a.current = s.CaseIndex
	return nil
}

// Reset implements parley.Agent.
func (a *Agent) Reset(ctx context.Context) {
	a.machine.Reset(ctx)
	a.current = -1
}
