package fraud_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/agents/fraud"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

var testCase = fraud.Case{
	UserName:            "Priya Sharma",
	Status:              fraud.StatusPendingReview,
	SecurityQuestion:    "What is the name of your first pet?",
	SecurityAnswer:      "Biscuit",
	CardEnding:          "4417",
	TransactionAmount:   "$742.50",
	TransactionName:     "Luxe Electronics",
	TransactionSource:   "online",
	TransactionTime:     "2025-11-03T02:14:00Z",
	Location:            "Lisbon, Portugal",
	TransactionCategory: "electronics",
}

func newTestAgent(t *testing.T) (*fraud.Agent, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud_cases.json")
	bank := map[string]any{"fraud_cases": []fraud.Case{testCase}}
	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	agent, err := fraud.New(jsonfile.New(), path,
		fraud.WithClock(func() time.Time {
			return time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
		}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return agent, path
}

func dispatch(t *testing.T, a *fraud.Agent, tool string, args map[string]any) string {
	t.Helper()
	result, err := a.Registry().Dispatch(context.Background(), tool, args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool, err)
	}
	return result
}

func readBank(t *testing.T, path string) []fraud.Case {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var bank struct {
		FraudCases []fraud.Case `json:"fraud_cases"`
	}
	if err := json.Unmarshal(data, &bank); err != nil {
		t.Fatal(err)
	}
	return bank.FraudCases
}

func TestHappyPath_ConfirmedSafe(t *testing.T) {
	agent, path := newTestAgent(t)

	result := dispatch(t, agent, "load_fraud_case", map[string]any{"username": "priya sharma"})
	if !strings.Contains(result, "Priya Sharma") && !strings.Contains(result, "priya sharma") {
		t.Errorf("unexpected load result: %q", result)
	}

	q := dispatch(t, agent, "get_security_question", nil)
	if q != testCase.SecurityQuestion {
		t.Errorf("unexpected question: %q", q)
	}

	// Case-insensitive comparison.
	result = dispatch(t, agent, "verify_customer", map[string]any{"answer": "biscuit"})
	if !strings.Contains(result, "Verification successful") {
		t.Errorf("unexpected verify result: %q", result)
	}
	if agent.Stage() != fraud.StageVerified {
		t.Errorf("expected verified stage, got %q", agent.Stage())
	}

	result = dispatch(t, agent, "describe_transaction", nil)
	for _, fragment := range []string{"4417", "$742.50", "Luxe Electronics", "Lisbon"} {
		if !strings.Contains(result, fragment) {
			t.Errorf("description missing %q: %q", fragment, result)
		}
	}

	result = dispatch(t, agent, "confirm_transaction", map[string]any{"customer_response": "yes, that was me"})
	if !strings.Contains(result, "legitimate") {
		t.Errorf("unexpected confirm result: %q", result)
	}
	if agent.Stage() != fraud.StageResolved {
		t.Errorf("expected resolved stage, got %q", agent.Stage())
	}

	cases := readBank(t, path)
	if cases[0].Status != fraud.StatusConfirmedSafe {
		t.Errorf("expected persisted status %q, got %q", fraud.StatusConfirmedSafe, cases[0].Status)
	}
	if !strings.Contains(cases[0].Outcome, "2025-11-03T09:00:00Z") {
		t.Errorf("outcome should carry the clock timestamp: %q", cases[0].Outcome)
	}
}

func TestDenyMarksFraudulent(t *testing.T) {
	agent, path := newTestAgent(t)
	dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Priya Sharma"})
	dispatch(t, agent, "verify_customer", map[string]any{"answer": "Biscuit"})
	dispatch(t, agent, "describe_transaction", nil)

	result := dispatch(t, agent, "confirm_transaction", map[string]any{"customer_response": "no, not me"})
	if !strings.Contains(result, "blocking your card") {
		t.Errorf("unexpected deny result: %q", result)
	}
	if readBank(t, path)[0].Status != fraud.StatusConfirmedFraud {
		t.Error("expected persisted confirmed_fraud status")
	}
}

func TestUnclearResponseAsksAgain(t *testing.T) {
	agent, path := newTestAgent(t)
	dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Priya Sharma"})
	dispatch(t, agent, "verify_customer", map[string]any{"answer": "Biscuit"})
	dispatch(t, agent, "describe_transaction", nil)

	result := dispatch(t, agent, "confirm_transaction", map[string]any{"customer_response": "hmm what was the amount again"})
	if !strings.Contains(result, "yes or no") {
		t.Errorf("unclear response should re-ask: %q", result)
	}
	// No state change: still awaiting confirmation, nothing persisted.
	if agent.Stage() != fraud.StageTransactionDescribed {
		t.Errorf("unclear response must not advance the stage, got %q", agent.Stage())
	}
	if readBank(t, path)[0].Status != fraud.StatusPendingReview {
		t.Error("unclear response must not persist an outcome")
	}

	// The conversation can still resolve afterwards.
	dispatch(t, agent, "confirm_transaction", map[string]any{"customer_response": "yes"})
	if agent.Stage() != fraud.StageResolved {
		t.Errorf("expected resolved after re-ask, got %q", agent.Stage())
	}
}

func TestVerificationFailureIsTerminal(t *testing.T) {
	agent, path := newTestAgent(t)
	dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Priya Sharma"})

	result := dispatch(t, agent, "verify_customer", map[string]any{"answer": "Waffles"})
	if !strings.Contains(result, "Verification failed") {
		t.Errorf("unexpected failure result: %q", result)
	}
	if agent.Stage() != fraud.StageVerificationFailed {
		t.Errorf("expected terminal failure stage, got %q", agent.Stage())
	}

	cases := readBank(t, path)
	if cases[0].Status != fraud.StatusVerificationFailed {
		t.Errorf("expected persisted failure status, got %q", cases[0].Status)
	}

	// A second attempt must not re-attempt verification.
	result = dispatch(t, agent, "verify_customer", map[string]any{"answer": "Biscuit"})
	if !strings.Contains(result, "No fraud case loaded") {
		t.Errorf("expected refusal after terminal failure, got %q", result)
	}
	if agent.Stage() != fraud.StageVerificationFailed {
		t.Error("refusal must not move the machine")
	}
}

func TestDiscloseBeforeVerifyRefused(t *testing.T) {
	agent, _ := newTestAgent(t)
	dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Priya Sharma"})

	result := dispatch(t, agent, "describe_transaction", nil)
	if !strings.Contains(result, "verification required") {
		t.Errorf("expected verification refusal, got %q", result)
	}
	if agent.Stage() != fraud.StageCaseLoaded {
		t.Errorf("refusal must leave the stage untouched, got %q", agent.Stage())
	}
}

func TestLoadUnknownCustomer(t *testing.T) {
	agent, _ := newTestAgent(t)
	result := dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Nobody"})
	if !strings.Contains(result, "No pending fraud cases found for Nobody") {
		t.Errorf("unexpected result: %q", result)
	}
	if agent.Stage() != fraud.StageNotStarted {
		t.Error("failed load must not advance the stage")
	}
}

func TestMissingBankFileMaterialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fraud_cases.json")
	agent, err := fraud.New(jsonfile.New(), path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected bank file materialized: %v", err)
	}
	result := dispatch(t, agent, "load_fraud_case", map[string]any{"username": "anyone"})
	if !strings.Contains(result, "No pending fraud cases") {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestSnapshotRestore(t *testing.T) {
	agent, path := newTestAgent(t)
	dispatch(t, agent, "load_fraud_case", map[string]any{"username": "Priya Sharma"})
	dispatch(t, agent, "verify_customer", map[string]any{"answer": "Biscuit"})

	snap, err := agent.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	restored, err := fraud.New(jsonfile.New(), path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Stage() != fraud.StageVerified {
		t.Errorf("expected restored stage verified, got %q", restored.Stage())
	}
	result := dispatch(t, restored, "describe_transaction", nil)
	if !strings.Contains(result, "4417") {
		t.Errorf("restored agent should describe the loaded case: %q", result)
	}
}
