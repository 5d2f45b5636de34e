package study_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/agents/study"
	"github.com/parley-ai/parley/pkg/store/jsonfile"
)

var testConcepts = []study.Concept{
	{
		ID:             "goroutines",
		Title:          "Goroutines",
		Summary:        "Lightweight threads managed by the runtime.",
		SampleQuestion: "What keyword starts a goroutine?",
	},
	{
		ID:             "channels",
		Title:          "Channels and Select",
		Summary:        "Typed conduits for communication between goroutines.",
		SampleQuestion: "What happens when you send on an unbuffered channel with no receiver?",
	},
}

func newTestAgent(t *testing.T) (*study.Agent, string) {
	t.Helper()
	dir := t.TempDir()
	conceptsPath := filepath.Join(dir, "concepts.json")
	data, err := json.Marshal(testConcepts)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(conceptsPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	progressLog := filepath.Join(dir, "progress.json")
	agent, err := study.New(jsonfile.New(), conceptsPath, progressLog,
		study.WithClock(func() time.Time {
			return time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
		}),
		study.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return agent, progressLog
}

func dispatch(t *testing.T, a *study.Agent, tool string, args map[string]any) string {
	t.Helper()
	result, err := a.Registry().Dispatch(context.Background(), tool, args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool, err)
	}
	return result
}

func TestLookupConcept_SubstringMatch(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := dispatch(t, agent, "lookup_concept", map[string]any{"concept": "goroutine"})
	if !strings.Contains(result, "Lightweight threads") {
		t.Errorf("expected the summary, got %q", result)
	}
}

func TestLookupConcept_KeywordOverlapFallback(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := dispatch(t, agent, "lookup_concept", map[string]any{"concept": "tell me about select"})
	if !strings.Contains(result, "Typed conduits") {
		t.Errorf("expected the channels summary, got %q", result)
	}
}

func TestLookupConcept_Unknown(t *testing.T) {
	agent, _ := newTestAgent(t)
	result := dispatch(t, agent, "lookup_concept", map[string]any{"concept": "monads"})
	if !strings.Contains(result, "monads") {
		t.Errorf("refusal should name the topic: %q", result)
	}
}

func TestQuizMe_NamedConcept(t *testing.T) {
	agent, _ := newTestAgent(t)
	result := dispatch(t, agent, "quiz_me", map[string]any{"concept": "channels"})
	if !strings.Contains(result, "unbuffered channel") {
		t.Errorf("expected the sample question, got %q", result)
	}
}

func TestQuizMe_RandomIsPinnedBySource(t *testing.T) {
	agent, _ := newTestAgent(t)
	want := testConcepts[rand.New(rand.NewSource(1)).Intn(len(testConcepts))]

	result := dispatch(t, agent, "quiz_me", nil)
	if !strings.Contains(result, want.SampleQuestion) {
		t.Errorf("expected question for %s, got %q", want.ID, result)
	}
}

func TestRecordProgress_DefaultsToLastQuizzed(t *testing.T) {
	agent, progressLog := newTestAgent(t)
	dispatch(t, agent, "quiz_me", map[string]any{"concept": "goroutines"})
	dispatch(t, agent, "record_progress", map[string]any{"outcome": "correct"})

	var records []study.ProgressRecord
	if err := jsonfile.New().ReadLog(progressLog, &records); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	if r.ConceptID != "goroutines" || r.Outcome != "correct" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.CreatedAt != "2025-11-03T09:00:00Z" {
		t.Errorf("unexpected created_at %q", r.CreatedAt)
	}
}

func TestRecordProgress_RefusedWithoutConcept(t *testing.T) {
	agent, progressLog := newTestAgent(t)

	result := dispatch(t, agent, "record_progress", map[string]any{"outcome": "reviewed"})
	if !strings.Contains(result, "Which concept") {
		t.Errorf("unexpected result: %q", result)
	}
	if _, err := os.Stat(progressLog); !os.IsNotExist(err) {
		t.Error("refused record must not create the log file")
	}
}

func TestMissingConceptsFileMaterialized(t *testing.T) {
	dir := t.TempDir()
	conceptsPath := filepath.Join(dir, "concepts.json")

	agent, err := study.New(jsonfile.New(), conceptsPath, filepath.Join(dir, "progress.json"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(agent.Concepts()) != 0 {
		t.Errorf("expected empty concept list, got %v", agent.Concepts())
	}
	if _, err := os.Stat(conceptsPath); err != nil {
		t.Errorf("missing concept file should be written with the default shape: %v", err)
	}
}
