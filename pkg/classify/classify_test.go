package classify_test

import (
	"testing"

	"github.com/parley-ai/parley/pkg/classify"
)

func TestConfirmation(t *testing.T) {
	cases := []struct {
		input string
		want  classify.Label
	}{
		{"Yes, that was me", classify.LabelConfirm},
		{"yeah I did", classify.LabelConfirm},
		{"I can confirm that", classify.LabelConfirm},
		{"No, that wasn't mine", classify.LabelDeny},
		{"nope", classify.LabelDeny},
		{"that was not me, it's fraud", classify.LabelDeny},
		{"hmm let me think", classify.LabelUnclear},
		{"", classify.LabelUnclear},
		// "maybe yesterday" must not trip the "yes" keyword.
		{"maybe yesterday", classify.LabelUnclear},
	}
	for _, tc := range cases {
		if got := classify.Confirmation.Classify(tc.input); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestRuleTable_OrderWins(t *testing.T) {
	table := classify.RuleTable{
		{Label: "first", Keywords: []string{"apple"}},
		{Label: "second", Keywords: []string{"apple", "banana"}},
	}
	if got := table.Classify("apple banana"); got != "first" {
		t.Errorf("expected earlier rule to win, got %q", got)
	}
}

func TestBestOverlap(t *testing.T) {
	candidates := []string{
		"What are your opening hours?",
		"Do you offer delivery?",
		"Where are you located?",
	}

	if got := classify.BestOverlap("what time do you open, what are the hours", candidates); got != 0 {
		t.Errorf("expected candidate 0, got %d", got)
	}
	if got := classify.BestOverlap("zebra quantum", candidates); got != -1 {
		t.Errorf("expected -1 for no overlap, got %d", got)
	}

	// Equal scores resolve to the first candidate in declaration order.
	tied := []string{"red shirt", "red hat"}
	if got := classify.BestOverlap("red", tied); got != 0 {
		t.Errorf("expected tie to resolve to index 0, got %d", got)
	}
}

func TestMatchSubstring(t *testing.T) {
	items := []string{"Cappuccino", "Flat White", "Iced Latte"}

	if got := classify.MatchSubstring("latte", items); got != 2 {
		t.Errorf("expected index 2, got %d", got)
	}
	if got := classify.MatchSubstring("a large iced latte please", items); got != 2 {
		t.Errorf("expected item name inside query to match, got %d", got)
	}
	if got := classify.MatchSubstring("espresso", items); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
	if got := classify.MatchSubstring("   ", items); got != -1 {
		t.Errorf("expected -1 for blank query, got %d", got)
	}
}
