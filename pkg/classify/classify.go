// Package classify implements the enumerable string-matching rules that stand
// in for intent understanding: keyword classification (confirm/deny),
// keyword-overlap FAQ matching, and case-insensitive substring lookup.
//
// All matchers are deterministic: rules are evaluated in declaration order
// and ties resolve to the first match in that order.
package classify

import (
	"strings"
	"unicode"
)

// Label is the outcome of a classification.
type Label string

// LabelUnclear is returned when no rule matches. Anything outside the fixed
// keyword sets is unclear, not a guess at sentiment.
const LabelUnclear Label = "unclear"

// Rule binds a label to the keywords that select it. A keyword containing a
// space matches as a phrase substring; a single word matches as a token.
type Rule struct {
	Label    Label
	Keywords []string
}

// RuleTable is an ordered list of rules. Earlier rules win.
type RuleTable []Rule

// Classify returns the label of the first rule with a matching keyword,
// or LabelUnclear when nothing matches.
func (t RuleTable) Classify(input string) Label {
	lowered := strings.ToLower(input)
	tokens := tokenSet(lowered)
	for _, rule := range t {
		for _, kw := range rule.Keywords {
			if strings.ContainsRune(kw, ' ') {
				if strings.Contains(lowered, kw) {
					return rule.Label
				}
			} else if tokens[kw] {
				return rule.Label
			}
		}
	}
	return LabelUnclear
}

// Confirmation labels shared by the agents that ask yes/no questions.
const (
	LabelConfirm Label = "confirm"
	LabelDeny    Label = "deny"
)

// Confirmation is the fixed confirm/deny keyword table used for transaction
// review and order confirmation prompts.
var Confirmation = RuleTable{
	{Label: LabelConfirm, Keywords: []string{"yes", "yeah", "i did", "confirm"}},
	{Label: LabelDeny, Keywords: []string{"no", "nope", "not me", "fraud"}},
}

// Tokenize splits text into lowercase word tokens, dropping punctuation.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func tokenSet(lowered string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(lowered) {
		set[tok] = true
	}
	return set
}

// Overlap scores how many query tokens appear in the candidate text.
func Overlap(query, candidate string) int {
	candidateTokens := tokenSet(strings.ToLower(candidate))
	score := 0
	for _, tok := range Tokenize(query) {
		if candidateTokens[tok] {
			score++
		}
	}
	return score
}

// BestOverlap returns the index of the candidate with the highest token
// overlap against the query, or -1 when no candidate shares a token.
// Equal scores resolve to the earliest candidate.
func BestOverlap(query string, candidates []string) int {
	best, bestScore := -1, 0
	for i, c := range candidates {
		if score := Overlap(query, c); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// MatchSubstring returns the index of the first candidate that contains the
// query as a case-insensitive substring, or whose name is contained in the
// query. Returns -1 when nothing matches.
func MatchSubstring(query string, candidates []string) int {
	q := strings.TrimSpace(strings.ToLower(query))
	if q == "" {
		return -1
	}
	for i, c := range candidates {
		name := strings.ToLower(c)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return i
		}
	}
	return -1
}
