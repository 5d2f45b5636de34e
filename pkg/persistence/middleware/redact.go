package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/parley-ai/parley/pkg/ports"
)

type redactMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewRedaction creates a middleware that masks the values of snapshot fields
// whose keys match any of the patterns. Conversation snapshots can carry
// caller details (emails, card digits, security answers); redaction keeps
// them out of the persisted copy.
func NewRedaction(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, sessionID string, snapshot json.RawMessage) error {
	var doc map[string]any
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		// Non-object snapshots pass through untouched.
		return m.next.Save(ctx, sessionID, snapshot)
	}
	maskMap(doc, m.patterns)
	masked, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal redacted snapshot: %w", err)
	}
	return m.next.Save(ctx, sessionID, masked)
}

func (m *redactMiddleware) Load(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
