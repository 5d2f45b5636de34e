package ports

import (
	"context"
	"encoding/json"
)

// SnapshotStore persists per-session conversation snapshots: the serialized
// aggregate of one conversation, keyed by session ID. This enables
// stop-and-resume conversations across process restarts.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snapshot json.RawMessage) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (json.RawMessage, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored session IDs.
	List(ctx context.Context) ([]string, error)
}
