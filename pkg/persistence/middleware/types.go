// Package middleware wraps a SnapshotStore with cross-cutting persistence
// behavior: encryption at rest and redaction of sensitive fields. Middlewares
// compose; the outermost wrapper sees the plaintext snapshot first.
package middleware

import "github.com/parley-ai/parley/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies middlewares right to left, so the first listed wraps the rest.
func Chain(store ports.SnapshotStore, middlewares ...Middleware) ports.SnapshotStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
