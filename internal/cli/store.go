package cli

import (
	"fmt"
	"log/slog"

	"github.com/parley-ai/parley/pkg/adapters/redis"
	"github.com/parley-ai/parley/pkg/adapters/sessionfile"
	"github.com/parley-ai/parley/pkg/adapters/sessionmem"
	"github.com/parley-ai/parley/pkg/persistence/middleware"
	"github.com/parley-ai/parley/pkg/ports"
)

// NewSnapshotStore builds the configured snapshot backend, wrapped with the
// configured persistence middleware.
func NewSnapshotStore(cfg SessionConfig, logger *slog.Logger) (ports.SnapshotStore, error) {
	var store ports.SnapshotStore
	switch cfg.Backend {
	case "", "file":
		store = sessionfile.New(cfg.Dir)
	case "redis":
		addr := cfg.Redis.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		store = redis.New(addr, cfg.Redis.Password, cfg.Redis.DB)
	case "memory":
		store = sessionmem.New()
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}

	var middlewares []middleware.Middleware
	if len(cfg.RedactPatterns) > 0 {
		middlewares = append(middlewares, middleware.NewRedaction(cfg.RedactPatterns))
	}
	key, err := cfg.DecodeEncryptionKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		middlewares = append(middlewares, middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: key}))
		logger.Info("snapshot encryption enabled")
	}
	return middleware.Chain(store, middlewares...), nil
}
