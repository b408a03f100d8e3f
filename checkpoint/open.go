package checkpoint

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the SQLite database file.
	Path  string
	Redis RedisOptions
}

// Open constructs the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewInMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("checkpoint: unknown backend %q", opts.Backend)
	}
}
