package storage

import "context"

// KV is the low-level durable key/value capability every backend flavor is
// built on. Implementations: in-memory, SQLite, Postgres, Redis.
//
// Get returns (nil, nil) when the key is absent. Values are opaque bytes;
// the Backend layer decides how entities are encoded (plain JSON or an
// encrypted envelope).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
