package interfaces

import "context"

// KeyValueClient is a backend-neutral view of a key-value store. Values and
// durations are expressed as plain strings and whole seconds.
type KeyValueClient interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key without expiry.
	Set(ctx context.Context, key, value string) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Expire sets a TTL in seconds; returns 1 if the key exists, else 0.
	Expire(ctx context.Context, key string, seconds int64) (int64, error)

	// TTL returns the remaining TTL in seconds, -1 for keys without expiry
	// and -2 for missing keys.
	TTL(ctx context.Context, key string) (int64, error)

	// Scan iterates the keyspace. A returned cursor of 0 ends the iteration.
	// An empty match means all keys; a zero count uses the backend default.
	Scan(ctx context.Context, cursor uint64, match string, count int64) (uint64, []string, error)

	LLen(ctx context.Context, key string) (int64, error)
	LPush(ctx context.Context, key, value string) (int64, error)
	RPush(ctx context.Context, key, value string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Native exposes the backend handle.
	Native() Native

	// Close releases the connection.
	Close() error
}
