package store

import "context"

// Backend is a durable key/value store scoped to one device.
// Values are opaque bytes; every Set is a single atomic write.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ChangeFeed is implemented by backends that other processes can write to.
// Changes returns the keys written by someone else since the previous call.
type ChangeFeed interface {
	Changes(ctx context.Context) ([]string, error)
	// Path is the database file the feed observes.
	Path() string
}
