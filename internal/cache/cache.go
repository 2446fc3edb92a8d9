// Package cache provides the short-lived key/value storage backing
// single-use artifacts: authorization codes, c_nonces and token lookup
// indexes for the in-memory store.
//
// Backends:
//   - memory (in-process, development and tests)
//   - redis (shared, production)
package cache

import (
	"context"
	"time"
)

// Client is the cache contract. Values are opaque strings; callers
// serialize their own payloads.
type Client interface {
	// Get returns the value for key, ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. ttl == 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a live value.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error

	// Stats reports backend statistics.
	Stats(ctx context.Context) (Stats, error)
}

// Stats is a backend statistics snapshot.
type Stats struct {
	Driver     string
	Keys       int64
	UsedMemory string
	Hits       int64
	Misses     int64
}

// Config selects and parameterizes a backend.
type Config struct {
	Driver   string `yaml:"driver"` // "memory" | "redis"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a client for the configured driver. Unknown drivers fall
// back to memory.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
