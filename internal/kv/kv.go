// Package kv abstracts the key-value backend the spin engine persists through.
// Two implementations exist: a Redis-backed store shared across processes and an
// in-memory store used when no Redis URL is configured (and in tests).
package kv

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the backend could not be reached. Callers surface it
// as a generic internal failure; the full cause is logged, never leaked.
var ErrUnavailable = errors.New("kv: backend unavailable")

// Store is the contract every backend satisfies.
//
// Incr must be a true atomic primitive of the backend: it drives the shared
// rotation counter and must never hand the same value to two concurrent
// callers. SetNX is the claim primitive used to make "first of the day"
// decisions safe across processes. Multi-key sequences are NOT atomic.
type Store interface {
	// GetJSON unmarshals the record at key into dest. The bool reports
	// whether the key existed.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	// SetJSON marshals v and writes it at key, replacing any prior value.
	SetJSON(ctx context.Context, key string, v interface{}) error
	// GetString reads a scalar value. The bool reports existence.
	GetString(ctx context.Context, key string) (string, bool, error)
	// SetString writes a scalar value.
	SetString(ctx context.Context, key, val string) error
	// Incr atomically increments the integer at key and returns the new
	// value. A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)
	// SetNX writes val at key only if the key does not exist. Returns true
	// if this call claimed the key.
	SetNX(ctx context.Context, key, val string) (bool, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
