package repository

import (
	"context"
)

// KeyValue is the durable key/value capability the measurement store and
// settings service persist through. Values are opaque strings (JSON documents).
type KeyValue interface {
	// Get returns the stored value; found is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
