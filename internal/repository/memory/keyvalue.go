// Package memory provides a process-local KeyValue, used for tests and for
// running without a durable backend.
package memory

import (
	"context"
	"sync"

	"github.com/RMahshie/dbmeter/internal/repository"
)

// KeyValue implements repository.KeyValue on a map.
type KeyValue struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKeyValue creates an empty in-memory store.
func NewKeyValue() *KeyValue {
	return &KeyValue{data: make(map[string]string)}
}

var _ repository.KeyValue = (*KeyValue)(nil)

func (kv *KeyValue) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.data[key]
	return v, ok, nil
}

func (kv *KeyValue) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return nil
}

func (kv *KeyValue) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}
