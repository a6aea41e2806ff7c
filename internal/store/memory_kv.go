package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryKVStore is an in-process [KeyValueStore]. Values are copied on the
// way in and out, so callers never share buffers with it.
type memoryKVStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryKVStore returns an empty in-memory [KeyValueStore].
func NewMemoryKVStore() KeyValueStore {
	return &memoryKVStore{buckets: make(map[string]map[string][]byte)}
}

func (m *memoryKVStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrKeyNotFound, bucket, key)
	}
	return append([]byte(nil), value...), nil
}

func (m *memoryKVStore) Set(ctx context.Context, bucket, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		m.buckets[bucket] = b
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKVStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[bucket], key)
	return nil
}

func (m *memoryKVStore) Scan(ctx context.Context, bucket string) ([]KV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b := m.buckets[bucket]
	result := make([]KV, 0, len(b))
	for k, v := range b {
		result = append(result, KV{Key: k, Value: append([]byte(nil), v...)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *memoryKVStore) Clear(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, bucket)
	return nil
}
