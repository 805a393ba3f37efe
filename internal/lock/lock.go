// Package lock serializes merges that touch the same group.
package lock

import (
	"context"
	"fmt"
	"hash/fnv"
)

// Locker grants exclusive access per key. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// numShards bounds memory use; unrelated keys may share a shard and wait on
// each other, which only costs latency.
const numShards = 64

// Memory is an in-process Locker backed by sharded semaphores.
type Memory struct {
	shards [numShards]chan struct{}
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i] = make(chan struct{}, 1)
	}
	return m
}

// Lock blocks until the key's shard is free or ctx is done.
func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	shard := m.shards[shardFor(key)]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

// shardFor uses FNV-1a for an even spread of group IDs.
func shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % numShards
}
