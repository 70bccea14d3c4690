// Package shardtable provides a sharded concurrent map for tracking
// live resources by id.
//
// Unlike a cache, the table never evicts: an entry stays until it is
// explicitly deleted. Sharding keeps lock contention low when many
// producer goroutines register and release handles concurrently.
package shardtable

import (
	"hash/fnv"
	"sync"
)

const (
	// shardCount is the number of shards. Must be a power of 2 for fast
	// modulo via bitwise AND.
	shardCount = 16

	// shardMask is used for fast shard selection (shardCount - 1).
	shardMask = shardCount - 1
)

// Hasher is a function that computes a hash for a key.
// Used by Table for shard selection.
type Hasher[K any] func(K) uint64

// Uint64Hasher returns the key itself as the hash (identity hash).
// Monotonically assigned ids spread evenly across shards this way.
func Uint64Hasher(u uint64) uint64 {
	return u
}

// UintptrHasher returns the key as the hash (identity hash).
func UintptrHasher(p uintptr) uint64 {
	return uint64(p)
}

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Table is a thread-safe sharded map from keys to live values.
type Table[K comparable, V any] struct {
	shards [shardCount]*tableShard[K, V]
	hasher Hasher[K]
}

// tableShard is a single shard of the table.
// Each shard has its own mutex for reduced contention.
type tableShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty table using the given hasher for shard selection.
func New[K comparable, V any](hasher Hasher[K]) *Table[K, V] {
	t := &Table[K, V]{hasher: hasher}
	for i := range t.shards {
		t.shards[i] = &tableShard[K, V]{
			entries: make(map[K]V),
		}
	}
	return t
}

// getShard returns the shard for a given key.
// Uses bitwise AND for fast modulo (only works with power-of-2 shard count).
func (t *Table[K, V]) getShard(key K) *tableShard[K, V] {
	hash := t.hasher(key)
	return t.shards[hash&shardMask]
}

// Store inserts or replaces the value for a key.
func (t *Table[K, V]) Store(key K, value V) {
	shard := t.getShard(key)

	shard.mu.Lock()
	shard.entries[key] = value
	shard.mu.Unlock()
}

// Load retrieves the value for a key.
// Returns (value, true) if present, (zero, false) otherwise.
func (t *Table[K, V]) Load(key K) (V, bool) {
	shard := t.getShard(key)

	shard.mu.RLock()
	value, ok := shard.entries[key]
	shard.mu.RUnlock()

	return value, ok
}

// Delete removes an entry. Returns true if the entry was present.
func (t *Table[K, V]) Delete(key K) bool {
	shard := t.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.entries[key]; !ok {
		return false
	}
	delete(shard.entries, key)
	return true
}

// LoadAndDelete removes an entry and returns its value.
// The boolean reports whether the entry was present.
func (t *Table[K, V]) LoadAndDelete(key K) (V, bool) {
	shard := t.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	value, ok := shard.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(shard.entries, key)
	return value, true
}

// Range calls fn for each entry until fn returns false.
//
// Range holds one shard lock at a time; entries stored or deleted
// concurrently may or may not be visited.
func (t *Table[K, V]) Range(fn func(key K, value V) bool) {
	for _, shard := range t.shards {
		shard.mu.RLock()
		for k, v := range shard.entries {
			if !fn(k, v) {
				shard.mu.RUnlock()
				return
			}
		}
		shard.mu.RUnlock()
	}
}

// Keys returns a snapshot of all keys in the table.
func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, t.Len())
	t.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Clear removes all entries.
func (t *Table[K, V]) Clear() {
	for _, shard := range t.shards {
		shard.mu.Lock()
		shard.entries = make(map[K]V)
		shard.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (t *Table[K, V]) Len() int {
	total := 0
	for _, shard := range t.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

// ShardLen returns the number of entries in each shard.
// Useful for debugging load distribution.
func (t *Table[K, V]) ShardLen() [shardCount]int {
	var lens [shardCount]int
	for i, shard := range t.shards {
		shard.mu.RLock()
		lens[i] = len(shard.entries)
		shard.mu.RUnlock()
	}
	return lens
}
