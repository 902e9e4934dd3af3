// Package decaymap implements a sharded in-memory map where every entry
// carries an expiry time. Expired entries act as if they were never inserted
// and get reaped either lazily on read or eagerly via Cleanup.
package decaymap

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shardCount trades lock contention for memory. Must be a power of two.
const shardCount = 16

func zilch[T any]() T {
	var zero T
	return zero
}

type entry[V any] struct {
	value  V
	expiry time.Time
}

type shard[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]
}

// Impl is a string-keyed expiring map. The zero value is not usable, call New.
type Impl[V any] struct {
	shards [shardCount]*shard[V]
}

func New[V any]() *Impl[V] {
	result := &Impl[V]{}
	for i := range result.shards {
		result.shards[i] = &shard[V]{data: map[string]entry[V]{}}
	}
	return result
}

func (m *Impl[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

// Get returns the live value for key. An expired entry is deleted on the spot
// and reported as missing.
func (m *Impl[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)

	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return zilch[V](), false
	}

	if time.Now().After(e.expiry) {
		s.mu.Lock()
		// Recheck under the write lock, a Set may have raced us.
		if e, ok := s.data[key]; ok && time.Now().After(e.expiry) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return zilch[V](), false
	}

	return e.value, true
}

// Set inserts or overwrites key with a value that decays after ttl.
func (m *Impl[V]) Set(key string, value V, ttl time.Duration) {
	s := m.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry[V]{
		value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Delete removes key and reports whether it was present (expired or not).
func (m *Impl[V]) Delete(key string) bool {
	s := m.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return ok
}

// Cleanup drops every expired entry. Meant to be driven by a ticker so the
// map does not grow unboundedly with keys that are never read again.
func (m *Impl[V]) Cleanup() {
	now := time.Now()

	for _, s := range m.shards {
		s.mu.Lock()
		for key, e := range s.data {
			if now.After(e.expiry) {
				delete(s.data, key)
			}
		}
		s.mu.Unlock()
	}
}

// Len counts every entry still held, including expired ones not yet reaped.
func (m *Impl[V]) Len() int {
	var n int
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.data)
		s.mu.RUnlock()
	}
	return n
}
