// Package shard provides a partitioned, mutex-guarded map used by the
// in-memory stores (cache, shown-content tracker, conversation ledger).
//
// Keys are spread across a fixed number of buckets by a caller-supplied hash.
// Each bucket owns its own sync.Mutex, so operations on keys that land in
// different buckets never contend, while every operation on a single key is
// atomic with respect to other callers of the same key.
//
// The callbacks passed to Do and Range run with the bucket lock held. They must
// be short, in-memory only, and must not call back into the same Map.
package shard

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is used when New is given a non-positive shard count.
const DefaultShards = 32

type bucket[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// Map is a sharded map safe for concurrent use.
type Map[K comparable, V any] struct {
	buckets []*bucket[K, V]
	hash    func(K) uint64
}

// New creates a Map with n buckets using hash to place keys.
func New[K comparable, V any](n int, hash func(K) uint64) *Map[K, V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Map[K, V]{
		buckets: make([]*bucket[K, V], n),
		hash:    hash,
	}
	for i := range m.buckets {
		m.buckets[i] = &bucket[K, V]{items: make(map[K]V)}
	}
	return m
}

// String hashes a string key with xxhash.
func String(s string) uint64 { return xxhash.Sum64String(s) }

// Strings hashes a sequence of strings. A zero byte separates parts, so
// ("ab","c") and ("a","bc") land on independent hash values.
func Strings(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func (m *Map[K, V]) bucketFor(key K) *bucket[K, V] {
	return m.buckets[m.hash(key)%uint64(len(m.buckets))]
}

// Do runs fn with exclusive access to the bucket that owns key.
// fn may read, insert, or delete any entry of the passed map, but should
// only touch key (other keys in the bucket belong to unrelated callers).
func (m *Map[K, V]) Do(key K, fn func(items map[K]V)) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.items)
}

// Range visits each bucket in turn, holding that bucket's lock while fn runs.
// fn may delete entries from the map it receives.
func (m *Map[K, V]) Range(fn func(items map[K]V)) {
	for _, b := range m.buckets {
		b.mu.Lock()
		fn(b.items)
		b.mu.Unlock()
	}
}

// Len returns the total number of entries. The count is not a snapshot:
// buckets are locked one at a time.
func (m *Map[K, V]) Len() int {
	n := 0
	m.Range(func(items map[K]V) { n += len(items) })
	return n
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.Range(func(items map[K]V) { clear(items) })
}
