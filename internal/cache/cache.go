// Package cache provides a generic, process-local, time-to-live key/value
// store used to memoize expensive lookups (memory searches, LLM responses).
//
// Properties:
//
//   - Keys are derived from ordered parts (Key): the parts are stringified,
//     joined with a fixed separator and hashed with SHA-256, so ("a","b") and
//     ("b","a") never collide and every key has the same length.
//   - An entry is fresh while now-createdAt <= ttl. Stale entries behave
//     exactly like misses and are removed lazily on Get, or in bulk by Sweep.
//   - Set always overwrites and restarts the entry's lifetime.
//   - Storage is sharded (internal/shard); there is no global lock.
//   - An optional entry bound (WithMaxEntries) evicts the oldest entry of the
//     receiving shard when that shard is full.
//   - Invalidation also covers computations already running in Memoize:
//     a value computed before an Invalidate or InvalidateAll is returned to
//     its callers but never stored, and later callers start a new flight.
//
// The package does no logging; callers observe hits and misses through
// WithObserver.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-remind-backend/internal/shard"
)

// keySep joins key parts before hashing. The unit separator does not occur
// in patient ids, topics, or prompts in practice.
const keySep = "\x1f"

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Stats summarizes the cache contents at the time of the call.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now        func() time.Time
	maxEntries int
	shards     int
	observe    func(hit bool)
}

// WithClock replaces time.Now (tests use it to simulate elapsed time).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxEntries bounds the number of entries. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxEntries = n
		}
	}
}

// WithShards sets the number of lock partitions.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithObserver registers a callback invoked on every Get with the outcome.
func WithObserver(fn func(hit bool)) Option {
	return func(o *options) { o.observe = fn }
}

// Cache is a TTL cache safe for concurrent use.
type Cache[V any] struct {
	ttl      time.Duration
	now      func() time.Time
	perShard int
	observe  func(hit bool)

	items *shard.Map[string, entry[V]]
	group singleflight.Group
	// gen advances on every invalidation.
	gen atomic.Uint64
}

// New returns a cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now, shards: shard.DefaultShards}
	for _, fn := range opts {
		fn(&o)
	}
	perShard := 0
	if o.maxEntries > 0 {
		perShard = (o.maxEntries + o.shards - 1) / o.shards
	}
	return &Cache[V]{
		ttl:      ttl,
		now:      o.now,
		perShard: perShard,
		observe:  o.observe,
		items:    shard.New[string, entry[V]](o.shards, shard.String),
	}
}

// Key derives the storage key for the ordered parts.
func Key(parts ...any) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = fmt.Sprint(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(ss, keySep)))
	return hex.EncodeToString(sum[:])
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.createdAt) > c.ttl
}

// Get returns the fresh value stored under parts. A stale entry is deleted
// and reported as a miss.
func (c *Cache[V]) Get(parts ...any) (V, bool) {
	return c.get(Key(parts...))
}

func (c *Cache[V]) get(key string) (V, bool) {
	var (
		out V
		hit bool
	)
	now := c.now()
	c.items.Do(key, func(items map[string]entry[V]) {
		e, ok := items[key]
		if !ok {
			return
		}
		if c.expired(e, now) {
			delete(items, key)
			return
		}
		out, hit = e.value, true
	})
	if c.observe != nil {
		c.observe(hit)
	}
	return out, hit
}

// Set stores v under parts, replacing any previous value.
func (c *Cache[V]) Set(v V, parts ...any) {
	c.set(Key(parts...), v)
}

func (c *Cache[V]) set(key string, v V) {
	c.items.Do(key, func(items map[string]entry[V]) { c.store(items, key, v) })
}

// setAt stores v only if no invalidation happened since gen was read. The
// check runs under the shard lock, and invalidations advance gen before
// taking it, so a stale value is either skipped or removed right after.
func (c *Cache[V]) setAt(key string, v V, gen uint64) bool {
	stored := false
	c.items.Do(key, func(items map[string]entry[V]) {
		if c.gen.Load() != gen {
			return
		}
		c.store(items, key, v)
		stored = true
	})
	return stored
}

func (c *Cache[V]) store(items map[string]entry[V], key string, v V) {
	if _, exists := items[key]; !exists && c.perShard > 0 && len(items) >= c.perShard {
		evictOldest(items)
	}
	items[key] = entry[V]{value: v, createdAt: c.now()}
}

func evictOldest[V any](items map[string]entry[V]) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range items {
		if !found || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.createdAt, true
		}
	}
	if found {
		delete(items, oldestKey)
	}
}

// Invalidate removes the entry stored under parts, if any. A Memoize
// computation running for any key when Invalidate is called will not be
// stored.
func (c *Cache[V]) Invalidate(parts ...any) {
	key := Key(parts...)
	c.gen.Add(1)
	c.items.Do(key, func(items map[string]entry[V]) { delete(items, key) })
}

// InvalidateAll empties the cache and discards every running Memoize
// computation.
func (c *Cache[V]) InvalidateAll() {
	c.gen.Add(1)
	c.items.Clear()
}

// Stats counts total, fresh and stale entries without evicting anything.
func (c *Cache[V]) Stats() Stats {
	now := c.now()
	var st Stats
	c.items.Range(func(items map[string]entry[V]) {
		for _, e := range items {
			st.Total++
			if c.expired(e, now) {
				st.Expired++
			}
		}
	})
	st.Active = st.Total - st.Expired
	return st
}

// Sweep deletes every stale entry and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	removed := 0
	c.items.Range(func(items map[string]entry[V]) {
		for k, e := range items {
			if c.expired(e, now) {
				delete(items, k)
				removed++
			}
		}
	})
	return removed
}

// Memoize returns the cached value for parts or computes it with fn.
// Concurrent callers for the same key share one computation; fn runs
// without any cache lock held. Errors are returned and never cached.
// The boolean reports whether the value came from the cache.
func (c *Cache[V]) Memoize(ctx context.Context, fn func(ctx context.Context) (V, error), parts ...any) (V, bool, error) {
	key := Key(parts...)
	if v, ok := c.get(key); ok {
		return v, true, nil
	}
	// Flights are per generation: callers arriving after an invalidation
	// never join a computation started before it.
	gen := c.gen.Load()
	res, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		// Another flight may have filled the key while we waited.
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		c.setAt(key, v, gen)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, _ := res.(V)
	return v, false, nil
}

// peek is get without observer accounting.
func (c *Cache[V]) peek(key string) (V, bool) {
	var (
		out V
		hit bool
	)
	now := c.now()
	c.items.Do(key, func(items map[string]entry[V]) {
		if e, ok := items[key]; ok && !c.expired(e, now) {
			out, hit = e.value, true
		}
	})
	return out, hit
}
