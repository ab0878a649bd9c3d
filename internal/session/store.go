// Package session – per-(patient, topic) interaction state
//
// This package holds the two session-scoped stores used while serving
// memories to a patient:
//
//   - Tracker remembers which content ids were already shown in the current
//     lap, so a memory is never repeated until everything has been seen.
//   - Ledger keeps the ordered conversation turns, used to build prompt
//     history and the "do not repeat" list for generated narration.
//
// Design notes:
//   - Sessions are addressed by Key, a struct composite of patient id and
//     topic. Nothing is joined into a delimiter string.
//   - Both stores share one sharded backing store (store[V]). Every per-key
//     operation runs under the shard lock, and no lock is held while
//     callers talk to external services.
//   - A session with no write for the idle TTL (24h by default) is logically
//     gone. The key being read is checked exactly; other idle sessions are
//     removed by an opportunistic sweep on reads (throttled by
//     WithSweepInterval) or by an explicit Sweep from a janitor.
//   - The stores are explicitly constructed values. Nothing here is global.
package session

import (
	"sync/atomic"
	"time"

	"github.com/tbourn/go-remind-backend/internal/shard"
)

// Key identifies one session. Both fields are case-sensitive and an empty
// Topic is a valid topic of its own.
type Key struct {
	PatientID string `json:"patient_id"`
	Topic     string `json:"topic"`
}

// NewKey is shorthand for Key{PatientID: patientID, Topic: topic}.
func NewKey(patientID, topic string) Key {
	return Key{PatientID: patientID, Topic: topic}
}

func hashKey(k Key) uint64 { return shard.Strings(k.PatientID, k.Topic) }

const (
	// DefaultIdleTTL is how long a session survives without writes.
	DefaultIdleTTL = 24 * time.Hour

	// DefaultSweepInterval throttles the opportunistic sweep run on reads.
	DefaultSweepInterval = time.Minute
)

// Option configures a Tracker or a Ledger.
type Option func(*options)

type options struct {
	now        func() time.Time
	idleTTL    time.Duration
	sweepEvery time.Duration
	shards     int
	agentLabel string
}

func defaultOptions() options {
	return options{
		now:        time.Now,
		idleTTL:    DefaultIdleTTL,
		sweepEvery: DefaultSweepInterval,
		shards:     shard.DefaultShards,
		agentLabel: DefaultAgentLabel,
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIdleTTL sets how long a session lives without writes.
// A non-positive value disables idle expiry.
func WithIdleTTL(d time.Duration) Option {
	return func(o *options) { o.idleTTL = d }
}

// WithSweepInterval sets the minimum gap between sweeps triggered by reads.
// Zero sweeps on every read.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.sweepEvery = d
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

// WithAgentLabel sets the label Ledger.Formatted prints for agent turns.
// Trackers ignore it.
func WithAgentLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.agentLabel = label
		}
	}
}

type slot[V any] struct {
	val       V
	lastWrite time.Time
}

// store is the sharded, idle-expiring map behind Tracker and Ledger.
type store[V any] struct {
	m          *shard.Map[Key, *slot[V]]
	now        func() time.Time
	idleTTL    time.Duration
	sweepEvery time.Duration
	lastSweep  atomic.Int64
}

func newStore[V any](o options) *store[V] {
	return &store[V]{
		m:          shard.New[Key, *slot[V]](o.shards, hashKey),
		now:        o.now,
		idleTTL:    o.idleTTL,
		sweepEvery: o.sweepEvery,
	}
}

func (s *store[V]) idle(sl *slot[V], now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(sl.lastWrite) > s.idleTTL
}

// view calls fn with the live value for key. fn is not called when the key
// is absent or idle; an idle key is deleted. It reports whether fn ran.
func (s *store[V]) view(key Key, fn func(v V, lastWrite time.Time)) bool {
	s.maybeSweep()
	now := s.now()
	found := false
	s.m.Do(key, func(items map[Key]*slot[V]) {
		sl, ok := items[key]
		if !ok {
			return
		}
		if s.idle(sl, now) {
			delete(items, key)
			return
		}
		fn(sl.val, sl.lastWrite)
		found = true
	})
	return found
}

// update replaces the value for key with fn(current) and stamps the write
// time. Absent or idle keys start from init().
func (s *store[V]) update(key Key, init func() V, fn func(V) V) {
	now := s.now()
	s.m.Do(key, func(items map[Key]*slot[V]) {
		sl, ok := items[key]
		if !ok || s.idle(sl, now) {
			sl = &slot[V]{val: init()}
			items[key] = sl
		}
		sl.val = fn(sl.val)
		sl.lastWrite = now
	})
}

func (s *store[V]) remove(key Key) {
	s.m.Do(key, func(items map[Key]*slot[V]) { delete(items, key) })
}

func (s *store[V]) removePatient(patientID string) int {
	n := 0
	s.m.Range(func(items map[Key]*slot[V]) {
		for k := range items {
			if k.PatientID == patientID {
				delete(items, k)
				n++
			}
		}
	})
	return n
}

// sweep deletes idle sessions. The idle decision reads lastWrite under the
// same shard lock as the delete, so a concurrent write always survives.
func (s *store[V]) sweep(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	n := 0
	s.m.Range(func(items map[Key]*slot[V]) {
		for k, sl := range items {
			if s.idle(sl, now) {
				delete(items, k)
				n++
			}
		}
	})
	return n
}

func (s *store[V]) maybeSweep() {
	if s.idleTTL <= 0 {
		return
	}
	now := s.now()
	last := s.lastSweep.Load()
	if s.sweepEvery > 0 && last != 0 && now.UnixNano()-last < int64(s.sweepEvery) {
		return
	}
	if !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	s.sweep(now)
}

func (s *store[V]) len() int { return s.m.Len() }
