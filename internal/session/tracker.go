package session

import (
	"slices"
	"time"
)

// ShownStats describes one session's shown set.
type ShownStats struct {
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated"`
	IDs         []string   `json:"ids"`
}

// Tracker records the content ids already shown per session.
// It is safe for concurrent use.
type Tracker struct {
	st *store[map[string]struct{}]
}

// NewTracker returns an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Tracker{st: newStore[map[string]struct{}](o)}
}

// Shown returns a copy of the ids shown for key. Unknown sessions yield an
// empty, non-nil set.
func (t *Tracker) Shown(key Key) map[string]struct{} {
	out := make(map[string]struct{})
	t.st.view(key, func(ids map[string]struct{}, _ time.Time) {
		for id := range ids {
			out[id] = struct{}{}
		}
	})
	return out
}

// MarkShown adds ids to the session's set. Adding an id twice is a no-op,
// and concurrent calls on the same key merge.
func (t *Tracker) MarkShown(key Key, ids ...string) {
	if len(ids) == 0 {
		return
	}
	t.st.update(key, newIDSet, func(set map[string]struct{}) map[string]struct{} {
		for _, id := range ids {
			set[id] = struct{}{}
		}
		return set
	})
}

func newIDSet() map[string]struct{} { return make(map[string]struct{}) }

// Reset forgets everything shown for key.
func (t *Tracker) Reset(key Key) { t.st.remove(key) }

// ResetPatient forgets every topic of patientID and returns how many
// sessions were dropped.
func (t *Tracker) ResetPatient(patientID string) int {
	return t.st.removePatient(patientID)
}

// Stats reports the size, last write and sorted ids of a session.
func (t *Tracker) Stats(key Key) ShownStats {
	st := ShownStats{IDs: []string{}}
	t.st.view(key, func(ids map[string]struct{}, lastWrite time.Time) {
		st.Count = len(ids)
		lw := lastWrite
		st.LastUpdated = &lw
		for id := range ids {
			st.IDs = append(st.IDs, id)
		}
	})
	slices.Sort(st.IDs)
	return st
}

// Sweep removes idle sessions and returns how many were dropped.
func (t *Tracker) Sweep() int { return t.st.sweep(t.st.now()) }

// Len returns the number of live or not yet swept sessions.
func (t *Tracker) Len() int { return t.st.len() }

// FilterUnseen returns the items whose id is not in shown, in input order.
func FilterUnseen[T any](items []T, id func(T) string, shown map[string]struct{}) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, seen := shown[id(it)]; !seen {
			out = append(out, it)
		}
	}
	return out
}

// Unseen filters items against the tracker. When every item was already
// shown the lap is complete: the session is reset and the full list comes
// back with lapped set. An empty input is never a lap.
func Unseen[T any](t *Tracker, key Key, items []T, id func(T) string) (unseen []T, lapped bool) {
	unseen = FilterUnseen(items, id, t.Shown(key))
	if len(unseen) > 0 || len(items) == 0 {
		return unseen, false
	}
	t.Reset(key)
	return FilterUnseen(items, id, t.Shown(key)), true
}
