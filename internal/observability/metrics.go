package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	displayModes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_display_mode_total",
			Help: "Patient query responses by final display mode.",
		},
		[]string{"mode"},
	)

	lapResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "remind_lap_resets_total",
			Help: "Sessions reset because every available item had been shown.",
		},
	)

	classifierFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "remind_classifier_fallbacks_total",
			Help: "Intent classifications answered by the fallback descriptor.",
		},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_cache_requests_total",
			Help: "Cache lookups by cache name and result (hit|miss).",
		},
		[]string{"cache", "result"},
	)

	evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_janitor_evictions_total",
			Help: "Entries removed by the background janitor, by store.",
		},
		[]string{"store"},
	)
)

func init() {
	prometheus.MustRegister(displayModes, lapResets, classifierFallbacks, cacheRequests, evictions)
}

// ObserveDisplayMode counts one response served in mode.
func ObserveDisplayMode(mode string) { displayModes.WithLabelValues(mode).Inc() }

// IncLapReset counts one lap-around reset.
func IncLapReset() { lapResets.Inc() }

// IncClassifierFallback counts one fallback classification. Its signature
// fits intent.WithFallbackHook.
func IncClassifierFallback(error) { classifierFallbacks.Inc() }

// CacheObserver returns a hit/miss callback for the named cache, suitable
// for cache.WithObserver.
func CacheObserver(name string) func(hit bool) {
	hit := cacheRequests.WithLabelValues(name, "hit")
	miss := cacheRequests.WithLabelValues(name, "miss")
	return func(ok bool) {
		if ok {
			hit.Inc()
			return
		}
		miss.Inc()
	}
}

// ObserveEvictions adds n janitor evictions for store.
func ObserveEvictions(store string, n int) {
	if n > 0 {
		evictions.WithLabelValues(store).Add(float64(n))
	}
}
