package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for gradalloc metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for roster.Store implementations.
var (
	RosterStoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradalloc_roster_store_ops_total",
		Help: "Cumulative number of roster store operations, by operation and status.",
	}, []string{"op", "status"})
	RosterPreferenceCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradalloc_roster_preference_cache_hits_total",
		Help: "Cumulative number of preference reads served from cache.",
	})
	RosterPreferenceCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradalloc_roster_preference_cache_misses_total",
		Help: "Cumulative number of preference reads which missed cache.",
	})
)

// RosterCollectors returns the metrics used by roster stores.
func RosterCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RosterStoreOpsTotal,
		RosterPreferenceCacheHitsTotal,
		RosterPreferenceCacheMissesTotal,
	}
}

// StatusOf maps an error to its status label value.
func StatusOf(err error) string {
	if err != nil {
		return Fail
	}
	return Ok
}
