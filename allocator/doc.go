// Package allocator places graduates onto teams. Each allocation round
// models graduates and teams as a bipartite flow network, where each
// graduate supplies one unit of flow and each team demands up to its
// capacity, and solves it for a minimum-cost flow whose arc costs derive
// from graduates' stored Preferences.
//
// A round first discourages each graduate's previously-held team by adding
// DiscouragementPenalty to that Preference. If graduates exactly fill team
// capacities, a single run places everyone. Otherwise the round splits: a
// first run fills each team's LowerBound, and a second run places the
// remaining graduates across capacities apportioned by largest remainder.
package allocator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocatorRoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradalloc_allocator_rounds_total",
		Help: "Cumulative number of allocation rounds, by status.",
	}, []string{"status"})
	allocatorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradalloc_allocator_runs_total",
		Help: "Cumulative number of flow network runs, by capacity source.",
	}, []string{"source"})
	allocatorGraduatesPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradalloc_allocator_graduates_placed_total",
		Help: "Cumulative number of graduates placed onto a team.",
	})
	allocatorPreferencesDiscouragedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradalloc_allocator_preferences_discouraged_total",
		Help: "Cumulative number of previous-team preferences discouraged.",
	})
	allocatorMinCostFlowRuntimeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "gradalloc_allocator_min_cost_flow_runtime_seconds",
		Help: "Duration required to solve a flow network for minimum cost.",
	})
)
