package allocator

import (
	"context"

	"github.com/pkg/errors"
	mcf "go.gradalloc.dev/core/allocator/min_cost_flow"
	"go.gradalloc.dev/core/roster"
)

// CapacitySource determines the demand of each Team within a flow network.
// Implementations are FullCapacity, LowerBound, and Apportioned.
type CapacitySource interface {
	demand(roster.Team) int
	String() string
}

// FullCapacity sources team demands from Team.Capacity. It's used where
// graduates exactly fill all team capacities.
type FullCapacity struct{}

// LowerBound sources team demands from Team.LowerBound. It's used by the
// first run of a split round.
type LowerBound struct{}

// Apportioned sources team demands from a mapping of team ID to seats.
// Teams not in the mapping have no demand. It's used by the second run of
// a split round.
type Apportioned map[string]int

func (FullCapacity) demand(t roster.Team) int  { return t.Capacity }
func (LowerBound) demand(t roster.Team) int    { return t.LowerBound }
func (a Apportioned) demand(t roster.Team) int { return a[t.ID] }

func (FullCapacity) String() string { return "full-capacity" }
func (LowerBound) String() string   { return "lower-bound" }
func (Apportioned) String() string  { return "apportioned" }

// flowNetwork models graduates and teams as a bipartite flow network:
//
//	            Graduates       Teams
//	            ---------       -----
//	+------+    +-------+      +-----+    +------+
//	|      |--->| alice |----->|  A  |--->|      |
//	|source|    +-------+ \  / +-----+    | sink |
//	|      |    +-------+  \/  +-----+    |      |
//	|      |--->|  bob  |--/\->|  B  |--->|      |
//	+------+    +-------+      +-----+    +------+
//
// Each graduate has a demand of -1 (it supplies one unit of flow), and each
// team has a demand given by the CapacitySource. Every graduate has an arc
// of capacity one to every team, costed by the graduate's Preference.
type flowNetwork struct {
	graduates []roster.Graduate
	teams     []roster.Team
	demands   []mcf.Rate  // Indexed on team.
	arcs      [][]mcf.Arc // Indexed on graduate.

	firstGraduateNodeID mcf.NodeID
	firstTeamNodeID     mcf.NodeID
}

// newFlowNetwork builds a flowNetwork of the graduates and teams. Each
// (graduate, team) Preference is fetched from the Store exactly once, and a
// missing Preference aborts construction with roster.ErrPreferenceNotFound.
func newFlowNetwork(ctx context.Context, store roster.Store, graduates []roster.Graduate,
	teams []roster.Team, source CapacitySource) (*flowNetwork, error) {

	var fn = &flowNetwork{
		graduates:           graduates,
		teams:               teams,
		demands:             make([]mcf.Rate, len(teams)),
		arcs:                make([][]mcf.Arc, len(graduates)),
		firstGraduateNodeID: mcf.SinkID + 1,
		firstTeamNodeID:     mcf.SinkID + 1 + mcf.NodeID(len(graduates)),
	}
	for t := range teams {
		fn.demands[t] = mcf.Rate(source.demand(teams[t]))
	}
	for g := range graduates {
		fn.arcs[g] = make([]mcf.Arc, len(teams))

		for t := range teams {
			var pref, err = store.GetPreference(ctx, graduates[g].ID, teams[t].ID)
			if err != nil {
				return nil, errors.WithMessagef(err, "fetching preference %s/%s",
					graduates[g].ID, teams[t].ID)
			}
			fn.arcs[g][t] = mcf.Arc{
				To:       fn.firstTeamNodeID + mcf.NodeID(t),
				Capacity: 1,
				Cost:     PreferenceCost(pref.Weight),
			}
		}
	}
	return fn, nil
}

func (fn *flowNetwork) Nodes() int {
	return int(fn.firstTeamNodeID) + len(fn.teams)
}

func (fn *flowNetwork) Demand(id mcf.NodeID) mcf.Rate {
	if id >= fn.firstTeamNodeID {
		return fn.demands[id-fn.firstTeamNodeID]
	}
	return -1
}

func (fn *flowNetwork) Arcs(id mcf.NodeID) []mcf.Arc {
	if id >= fn.firstTeamNodeID {
		return nil
	}
	return fn.arcs[id-fn.firstGraduateNodeID]
}

// extractAssignments returns the team index of each graduate index under
// the solved flow. Each graduate must route exactly one unit of flow to
// exactly one team, or ErrAssignmentCountMismatch is returned.
func (fn *flowNetwork) extractAssignments(flow *mcf.MinCostFlow) ([]int, error) {
	var out = make([]int, len(fn.graduates))

	for g := range fn.graduates {
		var count int
		var rate mcf.Rate

		flow.Flows(fn.firstGraduateNodeID+mcf.NodeID(g), func(f mcf.Flow) {
			out[g] = int(f.To - fn.firstTeamNodeID)
			rate += f.Rate
			count++
		})
		if count != 1 || rate != 1 {
			return nil, errors.WithMessagef(ErrAssignmentCountMismatch,
				"graduate %s has %d team flows (rate %d)", fn.graduates[g].ID, count, rate)
		}
	}
	return out, nil
}

var _ mcf.Network = (*flowNetwork)(nil)
