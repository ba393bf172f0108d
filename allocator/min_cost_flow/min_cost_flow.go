package min_cost_flow

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
)

type (
	// Rate is the unit of flow velocity.
	Rate int32
	// Cost of a unit of flow along an Arc.
	Cost int64
	// ID (index) of a node.
	NodeID int32
	// ID (index) of an edge. Edges are allocated in pairs: a forward edge
	// having an even ID, and its residual at ID^1.
	edgeID int32
)

const (
	// SourceID is the node from which all supply originates. The solver
	// connects it to each node having negative demand.
	SourceID NodeID = 0
	// SinkID is the node to which all demand is ultimately directed. The
	// solver connects each node having positive demand to it.
	SinkID NodeID = 1

	maxCost Cost = math.MaxInt64
)

var (
	// ErrUnbalanced is returned if Network demands do not sum to zero.
	ErrUnbalanced = errors.New("network demands are not balanced")
	// ErrInfeasible is returned if no flow satisfies all Network demands.
	ErrInfeasible = errors.New("network demands cannot be satisfied")
	// ErrNegativeCycle is returned if the Network has a cycle of negative cost.
	ErrNegativeCycle = errors.New("network has a negative-cost cycle")
)

// Arc is a directed edge between a current node and another.
type Arc struct {
	To       NodeID // Node to which this Arc directs.
	Capacity Rate   // Maximum flow Rate of this Arc.
	Cost     Cost   // Cost of each unit of flow along this Arc.
}

// Network is a flow network for which a minimum-cost flow is desired. Nodes
// SourceID and SinkID are reserved for use by the solver: Network
// implementations describe only nodes [SinkID+1, Nodes()).
type Network interface {
	// Nodes returns the number of nodes in the network,
	// including the source & sink.
	Nodes() int
	// Demand of the node. A node with negative demand supplies that much
	// flow, and a node with positive demand absorbs it. Demands across all
	// nodes must sum to zero.
	Demand(NodeID) Rate
	// Arcs returns the []Arcs directed from the node. Arcs is called exactly
	// once for each node, as the solver is initialized.
	Arcs(NodeID) []Arc
}

// Flow is a utilized Arc having a non-zero flow Rate.
type Flow struct {
	From, To NodeID
	Rate     Rate
	Cost     Cost // Cost per unit of Rate.
}

type edge struct {
	from, to NodeID
	capacity Rate
	flow     Rate
	cost     Cost
}

// MinCostFlow represents a minimum-cost flow achieved over a Network.
type MinCostFlow struct {
	edges []edge
	out   [][]edgeID // Edges (forward & residual) leaving each node.

	potential []Cost    // Johnson potentials, keeping reduced costs non-negative.
	dist      []Cost    // Reduced-cost distances from SourceID of the last search.
	via       []edgeID  // Edge through which each node was last reached, or -1.
	active    []pending // Nodes pending a search visit, heaped on distance.

	supply Rate // Total flow which must be routed.
	routed Rate // Flow routed so far.
	cost   Cost // Total cost of routed flow.
}

// FindMinCostFlow solves for a flow which satisfies all demands of the given
// Network at minimum total cost, using successive shortest paths with node
// potentials. Each augmenting path is found by Dijkstra's algorithm over
// reduced costs; initial potentials are computed by Bellman-Ford so that
// negative Arc costs are permitted.
func FindMinCostFlow(network Network) (*MinCostFlow, error) {
	var mf, err = newMinCostFlow(network)
	if err != nil {
		return nil, err
	} else if err = mf.initPotentials(); err != nil {
		return nil, err
	}

	for mf.routed != mf.supply {
		if !mf.shortestPaths() {
			return nil, errors.WithMessagef(ErrInfeasible,
				"routed %d of %d units", mf.routed, mf.supply)
		}
		mf.augment()
	}
	return mf, nil
}

// newMinCostFlow returns a *MinCostFlow initialized for the Network.
func newMinCostFlow(network Network) (*MinCostFlow, error) {
	var size = network.Nodes()

	var mf = &MinCostFlow{
		out:       make([][]edgeID, size),
		potential: make([]Cost, size),
		dist:      make([]Cost, size),
		via:       make([]edgeID, size),
	}
	var balance Rate

	for id := SinkID + 1; id < NodeID(size); id++ {
		var d = network.Demand(id)
		balance += d

		if d < 0 {
			mf.addEdge(SourceID, id, -d, 0)
			mf.supply -= d
		} else if d > 0 {
			mf.addEdge(id, SinkID, d, 0)
		}
		for _, arc := range network.Arcs(id) {
			mf.addEdge(id, arc.To, arc.Capacity, arc.Cost)
		}
	}
	if balance != 0 {
		return nil, errors.WithMessagef(ErrUnbalanced, "demands sum to %d", balance)
	}
	return mf, nil
}

// TotalCost returns the summed cost of all Flows.
func (mf *MinCostFlow) TotalCost() Cost { return mf.cost }

// Routed returns the total flow Rate routed from SourceID to SinkID.
func (mf *MinCostFlow) Routed() Rate { return mf.routed }

// Flows invokes the callback for each Flow of the given NodeID,
// in the order that the Network presented its Arcs.
func (mf *MinCostFlow) Flows(nodeID NodeID, cb func(Flow)) {
	for _, id := range mf.out[nodeID] {
		if id&1 == 1 {
			continue // Residual.
		}
		if e := &mf.edges[id]; e.flow != 0 {
			cb(Flow{From: e.from, To: e.to, Rate: e.flow, Cost: e.cost})
		}
	}
}

// addEdge adds a forward edge and its paired residual.
func (mf *MinCostFlow) addEdge(from, to NodeID, capacity Rate, cost Cost) {
	var id = edgeID(len(mf.edges))

	mf.edges = append(mf.edges,
		edge{from: from, to: to, capacity: capacity, cost: cost},
		edge{from: to, to: from, capacity: 0, cost: -cost},
	)
	mf.out[from] = append(mf.out[from], id)
	mf.out[to] = append(mf.out[to], id^1)
}

// initPotentials runs Bellman-Ford from a virtual node adjacent to every
// other node, such that reduced costs of all edges having residual capacity
// are non-negative.
func (mf *MinCostFlow) initPotentials() error {
	for round := 0; round <= len(mf.out); round++ {
		var relaxed bool

		for _, e := range mf.edges {
			if e.capacity-e.flow == 0 {
				continue
			}
			if p := mf.potential[e.from] + e.cost; p < mf.potential[e.to] {
				mf.potential[e.to] = p
				relaxed = true
			}
		}
		if !relaxed {
			return nil
		}
	}
	return ErrNegativeCycle
}

// shortestPaths runs Dijkstra's algorithm from SourceID over reduced edge
// costs, and then folds distances into node potentials. It returns false
// if SinkID is unreachable.
func (mf *MinCostFlow) shortestPaths() bool {
	for i := range mf.dist {
		mf.dist[i], mf.via[i] = maxCost, -1
	}
	mf.dist[SourceID] = 0
	mf.active = append(mf.active[:0], pending{id: SourceID})

	for len(mf.active) != 0 {
		var next = heap.Pop((*distHeap)(mf)).(pending)
		if next.dist != mf.dist[next.id] {
			continue // Stale: |next.id| was since reached at lower distance.
		}
		var from = next.id

		for _, id := range mf.out[from] {
			var e = &mf.edges[id]
			if e.capacity-e.flow == 0 {
				continue
			}
			var d = mf.dist[from] + e.cost + mf.potential[from] - mf.potential[e.to]

			if d < mf.dist[e.to] {
				mf.dist[e.to], mf.via[e.to] = d, id
				heap.Push((*distHeap)(mf), pending{id: e.to, dist: d})
			}
		}
	}
	if mf.dist[SinkID] == maxCost {
		return false
	}
	// Nodes not reached in this search are never again reachable, as
	// augmentation adds residual capacity only between reached nodes.
	for id, d := range mf.dist {
		if d != maxCost {
			mf.potential[id] += d
		}
	}
	return true
}

// augment pushes the bottleneck Rate along the shortest path to SinkID.
func (mf *MinCostFlow) augment() {
	var delta = mf.supply - mf.routed

	for nid := SinkID; nid != SourceID; {
		var e = &mf.edges[mf.via[nid]]
		if r := e.capacity - e.flow; r < delta {
			delta = r
		}
		nid = e.from
	}
	for nid := SinkID; nid != SourceID; {
		var id = mf.via[nid]

		mf.edges[id].flow += delta
		mf.edges[id^1].flow -= delta
		mf.cost += Cost(delta) * mf.edges[id].cost

		nid = mf.edges[id].from
	}
	mf.routed += delta
}

// pending is a node queued for a search visit at a tentative distance.
type pending struct {
	id   NodeID
	dist Cost
}

// distHeap orders pending MinCostFlow nodes on ascending distance.
type distHeap MinCostFlow

func (h *distHeap) Len() int { return len(h.active) }
func (h *distHeap) Less(i, j int) bool {
	return h.active[i].dist < h.active[j].dist
}
func (h *distHeap) Swap(i, j int) {
	h.active[i], h.active[j] = h.active[j], h.active[i]
}
func (h *distHeap) Push(x interface{}) {
	h.active = append(h.active, x.(pending))
}
func (h *distHeap) Pop() interface{} {
	var old, l = h.active, len(h.active)
	var x = old[l-1]
	h.active = old[0 : l-1]
	return x
}
