package allocator

import (
	"context"

	"github.com/pkg/errors"
	mcf "go.gradalloc.dev/core/allocator/min_cost_flow"
	"go.gradalloc.dev/core/roster"
	gc "gopkg.in/check.v1"
)

type FlowNetworkSuite struct{}

func (s *FlowNetworkSuite) TestNetworkConstruction(c *gc.C) {
	var store = buildStore(c, `
teams:
  - {id: t1, capacity: 3, lower_bound: 1}
  - {id: t2, capacity: 2}
graduates:
  - {id: A}
  - {id: B}
preferences:
  A: {t1: 5, t2: 1}
  B: {t1: 4, t2: 102}
`)
	var ctx = context.Background()
	var teams, _ = store.ListTeams(ctx)
	var graduates, _ = store.ListGraduates(ctx)

	var fn, err = newFlowNetwork(ctx, store, graduates, teams, Apportioned{"t2": 2})
	c.Assert(err, gc.IsNil)

	// Source & sink, then graduates, then teams.
	c.Check(fn.Nodes(), gc.Equals, 6)
	c.Check(fn.Demand(2), gc.Equals, mcf.Rate(-1))
	c.Check(fn.Demand(3), gc.Equals, mcf.Rate(-1))
	c.Check(fn.Demand(4), gc.Equals, mcf.Rate(0)) // t1 is not apportioned.
	c.Check(fn.Demand(5), gc.Equals, mcf.Rate(2))

	c.Check(fn.Arcs(2), gc.DeepEquals, []mcf.Arc{
		{To: 4, Capacity: 1, Cost: 1},
		{To: 5, Capacity: 1, Cost: 5},
	})
	c.Check(fn.Arcs(3), gc.DeepEquals, []mcf.Arc{
		{To: 4, Capacity: 1, Cost: 2},
		{To: 5, Capacity: 1, Cost: 102},
	})
	c.Check(fn.Arcs(4), gc.IsNil)
	c.Check(fn.Arcs(5), gc.IsNil)

	// Demands of other capacity sources.
	for _, tc := range []struct {
		source CapacitySource
		expect []mcf.Rate
	}{
		{FullCapacity{}, []mcf.Rate{3, 2}},
		{LowerBound{}, []mcf.Rate{1, 0}},
		{Apportioned{}, []mcf.Rate{0, 0}},
	} {
		fn, err = newFlowNetwork(ctx, store, graduates, teams, tc.source)
		c.Assert(err, gc.IsNil)
		c.Check(fn.demands, gc.DeepEquals, tc.expect)
	}
}

func (s *FlowNetworkSuite) TestExtractAssignments(c *gc.C) {
	var store = uniformStore([]roster.Team{
		{ID: "t1", Capacity: 1},
		{ID: "t2", Capacity: 1},
		{ID: "t3", Capacity: 1},
	}, 3)
	store.Preferences[pair("g0", "t3")] = 5
	store.Preferences[pair("g1", "t1")] = 5
	store.Preferences[pair("g2", "t2")] = 5

	var ctx = context.Background()
	var fn, err = newFlowNetwork(ctx, store, store.Graduates, store.Teams, FullCapacity{})
	c.Assert(err, gc.IsNil)

	flow, err := mcf.FindMinCostFlow(fn)
	c.Assert(err, gc.IsNil)
	c.Check(flow.TotalCost(), gc.Equals, mcf.Cost(3))

	assignments, err := fn.extractAssignments(flow)
	c.Check(err, gc.IsNil)
	c.Check(assignments, gc.DeepEquals, []int{2, 0, 1})
}

func (s *FlowNetworkSuite) TestUnbalancedDemands(c *gc.C) {
	var store = uniformStore([]roster.Team{{ID: "t1", Capacity: 2}}, 2)

	var ctx = context.Background()
	var fn, err = newFlowNetwork(ctx, store, store.Graduates, store.Teams, Apportioned{"t1": 1})
	c.Assert(err, gc.IsNil)

	var _, err2 = mcf.FindMinCostFlow(fn)
	c.Check(errors.Cause(err2), gc.Equals, mcf.ErrUnbalanced)
}

func (s *FlowNetworkSuite) TestMissingPreference(c *gc.C) {
	var store = uniformStore([]roster.Team{{ID: "t1", Capacity: 1}, {ID: "t2", Capacity: 1}}, 2)
	delete(store.Preferences, pair("g1", "t1"))

	var _, err = newFlowNetwork(context.Background(), store,
		store.Graduates, store.Teams, FullCapacity{})
	c.Check(err, gc.ErrorMatches, `fetching preference g1/t1: preference not found`)
	c.Check(errors.Cause(err), gc.Equals, roster.ErrPreferenceNotFound)
	c.Check(store.Calls["GetPreference"], gc.Equals, 3)
}

var _ = gc.Suite(&FlowNetworkSuite{})
