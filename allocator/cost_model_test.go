package allocator

import (
	"context"

	mcf "go.gradalloc.dev/core/allocator/min_cost_flow"
	"go.gradalloc.dev/core/roster"
	"go.gradalloc.dev/core/roster/rostertest"
	gc "gopkg.in/check.v1"
)

type CostModelSuite struct{}

func (s *CostModelSuite) TestPreferenceCost(c *gc.C) {
	for _, tc := range []struct {
		weight int
		cost   mcf.Cost
	}{
		{roster.MaxWeight, 1},
		{4, 2},
		{3, 3},
		{roster.MinWeight, 5},
		{roster.DiscouragedWeight, 100},
		{roster.DefaultWeight + DiscouragementPenalty, 103},
		{205, 205},
	} {
		c.Check(PreferenceCost(tc.weight), gc.Equals, tc.cost)
	}
}

func (s *CostModelSuite) TestDiscouragementCompounds(c *gc.C) {
	var store = rostertest.NewStore()
	var ctx = context.Background()
	store.Preferences[rostertest.Pair{GraduateID: "alice", TeamID: "platform"}] = 2

	var graduates = []roster.Graduate{
		{ID: "alice", AssignedTeam: "platform"},
		{ID: "bob", AssignedTeam: "payments"}, // Has no preference.
		{ID: "carol"},                         // Was never placed.
	}

	var n, err = discouragePreviousTeams(ctx, store, graduates)
	c.Check(err, gc.IsNil)
	c.Check(n, gc.Equals, 2)

	n, err = discouragePreviousTeams(ctx, store, graduates)
	c.Check(err, gc.IsNil)
	c.Check(n, gc.Equals, 2)

	c.Check(store.Preferences, gc.DeepEquals, map[rostertest.Pair]int{
		{GraduateID: "alice", TeamID: "platform"}: 2 + 200,
		{GraduateID: "bob", TeamID: "payments"}:   roster.DefaultWeight + 200,
	})
	c.Check(store.Calls["GetOrCreatePreference"], gc.Equals, 4)
	c.Check(store.Calls["SavePreference"], gc.Equals, 4)
}

var _ = gc.Suite(&CostModelSuite{})
