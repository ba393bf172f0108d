package roster_test

import (
	"context"
	"strings"

	"go.gradalloc.dev/core/metrics"
	"go.gradalloc.dev/core/roster"
	"go.gradalloc.dev/core/roster/rostertest"
	gc "gopkg.in/check.v1"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type FixtureSuite struct{}

func (s *FixtureSuite) TestDecodeAndApply(c *gc.C) {
	var f, err = roster.DecodeFixture(strings.NewReader(fixtureYAML))
	c.Assert(err, gc.IsNil)

	c.Check(f.Teams, gc.DeepEquals, []roster.Team{
		{ID: "platform", Name: "Platform", Capacity: 3, LowerBound: 1},
		{ID: "payments", Capacity: 2},
	})
	c.Check(f.Graduates, gc.DeepEquals, []roster.Graduate{
		{ID: "alice"},
		{ID: "bob", AssignedTeam: "payments"},
	})
	c.Check(f.PreferenceList(), gc.DeepEquals, []roster.Preference{
		{GraduateID: "alice", TeamID: "payments", Weight: 2},
		{GraduateID: "alice", TeamID: "platform", Weight: 1},
		{GraduateID: "bob", TeamID: "platform", Weight: 2},
	})
	c.Check(f.MissingPreferences(), gc.DeepEquals, []roster.Preference{
		{GraduateID: "bob", TeamID: "payments"},
	})

	var store = rostertest.NewStore()
	c.Check(f.Apply(context.Background(), store), gc.IsNil)

	c.Check(store.Teams, gc.DeepEquals, f.Teams)
	c.Check(store.Graduates, gc.DeepEquals, f.Graduates)
	c.Check(store.Preferences, gc.DeepEquals, map[rostertest.Pair]int{
		{GraduateID: "alice", TeamID: "payments"}: 2,
		{GraduateID: "alice", TeamID: "platform"}: 1,
		{GraduateID: "bob", TeamID: "platform"}:   2,
	})
}

func (s *FixtureSuite) TestDecodeErrorCases(c *gc.C) {
	var cases = []struct {
		yaml   string
		expect string
	}{
		{"teams: [{id: a, capacity: 1, bogus: 1}]", `(?s)decoding fixture: .*field bogus not found.*`},
		{"teams: [{id: a, capacity: -1}]", `Teams\[0\]: invalid Capacity .*`},
		{"teams: [{id: a, capacity: 1}, {id: a, capacity: 2}]", `duplicate team ID \(a\)`},
		{"graduates: [{id: g}, {id: g}]", `duplicate graduate ID \(g\)`},
		{"graduates: [{id: 'g g'}]", `Graduates\[0\].ID: not a valid token \(g g\)`},
		{"graduates: [{id: g, assigned_team: t}]", `graduate g has unknown AssignedTeam \(t\)`},
		{"teams: [{id: t, capacity: 1}]\ngraduates: [{id: g}]\npreferences: {g: {t: 7}}",
			`Preferences\[g\]\[t\]: invalid Weight \(7; .*\)`},
		{"teams: [{id: t, capacity: 1}]\npreferences: {g: {t: 1}}",
			`preference of unknown graduate \(g\)`},
		{"graduates: [{id: g}]\npreferences: {g: {t: 1}}",
			`preference for unknown team \(t\)`},
	}
	for _, tc := range cases {
		var _, err = roster.DecodeFixture(strings.NewReader(tc.yaml))
		c.Check(err, gc.ErrorMatches, tc.expect)
	}
}

func (s *FixtureSuite) TestCachedStoreReadsThrough(c *gc.C) {
	var f, err = roster.DecodeFixture(strings.NewReader(fixtureYAML))
	c.Assert(err, gc.IsNil)

	var (
		ctx     = context.Background()
		backing = rostertest.NewStoreFromFixture(f)
		cached  = roster.NewCachedStore(backing, 2)
		hits    = testutil.ToFloat64(metrics.RosterPreferenceCacheHitsTotal)
	)

	// First read is a miss, and second is a hit.
	for i := 0; i != 2; i++ {
		var pref, err = cached.GetPreference(ctx, "alice", "platform")
		c.Check(err, gc.IsNil)
		c.Check(pref.Weight, gc.Equals, 1)
	}
	c.Check(backing.Calls["GetPreference"], gc.Equals, 1)
	c.Check(testutil.ToFloat64(metrics.RosterPreferenceCacheHitsTotal), gc.Equals, hits+1)

	// Missing preferences aren't cached.
	for i := 0; i != 2; i++ {
		_, err = cached.GetPreference(ctx, "bob", "payments")
		c.Check(err, gc.Equals, roster.ErrPreferenceNotFound)
	}
	c.Check(backing.Calls["GetPreference"], gc.Equals, 3)

	// GetOrCreate populates the cache, and a subsequent Get is a hit.
	pref, err := cached.GetOrCreatePreference(ctx, "bob", "payments")
	c.Check(err, gc.IsNil)
	c.Check(pref.Weight, gc.Equals, roster.DefaultWeight)
	pref, err = cached.GetPreference(ctx, "bob", "payments")
	c.Check(err, gc.IsNil)
	c.Check(pref.Weight, gc.Equals, roster.DefaultWeight)
	c.Check(backing.Calls["GetPreference"], gc.Equals, 3)

	// Saves write through, and update the cache.
	pref.Weight += 100
	c.Check(cached.SavePreference(ctx, pref), gc.IsNil)
	c.Check(backing.Preferences[rostertest.Pair{GraduateID: "bob", TeamID: "payments"}],
		gc.Equals, roster.DefaultWeight+100)

	pref, err = cached.GetPreference(ctx, "bob", "payments")
	c.Check(err, gc.IsNil)
	c.Check(pref.Weight, gc.Equals, roster.DefaultWeight+100)
	c.Check(backing.Calls["GetPreference"], gc.Equals, 3)

	// Rounds pass through to the wrapped RoundRecorder.
	c.Check(cached.RecordRound(ctx, roster.Round{ID: "a-round"}), gc.IsNil)
	c.Check(backing.Rounds, gc.HasLen, 1)
}

const fixtureYAML = `
teams:
  - id: platform
    name: Platform
    capacity: 3
    lower_bound: 1
  - id: payments
    capacity: 2
graduates:
  - id: alice
  - id: bob
    assigned_team: payments
preferences:
  alice: {platform: 1, payments: 2}
  bob: {platform: 2}
`

var _ = gc.Suite(&FixtureSuite{})
