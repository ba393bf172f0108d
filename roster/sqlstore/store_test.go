package sqlstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.gradalloc.dev/core/metrics"
	"go.gradalloc.dev/core/roster"
)

func TestGraduatesAndTeamsRoundTrip(t *testing.T) {
	var s, ctx = newTestStore(t), context.Background()

	require.NoError(t, s.SaveTeam(ctx, roster.Team{ID: "platform", Name: "Platform", Capacity: 3, LowerBound: 1}))
	require.NoError(t, s.SaveTeam(ctx, roster.Team{ID: "payments", Capacity: 2}))
	require.NoError(t, s.SaveGraduate(ctx, roster.Graduate{ID: "bob", AssignedTeam: "payments"}))
	require.NoError(t, s.SaveGraduate(ctx, roster.Graduate{ID: "alice", Name: "Alice"}))

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	require.Equal(t, []roster.Team{
		{ID: "payments", Capacity: 2},
		{ID: "platform", Name: "Platform", Capacity: 3, LowerBound: 1},
	}, teams)

	grads, err := s.ListGraduates(ctx)
	require.NoError(t, err)
	require.Equal(t, []roster.Graduate{
		{ID: "alice", Name: "Alice"},
		{ID: "bob", AssignedTeam: "payments"},
	}, grads)

	// Saves of an existing ID update in place.
	require.NoError(t, s.SaveTeam(ctx, roster.Team{ID: "payments", Capacity: 4, LowerBound: 2}))
	require.NoError(t, s.SaveGraduate(ctx, roster.Graduate{ID: "alice", Name: "Alice", AssignedTeam: "platform"}))
	require.NoError(t, s.SaveGraduate(ctx, roster.Graduate{ID: "bob"}))

	teams, err = s.ListTeams(ctx)
	require.NoError(t, err)
	require.Equal(t, roster.Team{ID: "payments", Capacity: 4, LowerBound: 2}, teams[0])

	grads, err = s.ListGraduates(ctx)
	require.NoError(t, err)
	require.Equal(t, []roster.Graduate{
		{ID: "alice", Name: "Alice", AssignedTeam: "platform"},
		{ID: "bob"},
	}, grads)
}

func TestPreferenceLifecycle(t *testing.T) {
	var s, ctx = newTestStore(t), context.Background()
	applyFixture(t, s)

	var _, err = s.GetPreference(ctx, "bob", "payments")
	require.Equal(t, roster.ErrPreferenceNotFound, errors.Cause(err))

	pref, err := s.GetPreference(ctx, "alice", "platform")
	require.NoError(t, err)
	require.Equal(t, roster.Preference{GraduateID: "alice", TeamID: "platform", Weight: 1}, pref)

	// GetOrCreate of a missing Preference creates it with the default weight.
	pref, err = s.GetOrCreatePreference(ctx, "bob", "payments")
	require.NoError(t, err)
	require.Equal(t, roster.DefaultWeight, pref.Weight)

	// GetOrCreate of an existing Preference doesn't modify it.
	pref, err = s.GetOrCreatePreference(ctx, "alice", "payments")
	require.NoError(t, err)
	require.Equal(t, 2, pref.Weight)

	pref.Weight = 102
	require.NoError(t, s.SavePreference(ctx, pref))

	pref, err = s.GetPreference(ctx, "alice", "payments")
	require.NoError(t, err)
	require.Equal(t, 102, pref.Weight)
}

func TestTransactCommitsAndRollsBack(t *testing.T) {
	var s, ctx = newTestStore(t), context.Background()
	applyFixture(t, s)

	var failed = errors.New("whoops")

	require.Equal(t, failed, s.Transact(ctx, func(tx roster.Store) error {
		require.NoError(t, tx.SaveGraduate(ctx, roster.Graduate{ID: "alice", AssignedTeam: "payments"}))
		require.NoError(t, tx.SavePreference(ctx,
			roster.Preference{GraduateID: "alice", TeamID: "platform", Weight: 101}))

		// Nested Transact runs within the current transaction.
		return tx.(roster.Transactor).Transact(ctx, func(roster.Store) error { return failed })
	}))

	grads, err := s.ListGraduates(ctx)
	require.NoError(t, err)
	require.Equal(t, "", grads[0].AssignedTeam)

	pref, err := s.GetPreference(ctx, "alice", "platform")
	require.NoError(t, err)
	require.Equal(t, 1, pref.Weight)

	require.NoError(t, s.Transact(ctx, func(tx roster.Store) error {
		return tx.SaveGraduate(ctx, roster.Graduate{ID: "alice", AssignedTeam: "payments"})
	}))
	grads, err = s.ListGraduates(ctx)
	require.NoError(t, err)
	require.Equal(t, "payments", grads[0].AssignedTeam)
}

func TestRoundsAndReset(t *testing.T) {
	var s, ctx = newTestStore(t), context.Background()
	applyFixture(t, s)

	var (
		first  = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
		second = first.Add(time.Hour)
	)
	require.NoError(t, s.RecordRound(ctx, roster.Round{
		ID: "round-1", Strategy: "single", Graduates: 2, TotalCost: 3, CompletedAt: first}))
	require.NoError(t, s.RecordRound(ctx, roster.Round{
		ID: "round-2", Strategy: "lower-bound+apportioned", Graduates: 2, TotalCost: 105, CompletedAt: second}))

	rounds, err := s.ListRounds(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []roster.Round{
		{ID: "round-2", Strategy: "lower-bound+apportioned", Graduates: 2, TotalCost: 105, CompletedAt: second},
		{ID: "round-1", Strategy: "single", Graduates: 2, TotalCost: 3, CompletedAt: first},
	}, rounds)

	rounds, err = s.ListRounds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rounds, 1)

	require.NoError(t, s.Reset(ctx))

	rounds, err = s.ListRounds(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, rounds)

	grads, err := s.ListGraduates(ctx)
	require.NoError(t, err)
	require.Empty(t, grads)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	require.Empty(t, teams)

	_, err = s.GetPreference(ctx, "alice", "platform")
	require.Equal(t, roster.ErrPreferenceNotFound, errors.Cause(err))
}

func TestOpenIsIdempotentAndObserved(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "roster.db")
	var before = testutil.ToFloat64(metrics.RosterStoreOpsTotal.WithLabelValues("schema", metrics.Ok))

	for i := 0; i != 2; i++ {
		var s, err = Open(SQLite, path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
	require.Equal(t, before+2,
		testutil.ToFloat64(metrics.RosterStoreOpsTotal.WithLabelValues("schema", metrics.Ok)))

	var _, err = Open("mysql", "whatever")
	require.EqualError(t, err, "unsupported database driver (mysql; expected sqlite3 or postgres)")
}

func newTestStore(t *testing.T) *Store {
	var s, err = Open(SQLite, filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func applyFixture(t *testing.T, s *Store) {
	var f, err = roster.DecodeFixture(strings.NewReader(`
teams:
  - {id: platform, capacity: 1}
  - {id: payments, capacity: 1}
graduates:
  - {id: alice}
  - {id: bob}
preferences:
  alice: {platform: 1, payments: 2}
  bob: {platform: 2}
`))
	require.NoError(t, err)
	require.NoError(t, f.Apply(context.Background(), s))
}
