package allocator

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gradalloc.dev/core/allocator/min_cost_flow"
	"go.gradalloc.dev/core/roster"
)

// DiscouragementPenalty is added to the Preference weight of a graduate's
// previously-held team at the start of each round. It compounds across
// rounds in which the graduate is again placed on the team.
const DiscouragementPenalty = 100

// PreferenceCost returns the cost of placing a graduate onto a team having
// the Preference weight. Preference strengths are inverted, so that a most
// preferred team has lowest cost. Discouraged weights are used as-is.
func PreferenceCost(weight int) min_cost_flow.Cost {
	if weight >= roster.DiscouragedWeight {
		return min_cost_flow.Cost(weight)
	}
	return min_cost_flow.Cost(roster.MaxWeight + 1 - weight)
}

// discouragePreviousTeams adds DiscouragementPenalty to the Preference of
// each graduate for its AssignedTeam, first creating the Preference if it
// doesn't exist. It returns the number of Preferences discouraged.
func discouragePreviousTeams(ctx context.Context, store roster.Store, graduates []roster.Graduate) (int, error) {
	var count int

	for _, g := range graduates {
		if g.AssignedTeam == "" {
			continue
		}
		var pref, err = store.GetOrCreatePreference(ctx, g.ID, g.AssignedTeam)
		if err != nil {
			return count, errors.WithMessagef(err, "fetching preference %s/%s", g.ID, g.AssignedTeam)
		}
		pref.Weight += DiscouragementPenalty

		if err = store.SavePreference(ctx, pref); err != nil {
			return count, errors.WithMessagef(err, "saving preference %s/%s", g.ID, g.AssignedTeam)
		}
		log.WithFields(log.Fields{
			"graduate": g.ID,
			"team":     g.AssignedTeam,
			"weight":   pref.Weight,
		}).Debug("discouraged previous team")

		count++
	}
	allocatorPreferencesDiscouragedTotal.Add(float64(count))
	return count, nil
}
