package allocator

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mcf "go.gradalloc.dev/core/allocator/min_cost_flow"
	"go.gradalloc.dev/core/metrics"
	"go.gradalloc.dev/core/roster"
)

// Strategies of an allocation round.
const (
	// StrategySingle places all graduates in one run, where graduates
	// exactly fill team capacities.
	StrategySingle = "single"
	// StrategySplit places graduates in a run which fills team lower bounds,
	// followed by a run over apportioned remaining capacities.
	StrategySplit = "lower-bound+apportioned"
)

var (
	// ErrInsufficientCapacity is returned if there are more graduates than
	// the summed capacity of all teams.
	ErrInsufficientCapacity = errors.New("insufficient team capacity")
	// ErrLowerBoundUnsatisfiable is returned if there are fewer graduates
	// than the summed lower bounds of all teams.
	ErrLowerBoundUnsatisfiable = errors.New("too few graduates to satisfy team lower bounds")
	// ErrAssignmentCountMismatch is returned if a solved network doesn't
	// place each graduate onto exactly one team.
	ErrAssignmentCountMismatch = errors.New("graduate not placed onto exactly one team")
)

// PartitionFn permutes graduates in place prior to a split round. The first
// graduates of the permutation fill team lower bounds, and the remainder
// fill apportioned capacities.
type PartitionFn func([]roster.Graduate)

// ShufflePartition returns a PartitionFn which shuffles graduates using the
// *rand.Rand.
func ShufflePartition(rnd *rand.Rand) PartitionFn {
	return func(graduates []roster.Graduate) {
		rnd.Shuffle(len(graduates), func(i, j int) {
			graduates[i], graduates[j] = graduates[j], graduates[i]
		})
	}
}

type AllocateArgs struct {
	Context context.Context
	// Store of graduates, teams, and preferences. If Store is also a
	// roster.Transactor, the round runs within a single transaction.
	Store roster.Store
	// Partition of graduates of a split round. If nil, graduates are
	// partitioned in the order listed by the Store.
	Partition PartitionFn
	// CacheSize is the number of Preferences cached over the round. If zero,
	// Preferences are not cached.
	CacheSize int
}

// Result of an allocation round.
type Result struct {
	// RoundID uniquely identifies the round.
	RoundID string
	// Strategy of the round: StrategySingle or StrategySplit.
	Strategy string
	// Assignments maps each team ID to graduate IDs placed onto the team,
	// in the order listed by the Store. Teams receiving no graduates map
	// to an empty slice.
	Assignments map[string][]string
	// Apportioned capacities of the second run of a StrategySplit round.
	Apportioned Apportioned
	// Discouraged is the number of previous-team Preferences discouraged.
	Discouraged int
	// TotalCost of the min-cost flow solutions of the round.
	TotalCost int64
}

// Allocate runs an allocation round which places every graduate of the Store
// onto exactly one team, and persists each graduate's AssignedTeam. No
// Store mutations are made if the round is rejected due to insufficient
// capacity or unsatisfiable lower bounds. If the Store is a
// roster.Transactor, no mutations are persisted if the round fails.
func Allocate(args AllocateArgs) (*Result, error) {
	var result *Result
	var round = func(store roster.Store) (err error) {
		if args.CacheSize > 0 {
			store = roster.NewCachedStore(store, args.CacheSize)
		}
		result, err = allocate(args.Context, store, args.Partition)
		return err
	}

	var err error
	if tx, ok := args.Store.(roster.Transactor); ok {
		err = tx.Transact(args.Context, round)
	} else {
		err = round(args.Store)
	}
	allocatorRoundsTotal.WithLabelValues(metrics.StatusOf(err)).Inc()

	if err != nil {
		return nil, err
	}
	return result, nil
}

func allocate(ctx context.Context, store roster.Store, partition PartitionFn) (*Result, error) {
	var graduates, err = store.ListGraduates(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "listing graduates")
	}
	teams, err := store.ListTeams(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "listing teams")
	}

	var capacity, lowerBound int
	for i, t := range teams {
		if err = t.Validate(); err != nil {
			return nil, roster.ExtendContext(err, "Teams[%d]", i)
		}
		capacity += t.Capacity
		lowerBound += t.LowerBound
	}

	if len(graduates) > capacity {
		return nil, errors.WithMessagef(ErrInsufficientCapacity,
			"%d graduates, but teams have capacity for %d", len(graduates), capacity)
	} else if len(graduates) < lowerBound {
		return nil, errors.WithMessagef(ErrLowerBoundUnsatisfiable,
			"%d graduates, but team lower bounds sum to %d", len(graduates), lowerBound)
	}

	var result = &Result{
		RoundID:     uuid.New().String(),
		Assignments: make(map[string][]string, len(teams)),
	}
	var logEntry = log.WithFields(log.Fields{
		"round":      result.RoundID,
		"graduates":  len(graduates),
		"teams":      len(teams),
		"capacity":   capacity,
		"lowerBound": lowerBound,
	})
	logEntry.Info("starting allocation round")

	if result.Discouraged, err = discouragePreviousTeams(ctx, store, graduates); err != nil {
		return nil, errors.WithMessage(err, "discouraging previous teams")
	}

	// Team index of each graduate, keyed on graduate ID.
	var placed = make(map[string]int, len(graduates))

	if len(graduates) == capacity {
		result.Strategy = StrategySingle

		if err = solveRun(ctx, store, graduates, teams, FullCapacity{}, placed, result); err != nil {
			return nil, err
		}
	} else {
		result.Strategy = StrategySplit

		var ordered = append([]roster.Graduate(nil), graduates...)
		if partition != nil {
			partition(ordered)
		}
		var first, second = ordered[:lowerBound], ordered[lowerBound:]

		if err = solveRun(ctx, store, first, teams, LowerBound{}, placed, result); err != nil {
			return nil, err
		}

		var remaining = make([]int, len(teams))
		for i, t := range teams {
			remaining[i] = t.Capacity - t.LowerBound
		}
		var seats = apportion(remaining, len(second))

		result.Apportioned = make(Apportioned, len(teams))
		for i, t := range teams {
			result.Apportioned[t.ID] = seats[i]
		}

		if err = solveRun(ctx, store, second, teams, result.Apportioned, placed, result); err != nil {
			return nil, err
		}
	}

	for _, t := range teams {
		result.Assignments[t.ID] = []string{}
	}
	for _, g := range graduates {
		var t, ok = placed[g.ID]
		if !ok {
			return nil, errors.WithMessagef(ErrAssignmentCountMismatch, "graduate %s was not placed", g.ID)
		}
		g.AssignedTeam = teams[t].ID

		if err = store.SaveGraduate(ctx, g); err != nil {
			return nil, errors.WithMessagef(err, "saving graduate %s", g.ID)
		}
		result.Assignments[g.AssignedTeam] = append(result.Assignments[g.AssignedTeam], g.ID)
	}
	allocatorGraduatesPlacedTotal.Add(float64(len(graduates)))

	if rr, ok := store.(roster.RoundRecorder); ok {
		if err = rr.RecordRound(ctx, roster.Round{
			ID:          result.RoundID,
			Strategy:    result.Strategy,
			Graduates:   len(graduates),
			TotalCost:   result.TotalCost,
			CompletedAt: time.Now().UTC(),
		}); err != nil {
			return nil, errors.WithMessage(err, "recording round")
		}
	}

	logEntry.WithFields(log.Fields{
		"strategy":    result.Strategy,
		"totalCost":   result.TotalCost,
		"discouraged": result.Discouraged,
	}).Info("completed allocation round")

	return result, nil
}

// solveRun builds and solves a flow network of the graduates and teams,
// and records the team index of each graduate into |placed|.
// Runs having no graduates are skipped.
func solveRun(ctx context.Context, store roster.Store, graduates []roster.Graduate, teams []roster.Team,
	source CapacitySource, placed map[string]int, result *Result) error {

	if len(graduates) == 0 {
		return nil
	}
	var network, err = newFlowNetwork(ctx, store, graduates, teams, source)
	if err != nil {
		return errors.WithMessagef(err, "building %s network", source)
	}

	var startTime = time.Now()
	flow, err := mcf.FindMinCostFlow(network)
	allocatorMinCostFlowRuntimeSeconds.Observe(time.Since(startTime).Seconds())
	allocatorRunsTotal.WithLabelValues(source.String()).Inc()

	if err != nil {
		return errors.WithMessagef(err, "solving %s network", source)
	}
	assignments, err := network.extractAssignments(flow)
	if err != nil {
		return err
	}
	for g, t := range assignments {
		placed[graduates[g].ID] = t
	}
	result.TotalCost += int64(flow.TotalCost())

	log.WithFields(log.Fields{
		"round":     result.RoundID,
		"source":    source.String(),
		"graduates": len(graduates),
		"cost":      flow.TotalCost(),
		"runtime":   time.Since(startTime),
	}).Debug("solved flow network")

	return nil
}
