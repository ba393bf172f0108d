package gradalloccmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gradalloc.dev/core/allocator"
	mbp "go.gradalloc.dev/core/mainboilerplate"
	"go.gradalloc.dev/core/roster"
	"go.gradalloc.dev/core/roundlock"
	"go.gradalloc.dev/core/task"
)

type cmdRun struct {
	Seed       int64 `long:"seed" description:"Seed of the random partition of graduates into runs of a split round. If zero, a time-based seed is used"`
	InputOrder bool  `long:"input-order" description:"Partition graduates in database order rather than randomly"`
}

func init() {
	CommandRegistry.AddCommand("", "run", "Run an allocation round", `
Run an allocation round, placing every graduate onto exactly one team.

Graduates are placed so that the summed cost of their preferences is
minimized, while every team receives at least its lower bound and at most
its capacity. Each graduate's previous team is first discouraged, so that
graduates rotate onto new teams across rounds.

If --etcd.address is set, the round is run while holding an Etcd lock, and
concurrent rounds of other gradalloc processes will wait for it.

Examples:

# Run a round, partitioning graduates with a fixed seed:
gradalloc run --seed 42

# Run a round under a lock shared with other gradalloc processes:
gradalloc run --etcd.address http://localhost:2379
`, &cmdRun{})
}

func (cmd *cmdRun) Execute([]string) error {
	defer startup()()

	var store = Config.Database.MustOpen()
	defer store.Close()

	var tasks = task.NewGroup(context.Background())

	if Config.Etcd.Address != "" {
		var etcd = Config.Etcd.MustDial()
		defer etcd.Close()

		var lock, err = roundlock.Acquire(tasks.Context(), etcd, Config.Etcd.LockKey, Config.Etcd.LeaseTTL)
		mbp.Must(err, "failed to acquire round lock", "key", Config.Etcd.LockKey)
		lock.QueueTasks(tasks)
	}

	tasks.Queue("allocate", func() error {
		defer tasks.Cancel()
		return cmd.run(tasks.Context(), store, Config.Database.CacheSize, os.Stdout)
	})
	tasks.GoRun()

	mbp.Must(tasks.Wait(), "allocation round failed")
	return nil
}

func (cmd *cmdRun) partition() allocator.PartitionFn {
	if cmd.InputOrder {
		return nil
	}
	var seed = cmd.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.WithField("seed", seed).Debug("partitioning graduates randomly")

	return allocator.ShufflePartition(rand.New(rand.NewSource(seed)))
}

func (cmd *cmdRun) run(ctx context.Context, store roster.Store, cacheSize int, w io.Writer) error {
	var result, err = allocator.Allocate(allocator.AllocateArgs{
		Context:   ctx,
		Store:     store,
		Partition: cmd.partition(),
		CacheSize: cacheSize,
	})
	if err != nil {
		return err
	}
	teams, err := store.ListTeams(ctx)
	if err != nil {
		return errors.WithMessage(err, "listing teams")
	}
	return writeResult(w, teams, result)
}

func writeResult(w io.Writer, teams []roster.Team, result *allocator.Result) error {
	var table = tablewriter.NewWriter(w)
	table.Header([]string{"Team", "Capacity", "Lower Bound", "Apportioned", "Placed", "Graduates"})

	var placed int
	for _, t := range teams {
		var grads = append([]string(nil), result.Assignments[t.ID]...)
		sort.Strings(grads)
		placed += len(grads)

		var apportioned = "-"
		if result.Apportioned != nil {
			apportioned = strconv.Itoa(result.Apportioned[t.ID])
		}
		if err := table.Append([]string{
			t.ID,
			strconv.Itoa(t.Capacity),
			strconv.Itoa(t.LowerBound),
			apportioned,
			strconv.Itoa(len(grads)),
			strings.Join(grads, ", "),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	var _, err = fmt.Fprintf(w, "Round %s (%s) placed %s graduates at a total cost of %s, discouraging %s previous teams.\n",
		result.RoundID,
		result.Strategy,
		humanize.Comma(int64(placed)),
		humanize.Comma(result.TotalCost),
		humanize.Comma(int64(result.Discouraged)))
	return err
}
