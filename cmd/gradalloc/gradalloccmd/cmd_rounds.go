package gradalloccmd

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	mbp "go.gradalloc.dev/core/mainboilerplate"
	"go.gradalloc.dev/core/roster/sqlstore"
)

type cmdRounds struct {
	Limit int `long:"limit" default:"10" description:"Maximum number of rounds to list"`
}

func init() {
	CommandRegistry.AddCommand("", "rounds", "List completed allocation rounds", `
List completed allocation rounds, most recent first.
`, &cmdRounds{})
}

func (cmd *cmdRounds) Execute([]string) error {
	defer startup()()

	var store = Config.Database.MustOpen()
	defer store.Close()

	mbp.Must(cmd.list(context.Background(), store, os.Stdout), "failed to list rounds")
	return nil
}

func (cmd *cmdRounds) list(ctx context.Context, store *sqlstore.Store, w io.Writer) error {
	var rounds, err = store.ListRounds(ctx, cmd.Limit)
	if err != nil {
		return errors.WithMessage(err, "listing rounds")
	}

	var table = tablewriter.NewWriter(w)
	table.Header([]string{"Round", "Strategy", "Graduates", "Cost", "Completed"})

	for _, r := range rounds {
		if err = table.Append([]string{
			r.ID,
			r.Strategy,
			strconv.Itoa(r.Graduates),
			humanize.Comma(r.TotalCost),
			humanize.Time(r.CompletedAt),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
