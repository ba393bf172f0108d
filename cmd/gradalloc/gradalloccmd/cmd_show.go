package gradalloccmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	mbp "go.gradalloc.dev/core/mainboilerplate"
	"go.gradalloc.dev/core/roster"
)

type cmdShow struct{}

func init() {
	CommandRegistry.AddCommand("", "show", "Show graduates and their assigned teams", `
Show each graduate, its assigned team, and the rank of its preference for
that team. A rank of "1st" is the graduate's most preferred weight, and
"discouraged" marks a previous team of the graduate.
`, &cmdShow{})
}

func (cmd *cmdShow) Execute([]string) error {
	defer startup()()

	var store = Config.Database.MustOpen()
	defer store.Close()

	mbp.Must(cmd.show(context.Background(), store, os.Stdout), "failed to show graduates")
	return nil
}

func (cmd *cmdShow) show(ctx context.Context, store roster.Store, w io.Writer) error {
	var graduates, err = store.ListGraduates(ctx)
	if err != nil {
		return errors.WithMessage(err, "listing graduates")
	}

	var table = tablewriter.NewWriter(w)
	table.Header([]string{"Graduate", "Name", "Team", "Preference"})

	for _, g := range graduates {
		var team, rank = "-", "-"

		if g.AssignedTeam != "" {
			team = g.AssignedTeam

			var pref, err = store.GetPreference(ctx, g.ID, g.AssignedTeam)
			if errors.Cause(err) == roster.ErrPreferenceNotFound {
				// Pass.
			} else if err != nil {
				return errors.WithMessagef(err, "fetching preference %s/%s", g.ID, g.AssignedTeam)
			} else if pref.IsDiscouraged() {
				rank = fmt.Sprintf("discouraged (%d)", pref.Weight)
			} else {
				rank = humanize.Ordinal(pref.Rank())
			}
		}
		if err = table.Append([]string{g.ID, g.Name, team, rank}); err != nil {
			return err
		}
	}
	return table.Render()
}
