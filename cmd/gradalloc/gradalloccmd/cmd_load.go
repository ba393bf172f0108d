package gradalloccmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mbp "go.gradalloc.dev/core/mainboilerplate"
	"go.gradalloc.dev/core/roster"
	"go.gradalloc.dev/core/roster/sqlstore"
)

type cmdLoad struct {
	Fixture string `long:"fixture" required:"true" description:"Path to a YAML roster fixture, or '-' for stdin"`
	Reset   bool   `long:"reset" description:"Delete all teams, graduates, preferences and rounds before loading"`
}

func init() {
	CommandRegistry.AddCommand("", "load", "Load a roster fixture", `
Load teams, graduates and preferences from a YAML roster fixture.

Teams and graduates of the fixture are created, or updated if they already
exist. The fixture is loaded within a single transaction, and nothing is
loaded if any part of it fails.

A roster fixture looks like:

  teams:
    - id: platform
      capacity: 3
      lower_bound: 1
    - id: payments
      capacity: 2
  graduates:
    - id: alice
    - id: bob
  preferences:
    alice: {platform: 5, payments: 2}
    bob: {platform: 1, payments: 4}

Preference weights range from 1 (least preferred) to 5 (most preferred).
Every graduate should state a preference for every team.

Examples:

# Load a fixture, replacing the current roster:
gradalloc load --fixture roster.yaml --reset
`, &cmdLoad{})
}

func (cmd *cmdLoad) Execute([]string) error {
	defer startup()()

	var r io.Reader = os.Stdin
	if cmd.Fixture != "-" {
		var f, err = os.Open(cmd.Fixture)
		mbp.Must(err, "failed to open fixture", "path", cmd.Fixture)
		defer f.Close()
		r = f
	}
	var store = Config.Database.MustOpen()
	defer store.Close()

	mbp.Must(cmd.load(context.Background(), store, r, os.Stdout), "failed to load fixture")
	return nil
}

func (cmd *cmdLoad) load(ctx context.Context, store *sqlstore.Store, r io.Reader, w io.Writer) error {
	var fixture, err = roster.DecodeFixture(r)
	if err != nil {
		return err
	}

	if err = store.Transact(ctx, func(tx roster.Store) error {
		var txStore = tx.(*sqlstore.Store)

		if cmd.Reset {
			if err := txStore.Reset(ctx); err != nil {
				return errors.WithMessage(err, "resetting roster")
			}
		}
		return fixture.Apply(ctx, txStore)
	}); err != nil {
		return err
	}

	var missing = fixture.MissingPreferences()
	for _, pref := range missing {
		log.WithFields(log.Fields{
			"graduate": pref.GraduateID,
			"team":     pref.TeamID,
		}).Warn("fixture is missing a preference (allocation will fail until it's set)")
	}

	_, err = fmt.Fprintf(w, "Loaded %s teams, %s graduates, and %s preferences (%s missing).\n",
		humanize.Comma(int64(len(fixture.Teams))),
		humanize.Comma(int64(len(fixture.Graduates))),
		humanize.Comma(int64(len(fixture.PreferenceList()))),
		humanize.Comma(int64(len(missing))))
	return err
}
