package mainboilerplate

import (
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// CommandRegistry collects sub-commands from the init functions of a
// command package, so that main can add them to its parser in one call.
// Commands are keyed on the dotted path of their parent ("" for the root).
type CommandRegistry map[string][]registeredCommand

type registeredCommand struct {
	name, short, long string
	data              interface{}
}

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry { return make(CommandRegistry) }

// AddCommand registers a command under the dotted path of its parent:
//
//	AddCommand("", "rounds", ...)      // gradalloc rounds
//	AddCommand("rounds", "prune", ...) // gradalloc rounds prune
func (cr CommandRegistry) AddCommand(parent, name, short, long string, data interface{}) {
	cr[parent] = append(cr[parent], registeredCommand{name: name, short: short, long: long, data: data})
}

// AddCommands adds commands registered under |parent| to |cmd|. If
// |recursive|, commands registered under each added command are added too.
func (cr CommandRegistry) AddCommands(parent string, cmd *flags.Command, recursive bool) error {
	for _, rc := range cr[parent] {
		var sub, err = cmd.AddCommand(rc.name, rc.short, strings.TrimSpace(rc.long), rc.data)
		if err != nil {
			return errors.WithMessagef(err, "adding command %q", rc.name)
		}
		if !recursive {
			continue
		}
		var path = rc.name
		if parent != "" {
			path = parent + "." + rc.name
		}
		if err = cr.AddCommands(path, sub, true); err != nil {
			return err
		}
	}
	return nil
}
