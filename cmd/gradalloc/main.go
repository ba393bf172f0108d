package main

import (
	"github.com/jessevdk/go-flags"
	"go.gradalloc.dev/core/cmd/gradalloc/gradalloccmd"
	mbp "go.gradalloc.dev/core/mainboilerplate"
)

func main() {
	var parser = flags.NewParser(gradalloccmd.Config, flags.Default)

	parser.LongDescription = `gradalloc places graduates onto teams.

See --help pages of each sub-command for documentation and usage examples.
Optionally configure gradalloc with a '` + gradalloccmd.IniFilename + `' file in the current working
directory, or with '~/.config/gradalloc/` + gradalloccmd.IniFilename + `'. Use the 'print-config'
sub-command to inspect the tool's current configuration.
`
	mbp.AddPrintConfigCmd(parser, gradalloccmd.IniFilename)
	mbp.Must(gradalloccmd.CommandRegistry.AddCommands("", parser.Command, false), "could not add subcommand")

	mbp.MustParseConfig(parser, gradalloccmd.IniFilename)
}
