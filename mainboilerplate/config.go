package mainboilerplate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

// ConfigRootEnv names an environment variable of an additional directory
// which is searched for an INI configuration file.
const ConfigRootEnv = "GRADALLOC_CONFIG_ROOT"

// MustParseConfig requires that the Parser parse from the combination of an
// optional INI file, configured environment bindings, and explicit flags.
// An INI file matching |configName| is searched for in, and the first found
// is used:
//   - The current working directory.
//   - ~/.config/gradalloc (under the user's $HOME or %UserProfile% directory).
//   - $GRADALLOC_CONFIG_ROOT
func MustParseConfig(parser *flags.Parser, configName string) {
	// Allow unknown options while parsing an INI file.
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown

	var iniParser = flags.NewIniParser(parser)

	for _, prefix := range configPrefixes() {
		var path = filepath.Join(prefix, configName)

		if err := iniParser.ParseFile(path); err == nil {
			log.WithField("path", path).Debug("parsed INI configuration")
			break
		} else if os.IsNotExist(err) {
			// Pass.
		} else {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// Restore original options for parsing argument flags.
	parser.Options = origOptions
	MustParseArgs(parser)
}

func configPrefixes() []string {
	var out = []string{"."}

	for _, home := range []string{os.Getenv("HOME"), os.Getenv("UserProfile")} {
		if home != "" {
			out = append(out, filepath.Join(home, ".config", "gradalloc"))
		}
	}
	if root := os.Getenv(ConfigRootEnv); root != "" {
		out = append(out, root)
	}
	return out
}

// MustParseArgs parses os.Args into the Parser, exiting the process on any
// input error. Errors in the definition of the configuration itself panic.
func MustParseArgs(parser *flags.Parser) {
	var _, err = parser.ParseArgs(os.Args[1:])
	if err == nil {
		return
	}
	var flagErr, ok = err.(*flags.Error)
	if !ok {
		Must(err, "fatal error")
	}

	switch flagErr.Type {
	case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
		panic(err)
	case flags.ErrCommandRequired:
		// go-flags prints only "Please specify one command of: ...".
		fmt.Fprintln(os.Stderr)
		writeUsage(parser)
	case flags.ErrHelp:
		if parser.Options&flags.PrintErrors == 0 {
			writeUsage(parser)
		}
	}
	// go-flags has already printed other input errors.
	os.Exit(1)
}

func writeUsage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
}

// AddPrintConfigCmd adds a "print-config" command, which writes the combined
// configuration of INI file, environment, and flags to stdout in INI format.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	parser.AddCommand("print-config", "Print combined configuration and exit", `
Parse the combined configuration from `+configName+`, environment variables,
and flags, and write it to stdout in INI format. Use print-config to check
that gradalloc is configured as intended.
`, &printConfig{Parser: parser, w: os.Stdout})
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
	w             io.Writer
}

func (p printConfig) Execute([]string) error {
	flags.NewIniParser(p.Parser).Write(p.w,
		flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}
