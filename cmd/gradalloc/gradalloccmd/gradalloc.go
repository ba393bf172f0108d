// Package gradalloccmd implements the sub-commands of the gradalloc tool.
package gradalloccmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	mbp "go.gradalloc.dev/core/mainboilerplate"
	"go.gradalloc.dev/core/metrics"
)

// IniFilename is the name of the gradalloc INI configuration file.
const IniFilename = "gradalloc.ini"

var (
	// Config is the top-level configuration of gradalloc.
	Config = new(struct {
		Database    mbp.DatabaseConfig    `group:"Database" namespace:"database" env-namespace:"DATABASE"`
		Etcd        mbp.EtcdConfig        `group:"Etcd" namespace:"etcd" env-namespace:"ETCD"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Diagnostics" namespace:"diagnostics" env-namespace:"DIAGNOSTICS"`
	})
	// CommandRegistry of gradalloc sub-commands.
	CommandRegistry = mbp.NewCommandRegistry()
)

// startup initializes logging and diagnostics of a sub-command. It returns
// a closure which the sub-command must defer.
func startup() func() {
	var recoverFn = mbp.InitDiagnosticsAndRecover(Config.Diagnostics, metrics.RosterCollectors()...)
	mbp.InitLog(Config.Log)

	log.WithFields(log.Fields{
		"version":   mbp.Version,
		"buildDate": mbp.BuildDate,
		"args":      os.Args[1:],
	}).Debug("gradalloc starting")

	return recoverFn
}
