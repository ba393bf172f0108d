// Package mainboilerplate contains shared boilerplate for gradalloc programs:
// configuration parsing, logging, diagnostics, and construction of Etcd and
// database clients. Methods are narrowly scoped so that callers needn't buy
// into an all-or-nothing approach.
package mainboilerplate

import log "github.com/sirupsen/logrus"

// Version and BuildDate of the program, set at build time with:
//
//	go build -ldflags "-X go.gradalloc.dev/core/mainboilerplate.Version=..."
var (
	Version   = "development"
	BuildDate = "unknown"
)

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
