package mainboilerplate

import (
	_ "expvar" // Import for /debug/vars
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Port string `long:"port" env:"PORT" description:"Port for serving diagnostics over HTTP. Diagnostics are not served if not set"`
}

// InitDiagnosticsAndRecover registers the Collectors with Prometheus and,
// if a Port is configured, serves metrics and debugging handlers of the
// default HTTP mux:
//   - /debug/metrics serves Prometheus metrics.
//   - /debug/ready serves a liveness check.
//   - /debug/pprof and /debug/vars are served by their packages.
//
// It returns a closure which should be deferred, which recovers a panic
// and attempts to log a K8s termination message.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig, collectors ...prometheus.Collector) func() {
	prometheus.MustRegister(collectors...)

	if cfg.Port != "" {
		http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		http.Handle("/debug/metrics", promhttp.Handler())

		var ln, err = net.Listen("tcp", ":"+cfg.Port)
		Must(err, "failed to bind diagnostics port", "port", cfg.Port)

		go func() {
			if err := http.Serve(ln, nil); err != nil {
				log.WithField("err", err).Warn("diagnostics server exited")
			}
		}()
		log.WithField("addr", ln.Addr().String()).Info("serving diagnostics")
	}

	return func() {
		if r := recover(); r != nil {
			// Make a best effort attempt to write a termination message.
			// Bug: https://github.com/kubernetes/kubernetes/issues/31839
			if f, err := os.OpenFile(k8sTerminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

const (
	// k8sTerminationLog is the location to write a termination message for
	// Kubernetes to retrieve.
	//
	// Link: https://kubernetes.io/docs/tasks/debug-application-cluster/determine-reason-pod-failure/#setting-the-termination-log-file
	k8sTerminationLog = "/dev/termination-log"
)
