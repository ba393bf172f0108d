package mainboilerplate

import (
	"context"
	"crypto/tls"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
)

// EtcdConfig configures the Etcd client and the lease under which an
// allocation round holds its lock. If Address is empty, Etcd isn't used.
type EtcdConfig struct {
	Address       string        `long:"address" env:"ADDRESS" description:"Etcd service address endpoint. If not set, rounds run without a lock"`
	CertFile      string        `long:"cert-file" env:"CERT_FILE" default:"" description:"Path to the client TLS certificate"`
	CertKeyFile   string        `long:"cert-key-file" env:"CERT_KEY_FILE" default:"" description:"Path to the client TLS private key"`
	TrustedCAFile string        `long:"trusted-ca-file" env:"TRUSTED_CA_FILE" default:"" description:"Path to the trusted CA for client verification of server certificates"`
	LeaseTTL      time.Duration `long:"lease" env:"LEASE_TTL" default:"20s" description:"Time-to-live of Etcd lease"`
	LockKey       string        `long:"lock-key" env:"LOCK_KEY" default:"/gradalloc/round-lock" description:"Etcd key prefix of the allocation round lock"`
}

// MustDial dials Etcd, blocking until a first connection succeeds.
func (c *EtcdConfig) MustDial() *clientv3.Client {
	var endpoint, tlsConfig = c.mustEndpoint()

	var slow = time.AfterFunc(time.Second, func() {
		log.WithField("endpoint", endpoint).Warn("still dialing Etcd (is the network okay?)")
	})
	var trial, err = clientv3.New(clientv3.Config{
		Endpoints:   []string{endpoint},
		DialOptions: []grpc.DialOption{grpc.WithBlock()},
		TLS:         tlsConfig,
	})
	slow.Stop()
	Must(err, "failed to dial Etcd", "endpoint", endpoint)
	_ = trial.Close()

	// Timeouts are fractions of LeaseTTL, so that member endpoints are
	// cycled through before the round lock's lease can expire.
	etcd, err := clientv3.New(clientv3.Config{
		Endpoints:            []string{endpoint},
		DialTimeout:          c.LeaseTTL / 20,
		DialKeepAliveTime:    c.LeaseTTL / 4,
		DialKeepAliveTimeout: c.LeaseTTL / 4,
		RejectOldCluster:     true,
		TLS:                  tlsConfig,
	})
	Must(err, "failed to build Etcd client")
	Must(etcd.Sync(context.Background()), "initial Etcd endpoint sync failed")

	log.WithFields(log.Fields{"endpoints": etcd.Endpoints()}).Debug("dialed Etcd")
	return etcd
}

// mustEndpoint returns the client endpoint of Address, and its TLS
// configuration if Address is https.
func (c *EtcdConfig) mustEndpoint() (string, *tls.Config) {
	var addr, err = url.Parse(c.Address)
	Must(err, "failed to parse Etcd address", "address", c.Address)

	switch addr.Scheme {
	case "https":
		var tlsConfig *tls.Config
		tlsConfig, err = transport.TLSInfo{
			CertFile:      c.CertFile,
			KeyFile:       c.CertKeyFile,
			TrustedCAFile: c.TrustedCAFile,
		}.ClientConfig()
		Must(err, "failed to build Etcd TLS config")
		return addr.String(), tlsConfig
	case "unix":
		// clientv3 expects unix:// endpoints without a host.
		addr.Host = ""
	}
	return addr.String(), nil
}
