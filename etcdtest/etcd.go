// Package etcdtest runs an `etcd` server process for the duration of a
// package's tests, and provides a client to it. Tests are skipped if no
// `etcd` binary is on the PATH.
package etcdtest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var (
	server *exec.Cmd
	client *clientv3.Client
)

// TestClient returns a client of the test Etcd server, or skips the test if
// there is no server. The keyspace must be empty when TestClient is called,
// and is emptied again when the test completes.
func TestClient(t testing.TB) *clientv3.Client {
	if client == nil {
		t.Skip("etcd is not available")
	}
	if err := requireEmpty(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if _, err := client.Delete(context.Background(), "", clientv3.WithPrefix()); err != nil {
			t.Errorf("cleaning up etcd: %v", err)
		}
	})
	return client
}

func requireEmpty(ctx context.Context) error {
	var resp, err = client.Get(ctx, "", clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return err
	} else if resp.Count != 0 {
		return fmt.Errorf("etcd has %d keys; did a previous test not clean up?", resp.Count)
	}
	return nil
}

// TestMainWithEtcd starts an Etcd server for the tests of a package,
// and is called from the package's TestMain:
//
//	func TestMain(m *testing.M) { etcdtest.TestMainWithEtcd(m) }
func TestMainWithEtcd(m *testing.M) {
	if _, err := exec.LookPath("etcd"); err != nil {
		fmt.Fprintln(os.Stderr, "etcd not found on PATH; tests requiring it will be skipped")
		os.Exit(m.Run())
	}
	os.Exit(runWithEtcd(m))
}

func runWithEtcd(m *testing.M) int {
	var dir, err = os.MkdirTemp("", "etcdtest")
	if err != nil {
		return fatal("creating temp directory", err)
	}
	defer os.RemoveAll(dir)

	server = exec.Command("etcd",
		"--data-dir", filepath.Join(dir, "data"),
		"--listen-peer-urls", "unix://peer.sock:0",
		"--listen-client-urls", "unix://client.sock:0",
		"--advertise-client-urls", "unix://client.sock:0",
	)
	server.Dir = dir
	server.Env = append(os.Environ(), "ETCD_LOG_LEVEL=error", "ETCD_LOGGER=zap")
	server.Stdout, server.Stderr = os.Stdout, os.Stderr
	server.SysProcAttr = getSysProcAttr()

	if err = server.Start(); err != nil {
		return fatal("starting etcd", err)
	}
	defer func() {
		_ = server.Process.Signal(syscall.SIGTERM)
		_ = server.Wait()
	}()

	if client, err = clientv3.New(clientv3.Config{
		Endpoints:   []string{"unix://" + dir + "/client.sock:0"},
		DialTimeout: 5 * time.Second,
	}); err != nil {
		return fatal("building etcd client", err)
	}
	defer client.Close()

	// Wait for the server to begin serving.
	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for err = requireEmpty(ctx); err != nil; err = requireEmpty(ctx) {
		select {
		case <-ctx.Done():
			return fatal("awaiting etcd", err)
		case <-time.After(50 * time.Millisecond):
		}
	}
	return m.Run()
}

func fatal(msg string, err error) int {
	fmt.Fprintf(os.Stderr, "etcdtest: %s: %v\n", msg, err)
	return 1
}
