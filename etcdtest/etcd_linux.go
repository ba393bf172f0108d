//go:build linux

package etcdtest

import "syscall"

// getSysProcAttr TERMs the etcd process should the test binary die first
// (as on a test timeout panic).
func getSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
