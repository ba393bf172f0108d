package roundlock

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.gradalloc.dev/core/etcdtest"
	"go.gradalloc.dev/core/task"
)

func TestAcquireIsExclusive(t *testing.T) {
	var etcd, ctx = etcdtest.TestClient(t), context.Background()

	var first, err = Acquire(ctx, etcd, "/gradalloc/round-lock", time.Minute)
	require.NoError(t, err)

	// A second Acquire blocks until the first is released.
	var timeoutCtx, cancel = context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err = Acquire(timeoutCtx, etcd, "/gradalloc/round-lock", time.Minute)
	require.Equal(t, context.DeadlineExceeded, errors.Cause(err))

	var acquired = make(chan *Lock)
	var acquireErr error

	go func() {
		var second *Lock
		second, acquireErr = Acquire(ctx, etcd, "/gradalloc/round-lock", time.Minute)
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("unexpected Acquire of held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Release(ctx))
	var second = <-acquired
	require.NoError(t, acquireErr)
	require.NoError(t, second.Release(ctx))
}

func TestQueuedTaskReleasesOnCancel(t *testing.T) {
	var etcd, ctx = etcdtest.TestClient(t), context.Background()

	var lock, err = Acquire(ctx, etcd, "/gradalloc/round-lock", time.Minute)
	require.NoError(t, err)

	var tasks = task.NewGroup(ctx)
	lock.QueueTasks(tasks)
	tasks.GoRun()

	tasks.Cancel()
	require.NoError(t, tasks.Wait())

	// The lock key was removed, and the lock is again available.
	resp, err := etcd.Get(ctx, "/gradalloc/round-lock", clientv3.WithPrefix())
	require.NoError(t, err)
	require.Zero(t, resp.Count)
}

func TestQueuedTaskFailsOnLostLease(t *testing.T) {
	var etcd, ctx = etcdtest.TestClient(t), context.Background()

	var lock, err = Acquire(ctx, etcd, "/gradalloc/round-lock", time.Second)
	require.NoError(t, err)

	var tasks = task.NewGroup(ctx)
	lock.QueueTasks(tasks)
	tasks.GoRun()

	_, err = etcd.Revoke(ctx, lock.session.Lease())
	require.NoError(t, err)

	require.Equal(t, ErrLockLost, errors.Cause(tasks.Wait()))
	require.Error(t, tasks.Context().Err())
}

func TestMain(m *testing.M) { etcdtest.TestMainWithEtcd(m) }
