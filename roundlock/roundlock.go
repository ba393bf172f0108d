// Package roundlock provides mutual exclusion of allocation rounds across
// processes, using an Etcd lease and mutex. A Lock is held for as long as
// its lease is kept alive.
package roundlock

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.gradalloc.dev/core/task"
)

// ErrLockLost is returned by a queued Lock task if its lease could not be
// kept alive, and the Lock may now be held by another process.
var ErrLockLost = errors.New("round lock lease was lost")

// Lock is an acquired, exclusive lock of a key.
type Lock struct {
	Key string

	session *concurrency.Session
	mutex   *concurrency.Mutex
}

// Acquire the lock of the key, blocking until it's available or the Context
// is cancelled. The Lock is held under a lease of the given TTL.
func Acquire(ctx context.Context, etcd *clientv3.Client, key string, ttl time.Duration) (*Lock, error) {
	var session, err = concurrency.NewSession(etcd, concurrency.WithTTL(int(ttl.Seconds())))
	if err != nil {
		return nil, errors.WithMessage(err, "establishing Etcd lease")
	}
	var mutex = concurrency.NewMutex(session, key)

	if err = mutex.TryLock(ctx); err == concurrency.ErrLocked {
		log.WithField("key", key).Info("round lock is held by another process (will wait)")
		err = mutex.Lock(ctx)
	}
	if err != nil {
		_ = session.Close()
		return nil, errors.WithMessagef(err, "locking %s", key)
	}

	log.WithFields(log.Fields{
		"key":   mutex.Key(),
		"lease": session.Lease(),
	}).Debug("acquired round lock")

	return &Lock{Key: key, session: session, mutex: mutex}, nil
}

// Done returns a channel which is closed if the Lock's lease expires or is
// revoked.
func (l *Lock) Done() <-chan struct{} { return l.session.Done() }

// Release the Lock, and revoke its lease.
func (l *Lock) Release(ctx context.Context) error {
	if err := l.mutex.Unlock(ctx); err != nil {
		_ = l.session.Close()
		return errors.WithMessagef(err, "unlocking %s", l.Key)
	}
	return errors.WithMessage(l.session.Close(), "closing Etcd lease")
}

// QueueTasks queues a task which releases the Lock upon cancellation of the
// task.Group, or fails with ErrLockLost (cancelling the task.Group) if the
// Lock's lease is lost first.
func (l *Lock) QueueTasks(tasks *task.Group) {
	tasks.Queue("roundlock.Release", func() error {
		select {
		case <-tasks.Context().Done():
			return l.Release(context.Background())
		case <-l.Done():
			return ErrLockLost
		}
	})
}
