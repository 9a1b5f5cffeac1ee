// Package redislock implements client-side distributed mutual exclusion
// over Redis. A Lock is a single-use handle on a named resource: it writes
// its unique id under the resource key with SET NX and a TTL, retries a
// bounded number of times on contention, and releases through a server-side
// script that deletes the key only when the stored value still matches the
// id. Mutual exclusion is delegated entirely to the store's atomic
// conditional write and atomic script execution; the client holds no locks
// of its own.
//
// Locks are built through a Registry, which deduplicates store adapters per
// underlying client and tracks which locks are currently held.
package redislock

import (
	"context"
	"sync"
	"time"
)

// State identifies where a Lock is in its acquire/release cycle.
type State int

const (
	// StateIdle means the Lock holds nothing: it was never acquired, or its
	// last release completed (successfully or not).
	StateIdle State = iota

	// StateAcquiring means an Acquire call is in flight.
	StateAcquiring

	// StateLocked means the store confirmed the conditional write and the
	// Lock holds its key until released or expired server-side.
	StateLocked

	// StateReleasing means a Release call is in flight.
	StateReleasing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateLocked:
		return "locked"
	case StateReleasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// Lock is a handle representing one attempt to hold a named exclusive
// resource. Its id is generated at construction and never changes; the id
// is both the value stored under the key and the credential required to
// delete it.
//
// A Lock is single-use per acquisition cycle: Acquire on a locked handle
// fails with ErrAlreadyHeld, and a released handle may acquire again. The
// store's TTL expiry is a silent invalidation the Lock is not informed of;
// there is no renewal heartbeat, so a caller holding a lock longer than its
// Timeout can lose exclusivity without noticing until Release reports it.
type Lock struct {
	id       string
	registry *Registry
	store    Store
	opts     Options

	mu    sync.Mutex
	state State
	key   string
}

// ID returns the Lock's ownership token.
func (l *Lock) ID() string {
	return l.id
}

// Key returns the resource currently held, or "" if none.
func (l *Lock) Key() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

// State returns the Lock's current state.
func (l *Lock) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire attempts to become the exclusive holder of key.
//
// It issues a conditional write (set key to the Lock's id with the
// configured lease, only if absent). On contention it waits Delay and
// retries, up to Retries additional attempts, then fails with
// *AcquisitionError. Attempts are strictly sequential: one outstanding
// write at a time, constant delay between them.
//
// Transport errors abort the loop immediately and propagate unmodified;
// only contention is retried. Cancelling ctx during an inter-attempt wait
// returns ctx.Err(). If the Lock is not idle, Acquire fails with
// ErrAlreadyHeld before any I/O.
func (l *Lock) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return ErrAlreadyHeld
	}
	l.state = StateAcquiring
	l.mu.Unlock()

	remaining := l.opts.Retries
	for {
		ok, err := l.store.SetIfAbsent(ctx, key, l.id, l.opts.Timeout)
		if err != nil {
			l.setIdle()
			return err
		}
		if ok {
			l.mu.Lock()
			l.state = StateLocked
			l.key = key
			l.mu.Unlock()
			l.registry.trackAcquired(l)
			return nil
		}
		if remaining <= 0 {
			l.setIdle()
			return &AcquisitionError{Key: key}
		}
		remaining--

		select {
		case <-ctx.Done():
			l.setIdle()
			return ctx.Err()
		case <-time.After(l.opts.Delay):
		}
	}
}

// Release gives up the held key, but only if this Lock is still the
// recorded owner.
//
// The ownership check and delete run as one atomic server-side script. If
// the script reports that the stored value no longer matches the Lock's id
// (the lease expired, or another holder took over), Release clears the
// Lock's local state anyway and returns *ReleaseError: the Lock cannot
// claim ownership either way. Calling Release on a Lock that is not locked
// fails with *ReleaseError before any I/O.
//
// A transport error leaves the Lock locked, since the delete's outcome is
// unknown; the error propagates unmodified and Release may be retried.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateLocked {
		l.mu.Unlock()
		return &ReleaseError{}
	}
	key := l.key
	l.state = StateReleasing
	l.mu.Unlock()

	deleted, err := l.store.DelIfEqual(ctx, key, l.id)
	if err != nil {
		l.mu.Lock()
		l.state = StateLocked
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.state = StateIdle
	l.key = ""
	l.mu.Unlock()
	l.registry.dropAcquired(l)

	if !deleted {
		return &ReleaseError{Key: key}
	}
	return nil
}

func (l *Lock) setIdle() {
	l.mu.Lock()
	l.state = StateIdle
	l.mu.Unlock()
}
