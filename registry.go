package redislock

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Registry owns the shared state behind Lock construction: one Store
// adapter per underlying Redis client, the set of currently held locks, and
// the default Options applied to new Locks.
//
// A Registry is intended to be created once by the composition root and
// shared by everything that builds Locks in the process. All methods are
// safe for concurrent use. Adapter entries live for the Registry's
// lifetime; the number of distinct clients in a process is small and
// long-lived, so nothing is ever evicted.
type Registry struct {
	defaults Options
	stores   *xsync.MapOf[*redis.Client, Store]
	held     *xsync.MapOf[string, *Lock]
}

// NewRegistry creates a Registry. Zero fields in defaults fall back to the
// package defaults (DefaultTimeout, DefaultRetries, DefaultDelay).
func NewRegistry(defaults Options) *Registry {
	return &Registry{
		defaults: defaults.merge(builtinDefaults()),
		stores:   xsync.NewMapOf[*redis.Client, Store](),
		held:     xsync.NewMapOf[string, *Lock](),
	}
}

// NewLock builds a Lock over the given client with a fresh unique id.
//
// The client is adapted to a Store at most once per Registry no matter how
// many Locks are built on it; later calls reuse the existing adapter. Zero
// fields in opts fall back to the Registry defaults. No network I/O
// happens here.
func (r *Registry) NewLock(client *redis.Client, opts Options) *Lock {
	store, _ := r.stores.LoadOrCompute(client, func() Store {
		return newRedisStore(client)
	})
	return &Lock{
		id:       uuid.NewString(),
		registry: r,
		store:    store,
		opts:     opts.merge(r.defaults),
	}
}

// Acquired returns a snapshot of the locks currently held through this
// Registry, keyed by lock id. It is a read path for diagnostic and cleanup
// tooling; mutating the map has no effect on the Registry.
func (r *Registry) Acquired() map[string]*Lock {
	out := make(map[string]*Lock)
	r.held.Range(func(id string, l *Lock) bool {
		out[id] = l
		return true
	})
	return out
}

func (r *Registry) trackAcquired(l *Lock) {
	r.held.Store(l.id, l)
}

func (r *Registry) dropAcquired(l *Lock) {
	r.held.Delete(l.id)
}
