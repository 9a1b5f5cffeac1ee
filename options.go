package redislock

import "time"

// Default option values, applied when neither the Lock nor its Registry
// specifies one.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 0
	DefaultDelay   = 100 * time.Millisecond
)

// Options configures a Lock's lease and retry behaviour.
//
// Zero values fall back to the Registry's defaults, which in turn fall back
// to the package defaults. Timeout bounds how long the store keeps the key
// before expiring it on its own; it is not a deadline on individual calls.
type Options struct {
	// Timeout is the lease duration applied to the stored key.
	Timeout time.Duration

	// Retries is the number of additional acquisition attempts after the
	// first failure. Acquire performs exactly Retries+1 conditional writes
	// against a contended key before giving up.
	Retries int

	// Delay is the wait between acquisition attempts. It is constant across
	// attempts: no jitter, no backoff growth.
	Delay time.Duration
}

// merge fills o's zero fields from d.
func (o Options) merge(d Options) Options {
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Retries <= 0 {
		o.Retries = d.Retries
	}
	if o.Delay <= 0 {
		o.Delay = d.Delay
	}
	return o
}

// builtinDefaults returns the package-level fallback options.
func builtinDefaults() Options {
	return Options{
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
		Delay:   DefaultDelay,
	}
}
