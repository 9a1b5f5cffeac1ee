package redislock

import (
	"errors"
	"fmt"
)

// ErrAlreadyHeld is returned by Acquire when the Lock already holds a key.
// A Lock is single-use per acquisition cycle; release it (or create a new
// Lock) before acquiring again. No network call is made.
var ErrAlreadyHeld = errors.New("redislock: lock already held")

// AcquisitionError reports that the key remained held by another owner for
// the entire retry budget.
type AcquisitionError struct {
	Key string
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("redislock: could not acquire lock on %q", e.Key)
}

// ReleaseError reports a release that removed nothing from the store:
// either the Lock held no key, or the key had already expired or been
// reassigned to another holder. In the latter case the Lock's local state
// is cleared regardless, since it can no longer claim ownership.
type ReleaseError struct {
	// Key is the resource the Lock believed it held, or empty if the Lock
	// was not locked when Release was called.
	Key string
}

func (e *ReleaseError) Error() string {
	if e.Key == "" {
		return "redislock: lock not held"
	}
	return fmt.Sprintf("redislock: could not release lock on %q", e.Key)
}
