package core

import "time"

// Registry owns session lifetime and is the only place session state is
// written. All other components operate on snapshots passed to them under the
// per-session lock.
//
// Concurrency contract:
//   - WithLock serializes all mutation of a single session while unrelated
//     sessions proceed concurrently.
//   - The registry's internal map lock is held only for map operations
//     themselves, never across fn or any external call.
type Registry interface {
	// Create registers a new session for owner. It fails with
	// ErrDuplicateActiveSession if the owner already holds a non-terminal
	// session. The returned snapshot is a clone.
	Create(owner string, candidates []Candidate, maxQuestions int, now time.Time) (*Session, error)

	// Get returns a snapshot of the session, or ErrNotFound.
	Get(id string) (*Session, error)

	// WithLock acquires exclusive access to exactly one session's mutable
	// state for the duration of fn. The *Session passed to fn is the live
	// record; fn must not retain it past return. An error from fn is
	// returned unchanged.
	WithLock(id string, fn func(s *Session) error) error

	// Remove deletes the session. Removing an unknown id is a no-op.
	Remove(id string)

	// ListExpirable returns ids of non-terminal sessions whose inactivity
	// limit has elapsed at now, evaluated against lock-free snapshots. The
	// caller must re-check the predicate under WithLock before acting.
	ListExpirable(now time.Time, policy TimeoutPolicy) []string

	// ListRemovable returns ids of terminal sessions past the retention
	// window at now.
	ListRemovable(now time.Time, policy TimeoutPolicy) []string
}
