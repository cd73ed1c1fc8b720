package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/guesswho/core"
)

// record pairs a session with its per-session lock plus a lock-free shadow of
// the fields the sweeper scans. The shadow (phase, lastActivity) is refreshed
// by the registry after every locked mutation, so sweep scans never contend
// with an operation that is holding the session lock across an oracle call.
type record struct {
	mu   sync.Mutex
	sess *core.Session

	phase        atomic.Int32
	activityNano atomic.Int64
}

func (r *record) refreshShadow() {
	r.phase.Store(int32(r.sess.Phase))
	r.activityNano.Store(r.sess.LastActivityAt.UnixNano())
}

func (r *record) shadow() (core.Phase, time.Time) {
	return core.Phase(r.phase.Load()), time.Unix(0, r.activityNano.Load())
}

// InMemoryRegistry is a volatile core.Registry implementation storing
// sessions in a process local map. The map lock is held only for map
// operations themselves; per-session mutation is serialized by each record's
// own mutex, so unrelated sessions never block each other.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*record
	byOwner  map[string]string // owner -> session id of last created session
}

// NewInMemoryRegistry constructs an empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		sessions: make(map[string]*record),
		byOwner:  make(map[string]string),
	}
}

// Create registers a new session for owner, enforcing the one-active-session
// invariant via the owner index. The terminal check reads the record's shadow
// so the map lock is never held while waiting on a session lock.
func (r *InMemoryRegistry) Create(owner string, candidates []core.Candidate, maxQuestions int, now time.Time) (*core.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevID, ok := r.byOwner[owner]; ok {
		if prev, ok := r.sessions[prevID]; ok {
			if phase, _ := prev.shadow(); !phase.Terminal() {
				return nil, core.ErrDuplicateActiveSession
			}
		}
	}

	sess := core.NewSession(owner, candidates, maxQuestions, now)
	rec := &record{sess: sess}
	rec.refreshShadow()
	r.sessions[sess.ID] = rec
	r.byOwner[owner] = sess.ID

	return sess.Clone(), nil
}

// Get returns a snapshot of the session, or core.ErrNotFound.
func (r *InMemoryRegistry) Get(id string) (*core.Session, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.sess.Clone(), nil
}

// WithLock runs fn with exclusive access to the session. The shadow is
// refreshed after fn returns, regardless of fn's error, so partial mutations
// made before a failure are still visible to sweep scans.
func (r *InMemoryRegistry) WithLock(id string, fn func(s *core.Session) error) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	err = fn(rec.sess)
	rec.refreshShadow()
	return err
}

// Remove deletes the session and, if it is the owner's current session,
// clears the owner index entry.
func (r *InMemoryRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if r.byOwner[rec.sess.Owner] == id {
		delete(r.byOwner, rec.sess.Owner)
	}
}

// ListExpirable scans record shadows without touching any session lock.
func (r *InMemoryRegistry) ListExpirable(now time.Time, policy core.TimeoutPolicy) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, rec := range r.sessions {
		phase, activity := rec.shadow()
		if !phase.Terminal() && policy.Expired(phase, activity, now) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ListRemovable scans record shadows for terminal sessions past retention.
func (r *InMemoryRegistry) ListRemovable(now time.Time, policy core.TimeoutPolicy) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, rec := range r.sessions {
		phase, activity := rec.shadow()
		if policy.Removable(phase, activity, now) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of stored sessions (terminal included).
func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryRegistry) lookup(id string) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec, nil
}
