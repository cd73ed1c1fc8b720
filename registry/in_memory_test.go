package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/guesswho/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ core.Registry = (*InMemoryRegistry)(nil)

var testCandidates = []core.Candidate{{ID: "p1"}, {ID: "p2"}}

func TestInMemoryRegistry_CreateAndGet(t *testing.T) {
	r := NewInMemoryRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, core.PhaseAnalyzing, sess.Phase)

	got, err := r.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	// Get returns a snapshot, not the stored session.
	got.Owner = "mallory"
	again, err := r.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Owner)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInMemoryRegistry_DuplicateOwner(t *testing.T) {
	r := NewInMemoryRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)

	_, err = r.Create("alice", testCandidates, 20, now)
	assert.ErrorIs(t, err, core.ErrDuplicateActiveSession)

	// A different owner is unaffected.
	_, err = r.Create("bob", testCandidates, 20, now)
	require.NoError(t, err)

	// Once the first session is terminal the owner may start a new one.
	require.NoError(t, r.WithLock(first.ID, func(s *core.Session) error {
		s.Phase = core.PhaseCompleted
		return nil
	}))
	_, err = r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)
}

func TestInMemoryRegistry_RemoveClearsOwnerIndex(t *testing.T) {
	r := NewInMemoryRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)

	r.Remove(sess.ID)
	assert.Equal(t, 0, r.Len())

	_, err = r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)

	// Removing an unknown id is a no-op.
	r.Remove("missing")
}

func TestInMemoryRegistry_WithLockSerializes(t *testing.T) {
	r := NewInMemoryRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = r.WithLock(sess.ID, func(s *core.Session) error {
					s.QuestionCount++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	got, err := r.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, got.QuestionCount)
}

func TestInMemoryRegistry_ShadowRefreshOnError(t *testing.T) {
	r := NewInMemoryRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)

	// Mutations made before a failing fn must still reach the shadow the
	// scans read.
	wantErr := assert.AnError
	err = r.WithLock(sess.ID, func(s *core.Session) error {
		s.Phase = core.PhaseExpired
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// The now-terminal shadow clears the way for a new session.
	_, err = r.Create("alice", testCandidates, 20, now)
	require.NoError(t, err)
}

func TestInMemoryRegistry_ListExpirableAndRemovable(t *testing.T) {
	r := NewInMemoryRegistry()
	policy := core.DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh, err := r.Create("alice", testCandidates, 20, base)
	require.NoError(t, err)

	stale, err := r.Create("bob", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)

	done, err := r.Create("carol", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, r.WithLock(done.ID, func(s *core.Session) error {
		s.Phase = core.PhaseCompleted
		return nil
	}))

	expirable := r.ListExpirable(base, policy)
	assert.Equal(t, []string{stale.ID}, expirable)

	removable := r.ListRemovable(base, policy)
	assert.Equal(t, []string{done.ID}, removable)

	_ = fresh
}
