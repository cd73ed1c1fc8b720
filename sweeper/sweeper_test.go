package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/internal/testutil"
	"github.com/hupe1980/guesswho/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testCandidates = []core.Candidate{{ID: "p1"}, {ID: "p2"}}

func TestSweep_ExpiresOverdueSessions(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	policy := core.DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(base)
	sink := testutil.NewCollectorSink()

	stale, err := reg.Create("alice", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)
	fresh, err := reg.Create("bob", testCandidates, 20, base)
	require.NoError(t, err)

	w := New(reg, func(o *Options) {
		o.Policy = policy
		o.Clock = clock
		o.Sink = sink
	})

	expired, removed := w.Sweep()
	assert.Equal(t, 1, expired)
	assert.Equal(t, 0, removed)

	got, err := reg.Get(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseExpired, got.Phase)

	got, err = reg.Get(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseAnalyzing, got.Phase)

	events := sink.EventsOfType(core.EventTypeSessionExpired)
	require.Len(t, events, 1)
	assert.Equal(t, stale.ID, events[0].SessionID)

	// A second sweep finds nothing new.
	expired, removed = w.Sweep()
	assert.Equal(t, 0, expired)
	assert.Equal(t, 0, removed)
}

func TestSweep_RemovesTerminalSessionsPastRetention(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	policy := core.DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(base)

	sess, err := reg.Create("alice", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, reg.WithLock(sess.ID, func(s *core.Session) error {
		s.Phase = core.PhaseCompleted
		return nil
	}))

	w := New(reg, func(o *Options) {
		o.Policy = policy
		o.Clock = clock
	})

	expired, removed := w.Sweep()
	assert.Equal(t, 0, expired)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Get(sess.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSweep_RechecksUnderLock(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	policy := core.DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(base)
	sink := testutil.NewCollectorSink()

	// Created stale, but refreshed before the sweeper reaches it: the
	// in-lock re-check must spare the session even though the scan listed it.
	sess, err := reg.Create("alice", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, reg.WithLock(sess.ID, func(s *core.Session) error {
		s.LastActivityAt = base
		return nil
	}))

	w := New(reg, func(o *Options) {
		o.Policy = policy
		o.Clock = clock
		o.Sink = sink
	})

	expired, _ := w.Sweep()
	assert.Equal(t, 0, expired)

	got, err := reg.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseAnalyzing, got.Phase)
	assert.Empty(t, sink.Events())
}

func TestSweeper_StartAndStop(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(base)
	sink := testutil.NewCollectorSink()

	stale, err := reg.Create("alice", testCandidates, 20, base.Add(-10*time.Minute))
	require.NoError(t, err)

	w := New(reg, func(o *Options) {
		o.Interval = 5 * time.Millisecond
		o.Clock = clock
		o.Sink = sink
	})

	w.Start(context.Background())

	require.Eventually(t, func() bool {
		got, err := reg.Get(stale.ID)
		return err == nil && got.Phase == core.PhaseExpired
	}, time.Second, time.Millisecond)

	w.Stop()
	w.Stop() // idempotent
}
