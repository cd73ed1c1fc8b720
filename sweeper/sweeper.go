// Package sweeper provides the background loop that force-expires inactive
// sessions and eventually removes terminal ones, so abandoned games are
// cleaned up even when no further events arrive for them. There is no timer
// per session: expiry is computed lazily on access by the orchestrator and
// periodically here, which keeps lifetime management simple and leaves no
// dangling timer handles behind.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/logging"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Interval between sweep ticks.
	Interval time.Duration
	// Policy holds inactivity limits plus the terminal retention window.
	Policy core.TimeoutPolicy
	// Clock is the time source used for every predicate evaluation.
	Clock core.Clock
	// Sink receives SessionExpired events for swept sessions.
	Sink core.Sink
	// Logger receives per-tick diagnostics.
	Logger logging.Logger
}

// Sweeper periodically scans the registry and expires sessions whose timeout
// has elapsed even absent new events. Each tick takes a lock-free snapshot of
// expiry candidates, then re-checks every candidate under its own session
// lock to avoid racing a concurrent user action that just refreshed the
// session. The sweeper never holds more than one session lock at a time.
type Sweeper struct {
	registry core.Registry
	interval time.Duration
	policy   core.TimeoutPolicy
	clock    core.Clock
	sink     core.Sink
	logger   logging.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New constructs a Sweeper over the given registry with optional overrides.
func New(reg core.Registry, optFns ...func(o *Options)) *Sweeper {
	opts := Options{
		Interval: 15 * time.Second,
		Policy:   core.DefaultTimeoutPolicy(),
		Clock:    core.SystemClock{},
		Sink:     core.NoOpSink{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Sweeper{
		registry: reg,
		interval: opts.Interval,
		policy:   opts.Policy,
		clock:    opts.Clock,
		sink:     opts.Sink,
		logger:   opts.Logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.Sweep()
			}
		}
	}()
}

// Stop terminates the loop and waits for the current tick to finish. It is
// idempotent.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// Sweep runs a single tick: expire overdue sessions, then drop terminal ones
// past the retention window. Per-session failures are logged and retried next
// tick, never fatal.
func (w *Sweeper) Sweep() (expired, removed int) {
	start := w.clock.Now()

	for _, id := range w.registry.ListExpirable(start, w.policy) {
		err := w.registry.WithLock(id, func(s *core.Session) error {
			now := w.clock.Now()
			// Re-check under the lock: a user action may have refreshed the
			// session between the scan and this point.
			if s.Phase.Terminal() || !w.policy.SessionExpired(s, now) {
				return nil
			}
			next, effects, err := core.Transition(s, core.EventTimeout)
			if err != nil {
				return err
			}
			s.Phase = next
			w.sink.Emit(core.NewPhaseChangedEvent(s.ID, next, now))
			for _, effect := range effects {
				if effect == core.EffectExpire {
					w.sink.Emit(core.NewSessionExpiredEvent(s.ID, now))
				}
			}
			expired++
			return nil
		})
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			w.logger.Warn("sweep: expiring session failed", "session_id", id, "error", err)
		}
	}

	now := w.clock.Now()
	for _, id := range w.registry.ListRemovable(now, w.policy) {
		w.registry.Remove(id)
		removed++
	}

	if expired > 0 || removed > 0 {
		w.logger.Info("sweep completed", "expired", expired, "removed", removed, "duration", w.clock.Now().Sub(start))
	}
	return expired, removed
}
