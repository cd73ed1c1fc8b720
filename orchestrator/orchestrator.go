package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/logging"
	"github.com/hupe1980/guesswho/oracle"
	"github.com/hupe1980/guesswho/registry"
	"github.com/hupe1980/guesswho/vision"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Registry owns session storage and per-session locking.
	Registry core.Registry
	// Oracle produces the next question or guess.
	Oracle oracle.Oracle
	// Analyzer extracts candidates from submitted images.
	Analyzer vision.Analyzer
	// Sink receives outbound events.
	Sink core.Sink
	// Clock is the time source for all timeout logic.
	Clock core.Clock
	// Policy holds the per-phase inactivity limits.
	Policy core.TimeoutPolicy
	// MaxQuestions caps the question budget of newly created sessions.
	MaxQuestions int
	// Logger receives structured diagnostics.
	Logger logging.Logger
}

// Orchestrator executes the guessing protocol. Public methods are safe for
// concurrent use; operations bound to the same session are serialized by the
// registry's per-session lock.
type Orchestrator struct {
	registry     core.Registry
	oracle       oracle.Oracle
	analyzer     vision.Analyzer
	sink         core.Sink
	clock        core.Clock
	policy       core.TimeoutPolicy
	maxQuestions int
	logger       logging.Logger

	// inflight tracks the cancel function of each session's outstanding
	// oracle call so Cancel can interrupt it without waiting for the lock.
	inflight   map[string]context.CancelFunc
	inflightMu sync.Mutex
}

// New constructs an Orchestrator with optional overrides. Unset collaborators
// default to in-memory / mock implementations suitable for tests and demos.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Registry:     registry.NewInMemoryRegistry(),
		Oracle:       oracle.NewMockOracle(),
		Analyzer:     vision.NewMockAnalyzer(),
		Sink:         core.NoOpSink{},
		Clock:        core.SystemClock{},
		Policy:       core.DefaultTimeoutPolicy(),
		MaxQuestions: 20,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		registry:     opts.Registry,
		oracle:       opts.Oracle,
		analyzer:     opts.Analyzer,
		sink:         opts.Sink,
		clock:        opts.Clock,
		policy:       opts.Policy,
		maxQuestions: opts.MaxQuestions,
		logger:       opts.Logger,
		inflight:     make(map[string]context.CancelFunc),
	}
}

// Registry exposes the underlying registry (for the sweeper and transport).
func (o *Orchestrator) Registry() core.Registry { return o.registry }

// Policy exposes the timeout policy (for the sweeper).
func (o *Orchestrator) Policy() core.TimeoutPolicy { return o.policy }

// StartSession analyzes the image and creates a session for owner. It fails
// with core.ErrNoCandidatesDetected if fewer than two candidates are found:
// the game requires at least two to be meaningful. On success the session has
// already advanced to PhaseNaming.
func (o *Orchestrator) StartSession(ctx context.Context, owner string, image []byte) (string, error) {
	start := o.clock.Now()
	candidates, err := o.analyzer.Analyze(ctx, image)
	if err != nil {
		o.logger.Error("analyzer call failed", "owner", owner, "error", err)
		return "", err
	}
	o.logger.Debug("analyzer returned candidates", "owner", owner, "count", len(candidates), "duration", o.clock.Now().Sub(start))

	if len(candidates) < 2 {
		return "", fmt.Errorf("%w: got %d", core.ErrNoCandidatesDetected, len(candidates))
	}

	sess, err := o.registry.Create(owner, candidates, o.maxQuestions, o.clock.Now())
	if err != nil {
		return "", err
	}

	err = o.registry.WithLock(sess.ID, func(s *core.Session) error {
		return o.apply(s, core.EventCandidatesReady, nil, o.sink.Emit)
	})
	if err != nil {
		return "", o.fail(sess.ID, err)
	}

	o.logger.Info("session started", "session_id", sess.ID, "owner", owner, "candidates", len(candidates))

	return sess.ID, nil
}

// AssignName sets a candidate's display name. Valid only during PhaseNaming;
// names must be non-empty and letters only. Renaming an already-named
// candidate is allowed while the phase lasts. Once every candidate is named
// the session moves to PhasePlaying and the first question is requested from
// the oracle; if that request fails the session stays in PhaseNaming with the
// name committed, and re-assigning any name retries it.
func (o *Orchestrator) AssignName(ctx context.Context, sessionID, candidateID, name string) error {
	return o.fail(sessionID, o.registry.WithLock(sessionID, func(s *core.Session) error {
		now := o.clock.Now()
		if err := o.lazyExpire(s, now); err != nil {
			return err
		}
		if s.Phase != core.PhaseNaming {
			return fmt.Errorf("%w: assign_name in phase %s", core.ErrInvalidTransition, s.Phase)
		}
		if !validName(name) {
			return fmt.Errorf("%w: %q", core.ErrInvalidName, name)
		}
		cand, ok := s.Candidate(candidateID)
		if !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownCandidate, candidateID)
		}

		cand.Name = name
		s.LastActivityAt = now

		if !s.AllNamed() {
			return nil
		}

		// All named: enter the question loop. The transition commits only if
		// the first oracle request succeeds.
		snap := s.Clone()
		pending := &eventBuffer{}
		if err := o.apply(s, core.EventNamesAssigned, nil, pending.add); err != nil {
			restore(s, snap)
			return err
		}
		cancelled, err := o.nextStep(ctx, s, now, pending.add)
		if err != nil {
			// The snapshot was taken after the name was set, so the name
			// itself stays committed across the rollback.
			restore(s, snap)
			return err
		}
		if !cancelled {
			s.LastActivityAt = now
		}
		pending.flush(o.sink)
		return nil
	}))
}

// SubmitAnswer records the user's answer to the pending question and asks the
// oracle for the next step. Valid only in PhasePlaying while a question is
// awaiting its answer. On oracle failure all staged changes (the recorded
// answer included) are rolled back so the same answer can be retried.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, sessionID string, answer core.Answer) error {
	return o.fail(sessionID, o.registry.WithLock(sessionID, func(s *core.Session) error {
		now := o.clock.Now()
		if err := o.lazyExpire(s, now); err != nil {
			return err
		}
		if s.Phase != core.PhasePlaying || s.PendingQuestion == nil {
			return fmt.Errorf("%w: submit_answer in phase %s", core.ErrInvalidTransition, s.Phase)
		}
		if _, ok := core.ParseAnswer(string(answer)); !ok {
			return fmt.Errorf("%w: answer %q", core.ErrInvalidTransition, answer)
		}

		snap := s.Clone()
		s.History = append(s.History, core.QA{Question: *s.PendingQuestion, Answer: answer})
		s.PendingQuestion = nil

		pending := &eventBuffer{}
		cancelled, err := o.nextStep(ctx, s, now, pending.add)
		if err != nil {
			restore(s, snap)
			return err
		}
		if !cancelled {
			s.LastActivityAt = now
		}
		pending.flush(o.sink)
		return nil
	}))
}

// SubmitGuessVerification resolves a pending guess. Valid only in
// PhaseGuessVerify. A confirmed guess completes the game with a summary of
// the guessed candidate. A rejected guess returns to PhasePlaying while
// budget remains (requesting the next step immediately) or completes the game
// unsolved once the budget is exhausted. Budget exhaustion never expires a
// session.
func (o *Orchestrator) SubmitGuessVerification(ctx context.Context, sessionID string, correct bool) error {
	return o.fail(sessionID, o.registry.WithLock(sessionID, func(s *core.Session) error {
		now := o.clock.Now()
		if err := o.lazyExpire(s, now); err != nil {
			return err
		}
		if s.Phase != core.PhaseGuessVerify || s.PendingGuess == nil {
			return fmt.Errorf("%w: guess_verification in phase %s", core.ErrInvalidTransition, s.Phase)
		}

		if correct {
			cand, ok := s.Candidate(*s.PendingGuess)
			if !ok {
				return fmt.Errorf("%w: pending guess %q", core.ErrUnknownCandidate, *s.PendingGuess)
			}
			summary := &core.Summary{
				Candidate:     *cand,
				QuestionsUsed: s.QuestionCount,
				WrongGuesses:  s.WrongGuesses,
			}
			if err := o.apply(s, core.EventGuessConfirmed, summary, o.sink.Emit); err != nil {
				return err
			}
			s.PendingGuess = nil
			s.LastActivityAt = now
			return nil
		}

		snap := s.Clone()
		s.WrongGuesses++
		s.PendingGuess = nil
		pending := &eventBuffer{}
		if err := o.apply(s, core.EventGuessRejected, nil, pending.add); err != nil {
			restore(s, snap)
			return err
		}
		cancelled := false
		if s.Phase == core.PhasePlaying {
			var err error
			cancelled, err = o.nextStep(ctx, s, now, pending.add)
			if err != nil {
				restore(s, snap)
				return err
			}
		}
		if !cancelled {
			s.LastActivityAt = now
		}
		pending.flush(o.sink)
		return nil
	}))
}

// Cancel moves a session to PhaseCancelled from any non-terminal phase and
// removes it from the registry. An outstanding oracle call for the session is
// interrupted and its result discarded. Cancelling an already-terminal
// session is a no-op returning the existing terminal phase, never an error.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) (core.Phase, error) {
	// Interrupt an in-flight oracle call before queueing on the lock, so a
	// slow oracle cannot delay the cancellation.
	o.inflightMu.Lock()
	if cancel, ok := o.inflight[sessionID]; ok {
		cancel()
	}
	o.inflightMu.Unlock()

	var phase core.Phase
	err := o.registry.WithLock(sessionID, func(s *core.Session) error {
		now := o.clock.Now()
		if !s.Phase.Terminal() && o.policy.SessionExpired(s, now) {
			o.expire(s, now)
		}
		if s.Phase.Terminal() {
			phase = s.Phase
			return nil
		}
		if err := o.apply(s, core.EventCancel, nil, o.sink.Emit); err != nil {
			return err
		}
		s.LastActivityAt = now
		phase = s.Phase
		return nil
	})
	if err != nil {
		return 0, o.fail(sessionID, err)
	}
	if phase == core.PhaseCancelled {
		// Cancelled sessions leave the registry immediately; other terminal
		// phases linger until the retention window elapses.
		o.registry.Remove(sessionID)
	}
	return phase, nil
}

// Get returns a snapshot of the session, applying lazy expiry first. Probing
// an already-terminal session is not an error.
func (o *Orchestrator) Get(sessionID string) (*core.Session, error) {
	var snap *core.Session
	err := o.registry.WithLock(sessionID, func(s *core.Session) error {
		if !s.Phase.Terminal() && o.policy.SessionExpired(s, o.clock.Now()) {
			o.expire(s, o.clock.Now())
		}
		snap = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// lazyExpire force-expires the session if its inactivity limit elapsed,
// failing the requested operation with core.ErrSessionExpired. Terminal
// sessions fail with the same error so no further operations succeed on them.
func (o *Orchestrator) lazyExpire(s *core.Session, now time.Time) error {
	if s.Phase.Terminal() {
		return fmt.Errorf("%w: session is %s", core.ErrSessionExpired, s.Phase)
	}
	if !o.policy.SessionExpired(s, now) {
		return nil
	}
	o.expire(s, now)
	return core.ErrSessionExpired
}

func (o *Orchestrator) expire(s *core.Session, now time.Time) {
	if err := o.apply(s, core.EventTimeout, nil, o.sink.Emit); err == nil {
		o.logger.Info("session expired on access", "session_id", s.ID)
	}
}

// eventBuffer stages outbound events for a transactional operation so they
// only reach the sink if the operation commits.
type eventBuffer struct {
	events []core.Event
}

func (b *eventBuffer) add(ev core.Event) { b.events = append(b.events, ev) }

func (b *eventBuffer) flush(sink core.Sink) {
	for _, ev := range b.events {
		sink.Emit(ev)
	}
}

// nextStep consults the oracle while holding the session lock and applies the
// resulting transition, routing events through emit. The returned bool
// reports that a cancel request arrived during the call: the oracle result
// was discarded and the session is now PhaseCancelled (the caller must not
// roll back).
func (o *Orchestrator) nextStep(ctx context.Context, s *core.Session, now time.Time, emit func(core.Event)) (bool, error) {
	req := oracle.Request{
		Candidates:         s.Clone().Candidates,
		History:            append([]core.QA(nil), s.History...),
		QuestionsRemaining: s.QuestionsRemaining(),
	}

	opCtx, cancel := context.WithCancel(ctx)
	o.inflightMu.Lock()
	o.inflight[s.ID] = cancel
	o.inflightMu.Unlock()
	defer func() {
		cancel()
		o.inflightMu.Lock()
		delete(o.inflight, s.ID)
		o.inflightMu.Unlock()
	}()

	start := o.clock.Now()
	decision, err := o.oracle.Decide(opCtx, req)
	o.logger.Debug("oracle decided", "session_id", s.ID, "duration", o.clock.Now().Sub(start), "error", err)

	// A cancel request that raced the call wins regardless of its outcome:
	// a completed result for a cancelled session is discarded.
	if opCtx.Err() != nil && ctx.Err() == nil {
		if applyErr := o.apply(s, core.EventCancel, nil, emit); applyErr != nil {
			return false, applyErr
		}
		o.logger.Info("oracle result discarded after cancel", "session_id", s.ID)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	switch decision.Kind {
	case oracle.KindQuestion:
		if s.QuestionsRemaining() == 0 {
			// Forced-guess rule: with the budget exhausted the oracle must
			// guess; a further question is a contract violation.
			return false, fmt.Errorf("%w: question issued with exhausted budget", core.ErrOracleProtocol)
		}
		if err := o.apply(s, core.EventOracleQuestion, nil, emit); err != nil {
			return false, err
		}
		q := decision.Text
		s.PendingQuestion = &q
		s.QuestionCount++
		emit(core.NewQuestionReadyEvent(s.ID, q, s.QuestionCount, s.MaxQuestions, now))
		return false, nil
	case oracle.KindGuess:
		if _, ok := s.Candidate(decision.CandidateID); !ok {
			return false, fmt.Errorf("%w: unknown candidate %q", core.ErrOracleProtocol, decision.CandidateID)
		}
		if err := o.apply(s, core.EventOracleGuess, nil, emit); err != nil {
			return false, err
		}
		g := decision.CandidateID
		s.PendingGuess = &g
		emit(core.NewGuessReadyEvent(s.ID, g, now))
		return false, nil
	default:
		return false, fmt.Errorf("%w: decision kind %q", core.ErrOracleProtocol, decision.Kind)
	}
}

// apply runs the pure transition function, commits the phase and hands the
// events its effects call for to emit. Transactional operations pass a
// buffering emit so events only reach the sink once the whole operation
// commits; committed paths (expiry, cancel) pass the sink directly. summary
// is only consulted by the completion effects.
func (o *Orchestrator) apply(s *core.Session, ev core.MachineEvent, summary *core.Summary, emit func(core.Event)) error {
	next, effects, err := core.Transition(s, ev)
	if err != nil {
		return err
	}

	now := o.clock.Now()
	changed := next != s.Phase
	s.Phase = next
	if changed {
		emit(core.NewPhaseChangedEvent(s.ID, next, now))
	}

	for _, effect := range effects {
		switch effect {
		case core.EffectCompleteSolved:
			emit(core.NewGameCompletedEvent(s.ID, summary, now))
		case core.EffectCompleteUnsolved:
			emit(core.NewGameCompletedEvent(s.ID, nil, now))
		case core.EffectExpire:
			emit(core.NewSessionExpiredEvent(s.ID, now))
		}
		// EffectRequestQuestion, EffectEmitQuestion and EffectEmitGuess are
		// handled by nextStep, which owns the oracle round-trip.
	}
	return nil
}

// fail emits an OperationFailed event for non-nil errors and passes the error
// through unchanged.
func (o *Orchestrator) fail(sessionID string, err error) error {
	if err == nil {
		return nil
	}
	o.sink.Emit(core.NewOperationFailedEvent(sessionID, ErrorKind(err), o.clock.Now()))
	return err
}

// ErrorKind maps the error taxonomy onto stable transport-facing identifiers.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, core.ErrDuplicateActiveSession):
		return "duplicate_active_session"
	case errors.Is(err, core.ErrOracleProtocol):
		return "oracle_protocol_error"
	case errors.Is(err, core.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, core.ErrNoCandidatesDetected):
		return "no_candidates_detected"
	case errors.Is(err, core.ErrNoFacesDetected):
		return "no_faces_detected"
	case errors.Is(err, core.ErrAnalyzerUnavailable):
		return "analyzer_unavailable"
	case errors.Is(err, core.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, core.ErrUnknownCandidate):
		return "unknown_candidate"
	default:
		return "internal"
	}
}

// validName accepts non-empty names made of letters only.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// restore copies every field of snap back into s, undoing staged mutations.
func restore(s, snap *core.Session) {
	*s = *snap
}
