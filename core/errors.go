package core

import "errors"

// Error taxonomy surfaced by orchestrator operations. All errors are returned
// to the immediate caller; none are silently swallowed, and none are fatal to
// the process: a single session's failure never affects others.
var (
	// ErrInvalidTransition is returned when an event is not legal for the
	// session's current phase. The session is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition for current phase")

	// ErrNotFound is returned when no session with the given id exists.
	ErrNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session's inactivity timeout
	// elapsed before the requested operation; the session has been moved to
	// PhaseExpired instead of performing it.
	ErrSessionExpired = errors.New("session expired")

	// ErrDuplicateActiveSession is returned when the owner already holds a
	// non-terminal session.
	ErrDuplicateActiveSession = errors.New("owner already has an active session")

	// ErrOracleUnavailable indicates the reasoning oracle could not be
	// reached or failed transiently. Session state is untouched; the caller
	// may retry within the timeout window.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleProtocol indicates the oracle replied with an unparseable
	// payload or referenced an unknown candidate id. Treated like
	// ErrOracleUnavailable: no partial state is committed.
	ErrOracleProtocol = errors.New("oracle protocol error")

	// ErrNoCandidatesDetected is returned by StartSession when the analyzer
	// found fewer than two candidates; the game needs at least two to be
	// meaningful. No session is created.
	ErrNoCandidatesDetected = errors.New("not enough candidates detected")

	// ErrNoFacesDetected is returned by an analyzer when the image contains
	// no recognizable person at all.
	ErrNoFacesDetected = errors.New("no faces detected")

	// ErrAnalyzerUnavailable indicates the vision analyzer could not be
	// reached. No session is created.
	ErrAnalyzerUnavailable = errors.New("analyzer unavailable")

	// ErrInvalidName is returned when a candidate name fails validation
	// (empty or containing non-letter characters).
	ErrInvalidName = errors.New("invalid candidate name")

	// ErrUnknownCandidate is returned when an operation references a
	// candidate id that does not belong to the session.
	ErrUnknownCandidate = errors.New("unknown candidate id")
)
