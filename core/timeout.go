package core

import "time"

// TimeoutPolicy maps a session's phase and timestamps onto an expired /
// not-expired verdict. It is a pure predicate: it performs no mutation, only
// reports whether a session should be force-transitioned by the sweeper or by
// the orchestrator on next access.
//
// Expiry is reserved for inactivity. Question budget exhaustion ends a game
// in PhaseCompleted (unsolved), never PhaseExpired.
type TimeoutPolicy struct {
	// NamingTimeout bounds inactivity while candidates await names. It also
	// covers PhaseAnalyzing, which a session only occupies for the duration
	// of the analyzer call.
	NamingTimeout time.Duration
	// QuestionTimeout bounds the wait for an answer during PhasePlaying.
	QuestionTimeout time.Duration
	// GuessVerifyTimeout bounds the wait for guess confirmation.
	GuessVerifyTimeout time.Duration
	// TerminalRetention is how long terminal sessions stay in the registry
	// before the sweeper removes them entirely.
	TerminalRetention time.Duration
}

// DefaultTimeoutPolicy returns the stock inactivity limits.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		NamingTimeout:      60 * time.Second,
		QuestionTimeout:    120 * time.Second,
		GuessVerifyTimeout: 120 * time.Second,
		TerminalRetention:  300 * time.Second,
	}
}

// Limit returns the inactivity limit for a phase, or zero for terminal
// phases (which never expire).
func (p TimeoutPolicy) Limit(phase Phase) time.Duration {
	switch phase {
	case PhaseAnalyzing, PhaseNaming:
		return p.NamingTimeout
	case PhasePlaying:
		return p.QuestionTimeout
	case PhaseGuessVerify:
		return p.GuessVerifyTimeout
	default:
		return 0
	}
}

// Expired reports whether a session in the given phase with the given last
// activity timestamp has exceeded its inactivity limit at time now.
func (p TimeoutPolicy) Expired(phase Phase, lastActivity, now time.Time) bool {
	limit := p.Limit(phase)
	if limit <= 0 {
		return false
	}
	return now.Sub(lastActivity) > limit
}

// SessionExpired is the session-level form of Expired.
func (p TimeoutPolicy) SessionExpired(s *Session, now time.Time) bool {
	return p.Expired(s.Phase, s.LastActivityAt, now)
}

// Removable reports whether a terminal session has outlived the retention
// window and may be deleted from the registry.
func (p TimeoutPolicy) Removable(phase Phase, lastActivity, now time.Time) bool {
	if !phase.Terminal() {
		return false
	}
	return now.Sub(lastActivity) > p.TerminalRetention
}
