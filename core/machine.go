package core

import "fmt"

// MachineEvent is an input to the phase transition function. The set is
// closed; anything the transport delivers must be mapped onto one of these
// before reaching the machine.
type MachineEvent int

const (
	// EventCandidatesReady signals the analyzer returned a usable candidate set.
	EventCandidatesReady MachineEvent = iota
	// EventNamesAssigned signals every candidate now carries a display name.
	EventNamesAssigned
	// EventOracleQuestion signals the oracle issued the next question.
	EventOracleQuestion
	// EventOracleGuess signals the oracle committed to a guess.
	EventOracleGuess
	// EventGuessConfirmed signals the user accepted the pending guess.
	EventGuessConfirmed
	// EventGuessRejected signals the user rejected the pending guess.
	EventGuessRejected
	// EventTimeout signals the inactivity limit for the current phase elapsed.
	EventTimeout
	// EventCancel signals the user abandoned the session.
	EventCancel
)

// String returns the canonical name of the machine event.
func (e MachineEvent) String() string {
	switch e {
	case EventCandidatesReady:
		return "candidates_ready"
	case EventNamesAssigned:
		return "names_assigned"
	case EventOracleQuestion:
		return "oracle_question"
	case EventOracleGuess:
		return "oracle_guess"
	case EventGuessConfirmed:
		return "guess_confirmed"
	case EventGuessRejected:
		return "guess_rejected"
	case EventTimeout:
		return "timeout"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Effect is a side-effect request returned by Transition. The machine itself
// mutates nothing; the orchestrator interprets effects after persisting the
// phase change.
type Effect int

const (
	// EffectRequestQuestion asks the orchestrator to consult the oracle for
	// the next step.
	EffectRequestQuestion Effect = iota
	// EffectEmitQuestion publishes the pending question to the transport.
	EffectEmitQuestion
	// EffectEmitGuess publishes the pending guess for verification.
	EffectEmitGuess
	// EffectCompleteSolved ends the game with a summary of the confirmed
	// candidate.
	EffectCompleteSolved
	// EffectCompleteUnsolved ends the game with no summary: the budget ran
	// out without a confirmed guess.
	EffectCompleteUnsolved
	// EffectExpire announces the session expired from inactivity.
	EffectExpire
)

// Transition is the pure phase transition function: given the session
// snapshot and an event it returns the next phase plus side-effect requests,
// with no hidden state. Illegal event-for-phase combinations return
// ErrInvalidTransition and leave the session unchanged.
//
// The forced-guess rule: EventOracleQuestion is only legal while budget
// remains. When QuestionCount has reached MaxQuestions the orchestrator must
// demand a guess from the oracle instead, so the only budget-exhausted paths
// out of PhasePlaying lead to PhaseGuessVerify.
func Transition(s *Session, ev MachineEvent) (Phase, []Effect, error) {
	// Timeout and cancel apply uniformly to every non-terminal phase.
	switch ev {
	case EventTimeout:
		if s.Phase.Terminal() {
			return s.Phase, nil, illegal(s.Phase, ev)
		}
		return PhaseExpired, []Effect{EffectExpire}, nil
	case EventCancel:
		if s.Phase.Terminal() {
			return s.Phase, nil, illegal(s.Phase, ev)
		}
		return PhaseCancelled, nil, nil
	}

	switch s.Phase {
	case PhaseAnalyzing:
		if ev == EventCandidatesReady {
			return PhaseNaming, nil, nil
		}
	case PhaseNaming:
		if ev == EventNamesAssigned {
			return PhasePlaying, []Effect{EffectRequestQuestion}, nil
		}
	case PhasePlaying:
		switch ev {
		case EventOracleQuestion:
			if s.QuestionsRemaining() == 0 {
				return s.Phase, nil, fmt.Errorf("%w: question budget exhausted", ErrInvalidTransition)
			}
			return PhasePlaying, []Effect{EffectEmitQuestion}, nil
		case EventOracleGuess:
			return PhaseGuessVerify, []Effect{EffectEmitGuess}, nil
		}
	case PhaseGuessVerify:
		switch ev {
		case EventGuessConfirmed:
			return PhaseCompleted, []Effect{EffectCompleteSolved}, nil
		case EventGuessRejected:
			if s.QuestionsRemaining() > 0 {
				return PhasePlaying, []Effect{EffectRequestQuestion}, nil
			}
			return PhaseCompleted, []Effect{EffectCompleteUnsolved}, nil
		}
	}

	return s.Phase, nil, illegal(s.Phase, ev)
}

func illegal(p Phase, ev MachineEvent) error {
	return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, ev, p)
}
