package core

// Phase is the session's current stage in the guessing protocol. The full
// protocol state is always exactly one of these values, never a combination
// of independent flags.
type Phase int

const (
	// PhaseAnalyzing covers the moment between image submission and the
	// analyzer returning a candidate set.
	PhaseAnalyzing Phase = iota
	// PhaseNaming waits for the user to assign a display name to every
	// detected candidate.
	PhaseNaming
	// PhasePlaying is the question/answer loop against the oracle.
	PhasePlaying
	// PhaseGuessVerify waits for the user to confirm or reject a guess.
	PhaseGuessVerify
	// PhaseCompleted is terminal: the game ended, solved or unsolved.
	PhaseCompleted
	// PhaseExpired is terminal: the session timed out from inactivity.
	PhaseExpired
	// PhaseCancelled is terminal: the user abandoned the session.
	PhaseCancelled
)

// String returns the canonical lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseNaming:
		return "naming"
	case PhasePlaying:
		return "playing"
	case PhaseGuessVerify:
		return "guess_verify"
	case PhaseCompleted:
		return "completed"
	case PhaseExpired:
		return "expired"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase admits no further transitions. A session
// in a terminal phase is immutable and eligible for removal.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseExpired || p == PhaseCancelled
}
