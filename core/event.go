package core

import "time"

// EventType discriminates outbound transport events.
type EventType string

const (
	// EventTypePhaseChanged announces a phase transition.
	EventTypePhaseChanged EventType = "phase_changed"
	// EventTypeQuestionReady announces a new question awaiting an answer.
	EventTypeQuestionReady EventType = "question_ready"
	// EventTypeGuessReady announces a guess awaiting verification.
	EventTypeGuessReady EventType = "guess_ready"
	// EventTypeGameCompleted announces the end of a game; Summary is nil
	// when the game ended unsolved.
	EventTypeGameCompleted EventType = "game_completed"
	// EventTypeSessionExpired announces a session timed out.
	EventTypeSessionExpired EventType = "session_expired"
	// EventTypeOperationFailed announces a rejected or failed operation.
	EventTypeOperationFailed EventType = "operation_failed"
)

// Event is an immutable outbound notification produced by the orchestrator
// or sweeper for consumption by the transport layer. Only the fields relevant
// to the Type are populated.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	Phase          Phase    `json:"phase,omitempty"`
	Question       string   `json:"question,omitempty"`
	QuestionNumber int      `json:"question_number,omitempty"`
	MaxQuestions   int      `json:"max_questions,omitempty"`
	CandidateID    string   `json:"candidate_id,omitempty"`
	Summary        *Summary `json:"summary,omitempty"`
	ErrorKind      string   `json:"error_kind,omitempty"`
}

// Sink receives outbound events. Emit must not block the caller for long:
// it is invoked while the per-session lock is held. Implementations that fan
// out to slow consumers should buffer internally.
type Sink interface {
	Emit(ev Event)
}

// NoOpSink discards all events. Useful when no transport is attached.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(Event) {}

func newEvent(t EventType, sessionID string, now time.Time) Event {
	return Event{ID: NewID(), Type: t, SessionID: sessionID, Timestamp: now}
}

// NewPhaseChangedEvent announces that a session entered the given phase.
func NewPhaseChangedEvent(sessionID string, phase Phase, now time.Time) Event {
	ev := newEvent(EventTypePhaseChanged, sessionID, now)
	ev.Phase = phase
	return ev
}

// NewQuestionReadyEvent announces the next question along with budget
// bookkeeping for display ("question 3 of 20").
func NewQuestionReadyEvent(sessionID, question string, number, max int, now time.Time) Event {
	ev := newEvent(EventTypeQuestionReady, sessionID, now)
	ev.Question = question
	ev.QuestionNumber = number
	ev.MaxQuestions = max
	return ev
}

// NewGuessReadyEvent announces a guess awaiting user verification.
func NewGuessReadyEvent(sessionID, candidateID string, now time.Time) Event {
	ev := newEvent(EventTypeGuessReady, sessionID, now)
	ev.CandidateID = candidateID
	return ev
}

// NewGameCompletedEvent announces game end. Pass a nil summary for an
// unsolved game.
func NewGameCompletedEvent(sessionID string, summary *Summary, now time.Time) Event {
	ev := newEvent(EventTypeGameCompleted, sessionID, now)
	ev.Summary = summary
	return ev
}

// NewSessionExpiredEvent announces an inactivity expiry.
func NewSessionExpiredEvent(sessionID string, now time.Time) Event {
	return newEvent(EventTypeSessionExpired, sessionID, now)
}

// NewOperationFailedEvent announces a failed operation with its error kind.
func NewOperationFailedEvent(sessionID, errorKind string, now time.Time) Event {
	ev := newEvent(EventTypeOperationFailed, sessionID, now)
	ev.ErrorKind = errorKind
	return ev
}
