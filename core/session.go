package core

import (
	"time"

	"github.com/google/uuid"
)

// Answer is a user's reply to a yes/no question.
type Answer string

const (
	// AnswerYes confirms the question holds for the hidden person.
	AnswerYes Answer = "yes"
	// AnswerNo denies the question.
	AnswerNo Answer = "no"
	// AnswerUnsure means the user cannot tell. Whether the oracle treats it
	// like AnswerNo is internal to the oracle; the core does not assume
	// symmetry between the two.
	AnswerUnsure Answer = "unsure"
)

// ParseAnswer validates a raw answer string against the closed answer set.
func ParseAnswer(raw string) (Answer, bool) {
	switch Answer(raw) {
	case AnswerYes, AnswerNo, AnswerUnsure:
		return Answer(raw), true
	}
	return "", false
}

// Candidate is one detected person-entity within a session's image. The
// attribute map is opaque: the core only compares ids and passes attributes
// through to the final summary.
type Candidate struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// QA is one answered question. The history is append-only.
type QA struct {
	Question string `json:"question"`
	Answer   Answer `json:"answer"`
}

// Session is the unit of game state: one in-progress game tied to one owner.
//
// Contract:
//   - Mutation happens only under the registry's per-session lock; every
//     other component operates on a snapshot obtained via Clone.
//   - Candidates are set once when leaving PhaseAnalyzing and, apart from
//     name assignment during PhaseNaming, immutable thereafter.
//   - len(History) == QuestionCount at all times except between a question
//     being issued (PendingQuestion non-nil) and its answer being recorded.
//   - A session in a terminal phase is immutable and eligible for removal.
type Session struct {
	ID            string      `json:"id"`
	Owner         string      `json:"owner"`
	Phase         Phase       `json:"phase"`
	Candidates    []Candidate `json:"candidates"`
	History       []QA        `json:"history"`
	QuestionCount int         `json:"question_count"`
	MaxQuestions  int         `json:"max_questions"`

	// PendingQuestion holds an issued question awaiting its answer; present
	// only while PhasePlaying.
	PendingQuestion *string `json:"pending_question,omitempty"`
	// PendingGuess holds a candidate id awaiting verification; present only
	// while PhaseGuessVerify.
	PendingGuess *string `json:"pending_guess,omitempty"`

	WrongGuesses   int       `json:"wrong_guesses"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession creates a session in PhaseAnalyzing for the given owner.
func NewSession(owner string, candidates []Candidate, maxQuestions int, now time.Time) *Session {
	return &Session{
		ID:             NewID(),
		Owner:          owner,
		Phase:          PhaseAnalyzing,
		Candidates:     candidates,
		MaxQuestions:   maxQuestions,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// NewID generates a unique identifier for sessions and events.
func NewID() string { return uuid.NewString() }

// Candidate returns the candidate with the given id, if present.
func (s *Session) Candidate(id string) (*Candidate, bool) {
	for i := range s.Candidates {
		if s.Candidates[i].ID == id {
			return &s.Candidates[i], true
		}
	}
	return nil, false
}

// AllNamed reports whether every candidate has been assigned a display name.
func (s *Session) AllNamed() bool {
	for i := range s.Candidates {
		if s.Candidates[i].Name == "" {
			return false
		}
	}
	return true
}

// QuestionsRemaining returns the unused part of the question budget.
func (s *Session) QuestionsRemaining() int {
	if r := s.MaxQuestions - s.QuestionCount; r > 0 {
		return r
	}
	return 0
}

// Clone returns a deep copy of the session safe for use outside the
// registry's per-session lock.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Candidates = make([]Candidate, len(s.Candidates))
	for i, c := range s.Candidates {
		clone.Candidates[i] = c
		if c.Attributes != nil {
			attrs := make(map[string]any, len(c.Attributes))
			for k, v := range c.Attributes {
				attrs[k] = v
			}
			clone.Candidates[i].Attributes = attrs
		}
	}
	clone.History = make([]QA, len(s.History))
	copy(clone.History, s.History)
	if s.PendingQuestion != nil {
		q := *s.PendingQuestion
		clone.PendingQuestion = &q
	}
	if s.PendingGuess != nil {
		g := *s.PendingGuess
		clone.PendingGuess = &g
	}
	return &clone
}

// Summary pairs the confirmed candidate's opaque attributes with presentation
// metadata when a game completes. A nil summary means the game ended
// unsolved.
type Summary struct {
	Candidate     Candidate `json:"candidate"`
	QuestionsUsed int       `json:"questions_used"`
	WrongGuesses  int       `json:"wrong_guesses"`
}
