package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/guesswho/core"
)

// Request carries everything the oracle may use to decide its next step: the
// remaining candidate set, the full question/answer history and the unused
// question budget. When QuestionsRemaining is zero a conforming oracle must
// return a guess (the forced-guess rule).
type Request struct {
	Candidates         []core.Candidate `json:"candidates"`
	History            []core.QA        `json:"history"`
	QuestionsRemaining int              `json:"questions_remaining"`
}

// DecisionKind discriminates the two legal oracle replies.
type DecisionKind string

const (
	// KindQuestion means the oracle wants to ask another yes/no question.
	KindQuestion DecisionKind = "question"
	// KindGuess means the oracle commits to a candidate.
	KindGuess DecisionKind = "guess"
)

// Decision is the oracle's reply: exactly one of Text (KindQuestion) or
// CandidateID (KindGuess) is set.
type Decision struct {
	Kind        DecisionKind
	Text        string
	CandidateID string
}

// Oracle produces the next step of the guessing protocol. Implementations
// must honor ctx cancellation and wrap transport failures with
// core.ErrOracleUnavailable and malformed replies with core.ErrOracleProtocol.
type Oracle interface {
	// Decide returns the next question or guess for the given game state.
	Decide(ctx context.Context, req Request) (Decision, error)
}

// wireDecision is the JSON shape providers must produce.
type wireDecision struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	CandidateID string `json:"candidateId,omitempty"`
}

// ParseDecision validates a raw oracle reply against the closed decision sum.
// Unparseable JSON, an unknown type tag or a missing payload field all fail
// with core.ErrOracleProtocol.
func ParseDecision(data []byte) (Decision, error) {
	var wire wireDecision
	if err := json.Unmarshal(data, &wire); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", core.ErrOracleProtocol, err)
	}
	switch DecisionKind(wire.Type) {
	case KindQuestion:
		if wire.Text == "" {
			return Decision{}, fmt.Errorf("%w: question without text", core.ErrOracleProtocol)
		}
		return Decision{Kind: KindQuestion, Text: wire.Text}, nil
	case KindGuess:
		if wire.CandidateID == "" {
			return Decision{}, fmt.Errorf("%w: guess without candidateId", core.ErrOracleProtocol)
		}
		return Decision{Kind: KindGuess, CandidateID: wire.CandidateID}, nil
	default:
		return Decision{}, fmt.Errorf("%w: unknown decision type %q", core.ErrOracleProtocol, wire.Type)
	}
}

// MockOracle replays a scripted sequence of decisions. Useful for tests and
// local play without a model provider.
type MockOracle struct {
	mu        sync.Mutex
	decisions []Decision
	errs      []error
	requests  []Request
}

// NewMockOracle constructs an empty mock; enqueue steps before use.
func NewMockOracle() *MockOracle { return &MockOracle{} }

// EnqueueQuestion appends a question step to the script.
func (m *MockOracle) EnqueueQuestion(text string) {
	m.enqueue(Decision{Kind: KindQuestion, Text: text}, nil)
}

// EnqueueGuess appends a guess step to the script.
func (m *MockOracle) EnqueueGuess(candidateID string) {
	m.enqueue(Decision{Kind: KindGuess, CandidateID: candidateID}, nil)
}

// EnqueueError appends a failing step to the script.
func (m *MockOracle) EnqueueError(err error) {
	m.enqueue(Decision{}, err)
}

func (m *MockOracle) enqueue(d Decision, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	m.errs = append(m.errs, err)
}

// Decide pops the next scripted step, recording the request for later
// inspection. An exhausted script fails with core.ErrOracleUnavailable.
func (m *MockOracle) Decide(ctx context.Context, req Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.decisions) == 0 {
		return Decision{}, fmt.Errorf("%w: mock script exhausted", core.ErrOracleUnavailable)
	}
	d, err := m.decisions[0], m.errs[0]
	m.decisions, m.errs = m.decisions[1:], m.errs[1:]
	if err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Requests returns a copy of the requests observed so far.
func (m *MockOracle) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
