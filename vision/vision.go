package vision

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/guesswho/core"
)

// Analyzer extracts candidate records from image bytes. Each candidate
// carries a stable id (unique within the response) and an opaque attribute
// map. Implementations wrap transport failures with
// core.ErrAnalyzerUnavailable and return core.ErrNoFacesDetected when the
// image contains no recognizable person.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) ([]core.Candidate, error)
}

// MockAnalyzer returns a fixed candidate set (or error) for every call.
type MockAnalyzer struct {
	mu         sync.Mutex
	candidates []core.Candidate
	err        error
	calls      int
}

// NewMockAnalyzer constructs a mock returning the given candidates.
func NewMockAnalyzer(candidates ...core.Candidate) *MockAnalyzer {
	return &MockAnalyzer{candidates: candidates}
}

// Fail makes every subsequent Analyze call return err.
func (m *MockAnalyzer) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Analyze returns the configured candidates, deep-copied so callers cannot
// mutate the mock's state.
func (m *MockAnalyzer) Analyze(ctx context.Context, image []byte) ([]core.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAnalyzerUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]core.Candidate, len(m.candidates))
	for i, c := range m.candidates {
		out[i] = c
		if c.Attributes != nil {
			attrs := make(map[string]any, len(c.Attributes))
			for k, v := range c.Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out, nil
}

// Calls returns how many times Analyze has been invoked.
func (m *MockAnalyzer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
