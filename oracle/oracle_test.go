package oracle

import (
	"context"
	"testing"

	"github.com/hupe1980/guesswho/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Oracle = (*MockOracle)(nil)

func TestParseDecision(t *testing.T) {
	t.Run("question", func(t *testing.T) {
		d, err := ParseDecision([]byte(`{"type":"question","text":"Does the person wear glasses?"}`))
		require.NoError(t, err)
		assert.Equal(t, KindQuestion, d.Kind)
		assert.Equal(t, "Does the person wear glasses?", d.Text)
	})

	t.Run("guess", func(t *testing.T) {
		d, err := ParseDecision([]byte(`{"type":"guess","candidateId":"p2"}`))
		require.NoError(t, err)
		assert.Equal(t, KindGuess, d.Kind)
		assert.Equal(t, "p2", d.CandidateID)
	})

	t.Run("invalid", func(t *testing.T) {
		cases := map[string]string{
			"not json":          `next question please`,
			"unknown type":      `{"type":"hint","text":"tall"}`,
			"question, no text": `{"type":"question"}`,
			"guess, no id":      `{"type":"guess","text":"p2"}`,
			"empty object":      `{}`,
		}
		for name, raw := range cases {
			_, err := ParseDecision([]byte(raw))
			assert.ErrorIs(t, err, core.ErrOracleProtocol, name)
		}
	})
}

func TestMockOracle_Script(t *testing.T) {
	m := NewMockOracle()
	m.EnqueueQuestion("Is the person smiling?")
	m.EnqueueGuess("p1")

	d, err := m.Decide(context.Background(), Request{QuestionsRemaining: 5})
	require.NoError(t, err)
	assert.Equal(t, KindQuestion, d.Kind)

	d, err = m.Decide(context.Background(), Request{QuestionsRemaining: 4})
	require.NoError(t, err)
	assert.Equal(t, KindGuess, d.Kind)

	_, err = m.Decide(context.Background(), Request{})
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, 5, reqs[0].QuestionsRemaining)
}

func TestMockOracle_CancelledContext(t *testing.T) {
	m := NewMockOracle()
	m.EnqueueQuestion("never delivered")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Decide(ctx, Request{})
	assert.ErrorIs(t, err, core.ErrOracleUnavailable)
	assert.Empty(t, m.Requests())
}
