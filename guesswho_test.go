package guesswho

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/oracle"
	"github.com/hupe1980/guesswho/vision"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxQuestions = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SweepIntervalSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TerminalRetentionSeconds = -1
	assert.Error(t, cfg.Validate())

	_, err := New(func(o *Options) {
		o.Config = Config{}
	})
	assert.Error(t, err)
}

func TestGuessWho_FullGame(t *testing.T) {
	mock := oracle.NewMockOracle()
	analyzer := vision.NewMockAnalyzer(
		core.Candidate{ID: "p1", Attributes: map[string]any{"glasses": true}},
		core.Candidate{ID: "p2"},
	)

	game, err := New(func(o *Options) {
		o.Oracle = mock
		o.Analyzer = analyzer
	})
	require.NoError(t, err)

	ctx := context.Background()

	id, err := game.StartSession(ctx, "alice", []byte{0xff})
	require.NoError(t, err)

	require.NoError(t, game.AssignName(ctx, id, "p1", "Anna"))
	mock.EnqueueQuestion("Does the person wear glasses?")
	require.NoError(t, game.AssignName(ctx, id, "p2", "Ben"))

	mock.EnqueueGuess("p1")
	require.NoError(t, game.SubmitAnswer(ctx, id, core.AnswerYes))

	require.NoError(t, game.SubmitGuessVerification(ctx, id, true))

	sess, err := game.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseCompleted, sess.Phase)
	assert.Equal(t, 1, sess.QuestionCount)
}
