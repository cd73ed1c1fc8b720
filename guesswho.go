// Package guesswho provides a high-level façade over the core session
// machinery (registry, orchestrator & expiry sweeper) enabling rapid
// construction of photo-based "guess the person" games. Most applications
// interact with this package by:
//  1. Creating a GuessWho via New() (optionally overriding defaults)
//  2. Starting a game from a photo (StartSession) and assigning names
//  3. Answering oracle questions until the game resolves
//
// The façade delegates game logic to orchestrator.Orchestrator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a real
// oracle and analyzer plus a structured logger.
package guesswho

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/logging"
	"github.com/hupe1980/guesswho/oracle"
	"github.com/hupe1980/guesswho/orchestrator"
	"github.com/hupe1980/guesswho/registry"
	"github.com/hupe1980/guesswho/sweeper"
	"github.com/hupe1980/guesswho/vision"
)

// Config holds the tunable game parameters. The zero value is not usable;
// call DefaultConfig and override selectively.
type Config struct {
	// MaxQuestions is the question budget per session.
	MaxQuestions int

	// NamingTimeoutSeconds bounds player inactivity while naming candidates.
	NamingTimeoutSeconds int

	// QuestionTimeoutSeconds bounds player inactivity while answering.
	QuestionTimeoutSeconds int

	// GuessVerifyTimeoutSeconds bounds player inactivity while verifying a guess.
	GuessVerifyTimeoutSeconds int

	// SweepIntervalSeconds is the period of the background expiry sweep.
	SweepIntervalSeconds int

	// TerminalRetentionSeconds is how long finished sessions remain readable
	// before the sweeper removes them.
	TerminalRetentionSeconds int
}

// DefaultConfig returns the stock game parameters.
func DefaultConfig() Config {
	return Config{
		MaxQuestions:              20,
		NamingTimeoutSeconds:      60,
		QuestionTimeoutSeconds:    120,
		GuessVerifyTimeoutSeconds: 120,
		SweepIntervalSeconds:      15,
		TerminalRetentionSeconds:  300,
	}
}

// Validate checks the configuration for values the game cannot run with.
func (c Config) Validate() error {
	if c.MaxQuestions < 1 {
		return fmt.Errorf("maxQuestions must be at least 1, got %d", c.MaxQuestions)
	}
	if c.NamingTimeoutSeconds < 1 {
		return fmt.Errorf("namingTimeoutSeconds must be at least 1, got %d", c.NamingTimeoutSeconds)
	}
	if c.QuestionTimeoutSeconds < 1 {
		return fmt.Errorf("questionTimeoutSeconds must be at least 1, got %d", c.QuestionTimeoutSeconds)
	}
	if c.GuessVerifyTimeoutSeconds < 1 {
		return fmt.Errorf("guessVerifyTimeoutSeconds must be at least 1, got %d", c.GuessVerifyTimeoutSeconds)
	}
	if c.SweepIntervalSeconds < 1 {
		return fmt.Errorf("sweepIntervalSeconds must be at least 1, got %d", c.SweepIntervalSeconds)
	}
	if c.TerminalRetentionSeconds < 0 {
		return fmt.Errorf("terminalRetentionSeconds must not be negative, got %d", c.TerminalRetentionSeconds)
	}
	return nil
}

func (c Config) policy() core.TimeoutPolicy {
	return core.TimeoutPolicy{
		NamingTimeout:      time.Duration(c.NamingTimeoutSeconds) * time.Second,
		QuestionTimeout:    time.Duration(c.QuestionTimeoutSeconds) * time.Second,
		GuessVerifyTimeout: time.Duration(c.GuessVerifyTimeoutSeconds) * time.Second,
		TerminalRetention:  time.Duration(c.TerminalRetentionSeconds) * time.Second,
	}
}

// Options configures the GuessWho instance.
type Options struct {
	// Config holds the game parameters (question budget, timeouts, sweep).
	Config Config

	// Oracle asks questions and makes guesses (defaults to a mock).
	Oracle oracle.Oracle

	// Analyzer extracts candidates from the game photo (defaults to a mock).
	Analyzer vision.Analyzer

	// Sink receives outbound game events (defaults to NoOpSink).
	Sink core.Sink

	// Registry holds live sessions (defaults to in-memory implementation).
	Registry core.Registry

	// Clock supplies time (defaults to the system clock).
	Clock core.Clock

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// GuessWho is the high-level façade aggregating the orchestrator and sweeper.
type GuessWho struct {
	opts    Options
	orch    *orchestrator.Orchestrator
	sweeper *sweeper.Sweeper
}

// New creates a new GuessWho instance with optional overrides. Any unset
// collaborator is initialized with an in-memory or no-op implementation.
// New returns an error only when the configuration is invalid.
func New(optFns ...func(o *Options)) (*GuessWho, error) {
	opts := Options{
		Config:   DefaultConfig(),
		Oracle:   oracle.NewMockOracle(),
		Analyzer: vision.NewMockAnalyzer(),
		Sink:     core.NoOpSink{},
		Registry: registry.NewInMemoryRegistry(),
		Clock:    core.SystemClock{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	policy := opts.Config.policy()

	orch := orchestrator.New(func(o *orchestrator.Options) {
		o.Registry = opts.Registry
		o.Oracle = opts.Oracle
		o.Analyzer = opts.Analyzer
		o.Sink = opts.Sink
		o.Clock = opts.Clock
		o.Policy = policy
		o.MaxQuestions = opts.Config.MaxQuestions
		o.Logger = opts.Logger
	})

	sw := sweeper.New(opts.Registry, func(o *sweeper.Options) {
		o.Interval = time.Duration(opts.Config.SweepIntervalSeconds) * time.Second
		o.Policy = policy
		o.Clock = opts.Clock
		o.Sink = opts.Sink
		o.Logger = opts.Logger
	})

	return &GuessWho{opts: opts, orch: orch, sweeper: sw}, nil
}

// Start launches the background expiry sweeper. It returns immediately.
func (g *GuessWho) Start(ctx context.Context) { g.sweeper.Start(ctx) }

// Stop halts the background sweeper and waits for it to finish.
func (g *GuessWho) Stop() { g.sweeper.Stop() }

// StartSession analyzes the photo and creates a new session for owner,
// returning the new session id.
func (g *GuessWho) StartSession(ctx context.Context, owner string, image []byte) (string, error) {
	return g.orch.StartSession(ctx, owner, image)
}

// AssignName attaches a player-provided name to a candidate. Once every
// candidate is named the game moves on and the oracle asks its first question.
func (g *GuessWho) AssignName(ctx context.Context, sessionID, candidateID, name string) error {
	return g.orch.AssignName(ctx, sessionID, candidateID, name)
}

// SubmitAnswer records the player's answer to the pending question and asks
// the oracle for its next move.
func (g *GuessWho) SubmitAnswer(ctx context.Context, sessionID string, answer core.Answer) error {
	return g.orch.SubmitAnswer(ctx, sessionID, answer)
}

// SubmitGuessVerification resolves the pending guess as correct or not.
func (g *GuessWho) SubmitGuessVerification(ctx context.Context, sessionID string, correct bool) error {
	return g.orch.SubmitGuessVerification(ctx, sessionID, correct)
}

// Cancel aborts the session, returning its resulting phase. Cancelling an
// already finished session is a no-op.
func (g *GuessWho) Cancel(ctx context.Context, sessionID string) (core.Phase, error) {
	return g.orch.Cancel(ctx, sessionID)
}

// Get returns a snapshot of the session.
func (g *GuessWho) Get(sessionID string) (*core.Session, error) {
	return g.orch.Get(sessionID)
}
