package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/guesswho"
	"github.com/hupe1980/guesswho/logging"
	"github.com/hupe1980/guesswho/oracle"
	anthropicoracle "github.com/hupe1980/guesswho/oracle/anthropic"
	openaioracle "github.com/hupe1980/guesswho/oracle/openai"
	"github.com/hupe1980/guesswho/server"
	"github.com/hupe1980/guesswho/vision"
	openaivision "github.com/hupe1980/guesswho/vision/openai"
)

type serveConfig struct {
	bind     string
	port     int
	oracle   string
	analyzer string
	logLevel string

	maxQuestions      int
	namingTimeout     int
	questionTimeout   int
	guessTimeout      int
	sweepInterval     int
	terminalRetention int
}

func (c *serveConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.oracle {
	case "mock", "openai", "anthropic":
	default:
		return fmt.Errorf("invalid oracle provider %q (must be mock, openai or anthropic)", c.oracle)
	}
	switch c.analyzer {
	case "mock", "openai":
	default:
		return fmt.Errorf("invalid analyzer provider %q (must be mock or openai)", c.analyzer)
	}
	return nil
}

func newCmd(cfg *serveConfig) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSWHO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guesswhod",
		Short:         "An interactive photo-based guess-the-person game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSWHO_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GUESSWHO_PORT)")
	fs.StringVar(&cfg.oracle, "oracle", "mock", "oracle provider: mock, openai or anthropic (env: GUESSWHO_ORACLE)")
	fs.StringVar(&cfg.analyzer, "analyzer", "mock", "analyzer provider: mock or openai (env: GUESSWHO_ANALYZER)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn or error (env: GUESSWHO_LOG_LEVEL)")
	fs.IntVar(&cfg.maxQuestions, "max-questions", 20, "question budget per session (env: GUESSWHO_MAX_QUESTIONS)")
	fs.IntVar(&cfg.namingTimeout, "naming-timeout", 60, "seconds of inactivity allowed while naming (env: GUESSWHO_NAMING_TIMEOUT)")
	fs.IntVar(&cfg.questionTimeout, "question-timeout", 120, "seconds of inactivity allowed while answering (env: GUESSWHO_QUESTION_TIMEOUT)")
	fs.IntVar(&cfg.guessTimeout, "guess-timeout", 120, "seconds of inactivity allowed while verifying a guess (env: GUESSWHO_GUESS_TIMEOUT)")
	fs.IntVar(&cfg.sweepInterval, "sweep-interval", 15, "seconds between expiry sweeps (env: GUESSWHO_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.terminalRetention, "terminal-retention", 300, "seconds finished sessions remain readable (env: GUESSWHO_TERMINAL_RETENTION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guesswhod v{{.Version}}\n")

	return cmd
}

func serve(ctx context.Context, cfg *serveConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewSlogLogger(logging.ParseLogLevel(cfg.logLevel), "json", false)

	var gameOracle oracle.Oracle
	switch cfg.oracle {
	case "openai":
		gameOracle = openaioracle.NewOracle()
	case "anthropic":
		gameOracle = anthropicoracle.NewOracle()
	default:
		gameOracle = oracle.NewMockOracle()
	}

	var analyzer vision.Analyzer
	switch cfg.analyzer {
	case "openai":
		analyzer = openaivision.NewAnalyzer()
	default:
		analyzer = vision.NewMockAnalyzer()
	}

	// Game events flow to websocket subscribers through the hub.
	hub := server.NewEventHub(logger)

	game, err := guesswho.New(func(o *guesswho.Options) {
		o.Config = guesswho.Config{
			MaxQuestions:              cfg.maxQuestions,
			NamingTimeoutSeconds:      cfg.namingTimeout,
			QuestionTimeoutSeconds:    cfg.questionTimeout,
			GuessVerifyTimeoutSeconds: cfg.guessTimeout,
			SweepIntervalSeconds:      cfg.sweepInterval,
			TerminalRetentionSeconds:  cfg.terminalRetention,
		}
		o.Oracle = gameOracle
		o.Analyzer = analyzer
		o.Sink = hub
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	srv := server.New(game, func(o *server.Options) {
		o.Bind = cfg.bind
		o.Port = cfg.port
		o.Logger = logger
		o.Hub = hub
	})

	game.Start(ctx)
	defer game.Stop()

	logger.Info("guesswhod starting",
		"version", releaseVersion,
		"oracle", cfg.oracle,
		"analyzer", cfg.analyzer,
	)

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
