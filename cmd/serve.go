package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/moltbot/philosopher/internal/api"
	"github.com/moltbot/philosopher/internal/config"
	"github.com/moltbot/philosopher/internal/continuation"
	"github.com/moltbot/philosopher/internal/generation"
	"github.com/moltbot/philosopher/internal/identity"
	"github.com/moltbot/philosopher/internal/modelrouter"
	"github.com/moltbot/philosopher/internal/monitor"
	"github.com/moltbot/philosopher/internal/notify"
	"github.com/moltbot/philosopher/internal/scenario"
	"github.com/moltbot/philosopher/internal/threadstore"
	"github.com/moltbot/philosopher/pkg/models"
)

// ServeCommand returns the CLI command that runs the API server and the
// thread monitor loop.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the philosopher services and thread monitor",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-monitor",
				Usage: "Disable the thread monitor loop",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(c.String("log-level"))

	store, err := threadstore.New(cfg.Monitor.StateDir, models.TargetMetrics{
		MinExchanges:  cfg.Monitor.TargetMinExchanges,
		MinArchetypes: cfg.Monitor.TargetMinArchetypes,
	}, logger.With().Str("component", "threadstore").Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize thread store: %w", err)
	}

	generator, err := generation.New(cfg.Generation, logger.With().Str("component", "generation").Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize content generator: %w", err)
	}

	router, err := modelrouter.New(cfg.Router, cfg.Generation, logger.With().Str("component", "router").Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize model router: %w", err)
	}

	detector := scenario.NewDetector(logger.With().Str("component", "scenario").Logger())
	stp := continuation.NewSTPGenerator(generator, logger.With().Str("component", "stp").Logger())
	probes := continuation.NewProbeGenerator(generator, logger.With().Str("component", "probes").Logger())
	notifier := notify.New(cfg.Ntfy, logger.With().Str("component", "notify").Logger())
	verifier := identity.NewVerifier(cfg.Identity, logger.With().Str("component", "identity").Logger())

	server := api.New(cfg, api.Deps{
		Store:     store,
		Detector:  detector,
		STP:       stp,
		Probes:    probes,
		Generator: generator,
		Router:    router,
		Notifier:  notifier,
		Verifier:  verifier,
	}, logger.With().Str("component", "api").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.Bool("no-monitor") {
		mon := monitor.New(store, probes, notifier, cfg.Monitor,
			logger.With().Str("component", "monitor").Logger())
		go mon.Run(ctx)
	}

	return server.Start(ctx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
