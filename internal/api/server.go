// Package api exposes the service constellation over HTTP: thread store
// and lifecycle operations, content generation, model routing, identity,
// and notification forwarding. All request and response bodies are JSON.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/config"
	"github.com/moltbot/philosopher/internal/continuation"
	"github.com/moltbot/philosopher/internal/generation"
	"github.com/moltbot/philosopher/internal/identity"
	"github.com/moltbot/philosopher/internal/modelrouter"
	"github.com/moltbot/philosopher/internal/notify"
	"github.com/moltbot/philosopher/internal/scenario"
	"github.com/moltbot/philosopher/internal/threadstore"
)

const shutdownTimeout = 10 * time.Second

// Deps are the constructed components the server dispatches to.
type Deps struct {
	Store     *threadstore.Store
	Detector  *scenario.Detector
	STP       *continuation.STPGenerator
	Probes    *continuation.ProbeGenerator
	Generator *generation.Generator
	Router    *modelrouter.Router
	Notifier  *notify.Notifier
	Verifier  *identity.Verifier
}

// Server is the API server.
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	deps    Deps
	logger  zerolog.Logger
	limiter *ipLimiter

	now func() time.Time
}

// New creates the server and registers all routes.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:    e,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		limiter: newIPLimiter(cfg.Generation.RateLimitPerMinute),
		now:     time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)

	s.echo.GET("/threads", s.listThreads)
	s.echo.POST("/threads", s.createThread)
	s.echo.GET("/threads/stats", s.threadStats)
	s.echo.GET("/threads/:id", s.getThread)
	s.echo.POST("/threads/:id/exchanges", s.recordExchange)
	s.echo.POST("/threads/:id/continue", s.continueThread)
	s.echo.POST("/threads/:id/probe", s.probeThread)

	s.echo.GET("/philosophers", s.philosophers)

	s.echo.POST("/generate", s.generate)
	s.echo.GET("/personas", s.personas)
	s.echo.GET("/content-types", s.contentTypes)

	s.echo.POST("/route", s.route)
	s.echo.POST("/complete", s.complete, identity.Middleware(s.deps.Verifier, s.logger))
	s.echo.GET("/models", s.models)
	s.echo.GET("/auth", s.authInstructions)
	s.echo.GET("/profile", s.profile, identity.OptionalMiddleware(s.deps.Verifier, s.logger))

	s.echo.POST("/notify", s.sendNotification)
	s.echo.GET("/fallback-logs", s.fallbackLogs)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(fmt.Sprintf(":%d", s.cfg.Server.Port))
	}()

	s.logger.Info().Int("port", s.cfg.Server.Port).Msg("api server started")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "moltbot-philosopher",
		"config": map[string]any{
			"check_interval_seconds": s.cfg.Monitor.CheckIntervalSecs,
			"stall_threshold_hours":  float64(s.cfg.Monitor.StallThresholdSecs) / 3600,
			"death_threshold_hours":  float64(s.cfg.Monitor.DeathThresholdSecs) / 3600,
			"probes_enabled":         s.cfg.Monitor.EnableProbes,
			"discovery_enabled":      s.cfg.Monitor.EnableDiscovery,
			"backends": map[string]bool{
				"venice": s.cfg.Generation.Venice.Configured(),
				"kimi":   s.cfg.Generation.Kimi.Configured(),
			},
			"ntfy_enabled": s.cfg.Ntfy.Enabled,
		},
	})
}
