// Package server exposes the operational HTTP endpoints: health, session
// stats and Prometheus metrics.
package server

import (
	"context"
	"time"

	"career-bot/internal/metrics"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/pkg/serverutils"
	"career-bot/internal/session"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	app     *fiber.App
	port    string
	logger  logger.ILogger
	started time.Time
}

func New(port string, sessions *session.Store, log logger.ILogger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          serverutils.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())

	s := &Server{
		app:     app,
		port:    port,
		logger:  log,
		started: time.Now(),
	}
	s.registerRoutes(sessions)
	return s
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("OPS", "Ops server listening", map[string]interface{}{"port": s.port})
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("OPS", "Shutting down ops server", nil)
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func (s *Server) registerRoutes(sessions *session.Store) {
	promHandler := adaptor.HTTPHandler(promhttp.Handler())

	s.app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/stats", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"active_sessions": sessions.Len(),
			"uptime_seconds":  int64(time.Since(s.started).Seconds()),
		})
	})

	s.app.Get("/metrics", func(ctx *fiber.Ctx) error {
		metrics.ActiveSessions.Set(float64(sessions.Len()))
		return promHandler(ctx)
	})
}
